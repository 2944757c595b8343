package reconmem

import (
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

var phoneNumberRe = regexp.MustCompile(`^\+[0-9]+$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidValue}, args...)...)
}

func requireValue(f Family, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s value is empty", f)
	}
	return nil
}

func validPhoneNumber(value string) error {
	if !phoneNumberRe.MatchString(value) {
		return invalid("phone number %q must be + followed by digits", value)
	}
	return nil
}

// AccountValue builds the natural key of an account.
func AccountValue(service, username string) string {
	return service + ":" + username
}

func validAccount(service, username string) error {
	if service == "" || username == "" {
		return invalid("account needs a service and a username")
	}
	if strings.Contains(service, ":") {
		return invalid("account service %q must not contain ':'", service)
	}
	return nil
}

func parseAddr(value string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return netip.Addr{}, invalid("ip address %q: %v", value, err)
	}
	return addr.Unmap(), nil
}

func addrFamily(addr netip.Addr) string {
	if addr.Is4() {
		return "4"
	}
	return "6"
}

// PortValue builds the natural key of a port, e.g. tcp/192.0.2.1:443.
func PortValue(protocol string, addr netip.Addr, port int64) string {
	return protocol + "/" + net.JoinHostPort(addr.String(), strconv.FormatInt(port, 10))
}
