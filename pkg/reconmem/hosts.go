package reconmem

import (
	"net/netip"
	"net/url"
	"strings"
)

type Domain struct {
	Entity
}

type NewDomain struct {
	Value    string `db:"value"`
	Unscoped bool   `db:"unscoped"`
}

var Domains = Table[Domain]{Family: FamilyDomain, Name: "domains", Scopable: true}

func (n NewDomain) Key() string    { return n.Value }
func (n NewDomain) family() Family { return FamilyDomain }

func (n NewDomain) prepare() (Insert, error) {
	n.Value = strings.ToLower(strings.TrimSpace(n.Value))
	return n, requireValue(FamilyDomain, n.Value)
}

func (n NewDomain) autoscope(r *Rules) bool { return r.Domain(n.Value) }

type Subdomain struct {
	Entity
	DomainID   int64 `db:"domain_id"`
	Resolvable *bool `db:"resolvable"`
}

type NewSubdomain struct {
	DomainID   int64  `db:"domain_id" changeset:"-"`
	Value      string `db:"value"`
	Resolvable *bool  `db:"resolvable"`
	Unscoped   bool   `db:"unscoped"`
}

type SubdomainUpdate struct {
	ID         int64 `db:"id"`
	Resolvable *bool `db:"resolvable"`
}

var Subdomains = Table[Subdomain]{Family: FamilySubdomain, Name: "subdomains", Scopable: true}

func (n NewSubdomain) Key() string    { return n.Value }
func (n NewSubdomain) family() Family { return FamilySubdomain }

func (n NewSubdomain) prepare() (Insert, error) {
	n.Value = strings.ToLower(strings.TrimSpace(n.Value))
	return n, requireValue(FamilySubdomain, n.Value)
}

func (n NewSubdomain) autoscope(r *Rules) bool { return r.Domain(n.Value) }

func (u SubdomainUpdate) family() Family { return FamilySubdomain }
func (u SubdomainUpdate) ident() int64   { return u.ID }

type IpAddr struct {
	Entity
	Family        string   `db:"family"`
	Continent     *string  `db:"continent"`
	ContinentCode *string  `db:"continent_code"`
	Country       *string  `db:"country"`
	CountryCode   *string  `db:"country_code"`
	City          *string  `db:"city"`
	Latitude      *float64 `db:"latitude"`
	Longitude     *float64 `db:"longitude"`
	Asn           *int64   `db:"asn"`
	AsOrg         *string  `db:"as_org"`
	Description   *string  `db:"description"`
	ReverseDNS    *string  `db:"reverse_dns"`
}

type NewIpAddr struct {
	Family        string   `db:"family" changeset:"-"`
	Value         string   `db:"value"`
	Continent     *string  `db:"continent"`
	ContinentCode *string  `db:"continent_code"`
	Country       *string  `db:"country"`
	CountryCode   *string  `db:"country_code"`
	City          *string  `db:"city"`
	Latitude      *float64 `db:"latitude"`
	Longitude     *float64 `db:"longitude"`
	Asn           *int64   `db:"asn"`
	AsOrg         *string  `db:"as_org"`
	Description   *string  `db:"description"`
	ReverseDNS    *string  `db:"reverse_dns"`
	Unscoped      bool     `db:"unscoped"`
}

type IpAddrUpdate struct {
	ID            int64    `db:"id"`
	Continent     *string  `db:"continent"`
	ContinentCode *string  `db:"continent_code"`
	Country       *string  `db:"country"`
	CountryCode   *string  `db:"country_code"`
	City          *string  `db:"city"`
	Latitude      *float64 `db:"latitude"`
	Longitude     *float64 `db:"longitude"`
	Asn           *int64   `db:"asn"`
	AsOrg         *string  `db:"as_org"`
	Description   *string  `db:"description"`
	ReverseDNS    *string  `db:"reverse_dns"`
}

var IpAddrs = Table[IpAddr]{Family: FamilyIpAddr, Name: "ipaddrs", Scopable: true}

func (n NewIpAddr) Key() string    { return n.Value }
func (n NewIpAddr) family() Family { return FamilyIpAddr }

func (n NewIpAddr) prepare() (Insert, error) {
	addr, err := parseAddr(n.Value)
	if err != nil {
		return nil, err
	}
	n.Value = addr.String()
	n.Family = addrFamily(addr)
	return n, nil
}

func (n NewIpAddr) autoscope(r *Rules) bool {
	addr, err := netip.ParseAddr(n.Value)
	if err != nil {
		return true
	}
	return r.IP(addr)
}

func (u IpAddrUpdate) family() Family { return FamilyIpAddr }
func (u IpAddrUpdate) ident() int64   { return u.ID }

type URL struct {
	Entity
	SubdomainID int64   `db:"subdomain_id"`
	Path        string  `db:"path"`
	Status      *int64  `db:"status"`
	Body        *string `db:"body"`
	Online      *bool   `db:"online"`
	Title       *string `db:"title"`
	Redirect    *string `db:"redirect"`
}

type NewURL struct {
	SubdomainID int64   `db:"subdomain_id" changeset:"-"`
	Value       string  `db:"value"`
	Path        string  `db:"path" changeset:"-"`
	Status      *int64  `db:"status"`
	Body        *string `db:"body"`
	Online      *bool   `db:"online"`
	Title       *string `db:"title"`
	Redirect    *string `db:"redirect"`
	Unscoped    bool    `db:"unscoped"`
}

type URLUpdate struct {
	ID       int64   `db:"id"`
	Status   *int64  `db:"status"`
	Body     *string `db:"body"`
	Online   *bool   `db:"online"`
	Title    *string `db:"title"`
	Redirect *string `db:"redirect"`
}

var URLs = Table[URL]{Family: FamilyURL, Name: "urls", Scopable: true}

func (n NewURL) Key() string    { return n.Value }
func (n NewURL) family() Family { return FamilyURL }

func (n NewURL) prepare() (Insert, error) {
	u, err := url.Parse(n.Value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, invalid("url %q must be absolute", n.Value)
	}
	if n.Path == "" {
		n.Path = u.EscapedPath()
		if n.Path == "" {
			n.Path = "/"
		}
	}
	return n, nil
}

func (n NewURL) autoscope(r *Rules) bool { return r.URL(n.Value) }

func (u URLUpdate) family() Family { return FamilyURL }
func (u URLUpdate) ident() int64   { return u.ID }

type Port struct {
	Entity
	IpAddrID int64   `db:"ip_addr_id"`
	IpAddr   string  `db:"ip_addr"`
	Port     int64   `db:"port"`
	Protocol string  `db:"protocol"`
	Status   *string `db:"status"`
	Banner   *string `db:"banner"`
	Service  *string `db:"service"`
	Version  *string `db:"version"`
}

// NewPort leaves Value empty; it is derived from protocol, address and port.
type NewPort struct {
	IpAddrID int64   `db:"ip_addr_id" changeset:"-"`
	Value    string  `db:"value"`
	IpAddr   string  `db:"ip_addr" changeset:"-"`
	Port     int64   `db:"port" changeset:"-"`
	Protocol string  `db:"protocol" changeset:"-"`
	Status   *string `db:"status"`
	Banner   *string `db:"banner"`
	Service  *string `db:"service"`
	Version  *string `db:"version"`
	Unscoped bool    `db:"unscoped"`
}

type PortUpdate struct {
	ID      int64   `db:"id"`
	Status  *string `db:"status"`
	Banner  *string `db:"banner"`
	Service *string `db:"service"`
	Version *string `db:"version"`
}

var Ports = Table[Port]{Family: FamilyPort, Name: "ports", Param: "protocol", Scopable: true}

func (n NewPort) Key() string {
	if n.Value != "" {
		return n.Value
	}
	addr, err := netip.ParseAddr(n.IpAddr)
	if err != nil {
		return n.Protocol + "/" + n.IpAddr
	}
	return PortValue(n.Protocol, addr.Unmap(), n.Port)
}

func (n NewPort) family() Family { return FamilyPort }

func (n NewPort) prepare() (Insert, error) {
	addr, err := parseAddr(n.IpAddr)
	if err != nil {
		return nil, err
	}
	if n.Port < 1 || n.Port > 65535 {
		return nil, invalid("port %d out of range", n.Port)
	}
	n.Protocol = strings.ToLower(n.Protocol)
	if n.Protocol == "" {
		return nil, invalid("port protocol is empty")
	}
	n.IpAddr = addr.String()
	n.Value = PortValue(n.Protocol, addr, n.Port)
	return n, nil
}

func (n NewPort) autoscope(r *Rules) bool {
	addr, err := netip.ParseAddr(n.IpAddr)
	if err != nil {
		return true
	}
	return r.IP(addr)
}

func (u PortUpdate) family() Family { return FamilyPort }
func (u PortUpdate) ident() int64   { return u.ID }

type Netblock struct {
	Entity
	Family      string  `db:"family"`
	Asn         *int64  `db:"asn"`
	AsOrg       *string `db:"as_org"`
	Description *string `db:"description"`
}

type NewNetblock struct {
	Family      string  `db:"family" changeset:"-"`
	Value       string  `db:"value"`
	Asn         *int64  `db:"asn"`
	AsOrg       *string `db:"as_org"`
	Description *string `db:"description"`
	Unscoped    bool    `db:"unscoped"`
}

type NetblockUpdate struct {
	ID          int64   `db:"id"`
	Asn         *int64  `db:"asn"`
	AsOrg       *string `db:"as_org"`
	Description *string `db:"description"`
}

var Netblocks = Table[Netblock]{Family: FamilyNetblock, Name: "netblocks", Scopable: true}

func (n NewNetblock) Key() string    { return n.Value }
func (n NewNetblock) family() Family { return FamilyNetblock }

func (n NewNetblock) prepare() (Insert, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(n.Value))
	if err != nil {
		return nil, invalid("netblock %q: %v", n.Value, err)
	}
	prefix = prefix.Masked()
	n.Value = prefix.String()
	n.Family = addrFamily(prefix.Addr())
	return n, nil
}

func (n NewNetblock) autoscope(r *Rules) bool {
	prefix, err := netip.ParsePrefix(n.Value)
	if err != nil {
		return true
	}
	return r.Netblock(prefix)
}

func (u NetblockUpdate) family() Family { return FamilyNetblock }
func (u NetblockUpdate) ident() int64   { return u.ID }
