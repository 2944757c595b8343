package main

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/bowerhall/reconmem/pkg/reconmem"
)

// buildInsert turns a command line value into an insert request. Families
// that hang off a parent row resolve the parent by its natural key, so the
// parent has to be added first.
func buildInsert(store *reconmem.Store, family reconmem.Family, value string) (reconmem.Insert, error) {
	switch family {
	case reconmem.FamilyDomain:
		return reconmem.NewDomain{Value: value}, nil
	case reconmem.FamilySubdomain:
		domainID, err := parentDomain(store, value)
		if err != nil {
			return nil, err
		}
		return reconmem.NewSubdomain{DomainID: domainID, Value: value}, nil
	case reconmem.FamilyIpAddr:
		return reconmem.NewIpAddr{Value: value}, nil
	case reconmem.FamilyURL:
		u, err := url.Parse(value)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: url %q must be absolute", reconmem.ErrInvalidValue, value)
		}
		subdomainID, err := store.LookupID(reconmem.FamilySubdomain, strings.ToLower(u.Hostname()))
		if err != nil {
			return nil, fmt.Errorf("subdomain of %s: %w", value, err)
		}
		return reconmem.NewURL{SubdomainID: subdomainID, Value: value}, nil
	case reconmem.FamilyEmail:
		return reconmem.NewEmail{Value: value}, nil
	case reconmem.FamilyPhoneNumber:
		return reconmem.NewPhoneNumber{Value: value}, nil
	case reconmem.FamilyDevice:
		return reconmem.NewDevice{Value: value}, nil
	case reconmem.FamilyNetwork:
		return reconmem.NewNetwork{Value: value}, nil
	case reconmem.FamilyAccount:
		service, username, ok := strings.Cut(value, ":")
		if !ok {
			return nil, fmt.Errorf("%w: account %q must be service:username", reconmem.ErrInvalidValue, value)
		}
		return reconmem.NewAccount{Service: service, Username: username}, nil
	case reconmem.FamilyBreach:
		return reconmem.NewBreach{Value: value}, nil
	case reconmem.FamilyNetblock:
		return reconmem.NewNetblock{Value: value}, nil
	case reconmem.FamilyCryptoAddr:
		return reconmem.NewCryptoAddr{Value: value}, nil
	case reconmem.FamilyPort:
		return buildPort(store, value)
	default:
		return nil, fmt.Errorf("%w: add %s from the command line", reconmem.ErrUnsupported, family)
	}
}

// parentDomain finds the closest stored domain that value is a subdomain of.
func parentDomain(store *reconmem.Store, value string) (int64, error) {
	name := strings.Trim(strings.ToLower(value), ".")
	for candidate := name; candidate != ""; {
		id, err := store.LookupID(reconmem.FamilyDomain, candidate)
		if err == nil {
			return id, nil
		}

		_, rest, ok := strings.Cut(candidate, ".")
		if !ok {
			break
		}
		candidate = rest
	}
	return 0, fmt.Errorf("%w: no stored domain is a parent of %q", reconmem.ErrNotFound, value)
}

// buildPort parses protocol/host:port, e.g. tcp/192.0.2.1:22 or udp/[2001:db8::1]:53.
func buildPort(store *reconmem.Store, value string) (reconmem.Insert, error) {
	protocol, hostport, ok := strings.Cut(value, "/")
	if !ok {
		return nil, fmt.Errorf("%w: port %q must be protocol/ip:port", reconmem.ErrInvalidValue, value)
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("%w: port %q: %v", reconmem.ErrInvalidValue, value, err)
	}
	port, err := strconv.ParseInt(portStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: port %q: %v", reconmem.ErrInvalidValue, value, err)
	}

	ipID, err := store.LookupID(reconmem.FamilyIpAddr, host)
	if err != nil {
		return nil, fmt.Errorf("ip address of %s: %w", value, err)
	}

	return reconmem.NewPort{IpAddrID: ipID, IpAddr: host, Port: port, Protocol: protocol}, nil
}
