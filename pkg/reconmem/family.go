package reconmem

import (
	"fmt"
	"strings"
)

// Family names an entity type. Families are what users type on the command
// line; tables are what the database calls them.
type Family string

const (
	FamilyDomain          Family = "domain"
	FamilySubdomain       Family = "subdomain"
	FamilyIpAddr          Family = "ipaddr"
	FamilyURL             Family = "url"
	FamilyEmail           Family = "email"
	FamilyPhoneNumber     Family = "phonenumber"
	FamilyDevice          Family = "device"
	FamilyNetwork         Family = "network"
	FamilyAccount         Family = "account"
	FamilyBreach          Family = "breach"
	FamilyImage           Family = "image"
	FamilyPort            Family = "port"
	FamilyNetblock        Family = "netblock"
	FamilyCryptoAddr      Family = "cryptoaddr"
	FamilySubdomainIpAddr Family = "subdomain-ipaddr"
	FamilyNetworkDevice   Family = "network-device"
	FamilyBreachEmail     Family = "breach-email"
)

// Families lists every family in a stable order.
func Families() []Family {
	return []Family{
		FamilyDomain, FamilySubdomain, FamilyIpAddr, FamilyURL, FamilyEmail,
		FamilyPhoneNumber, FamilyDevice, FamilyNetwork, FamilyAccount, FamilyBreach,
		FamilyImage, FamilyPort, FamilyNetblock, FamilyCryptoAddr,
		FamilySubdomainIpAddr, FamilyNetworkDevice, FamilyBreachEmail,
	}
}

// ParseFamily accepts a family name or its table name.
func ParseFamily(s string) (Family, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := registry[Family(s)]; ok {
		return Family(s), nil
	}
	if f, ok := FamilyForTable(s); ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown family %q", ErrInvalidValue, s)
}

// Table returns the table backing the family.
func (f Family) Table() string {
	if t, ok := registry[f]; ok {
		return t.tableName()
	}
	return ""
}

// FamilyForTable is the inverse of Family.Table.
func FamilyForTable(name string) (Family, bool) {
	for f, t := range registry {
		if t.tableName() == name {
			return f, true
		}
	}
	return "", false
}

func (f Family) String() string {
	return string(f)
}
