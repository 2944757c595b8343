package reconmem

// Join rows have a composite natural key and no scope of their own.

type SubdomainIpAddr struct {
	ID          int64 `db:"id"`
	SubdomainID int64 `db:"subdomain_id"`
	IpAddrID    int64 `db:"ip_addr_id"`
}

type NewSubdomainIpAddr struct {
	SubdomainID int64 `db:"subdomain_id"`
	IpAddrID    int64 `db:"ip_addr_id"`
}

var SubdomainIpAddrs = Table[SubdomainIpAddr]{Family: FamilySubdomainIpAddr, Name: "subdomain_ipaddrs", Keyless: true}

func (r SubdomainIpAddr) Ident() int64 { return r.ID }

func (n NewSubdomainIpAddr) family() Family { return FamilySubdomainIpAddr }

// GetSubdomainIpAddr looks up the link by its composite key.
func GetSubdomainIpAddr(q Queryer, subdomainID, ipAddrID int64) (*SubdomainIpAddr, error) {
	return SubdomainIpAddrs.getBy(q, "subdomain_id = ? AND ip_addr_id = ?", subdomainID, ipAddrID)
}

func (n NewSubdomainIpAddr) insert(q Queryer) (Result, error) {
	return insertLink(q, SubdomainIpAddrs, n, "subdomain_id = ? AND ip_addr_id = ?", n.SubdomainID, n.IpAddrID)
}

type NetworkDevice struct {
	ID        int64   `db:"id"`
	NetworkID int64   `db:"network_id"`
	DeviceID  int64   `db:"device_id"`
	IpAddr    *string `db:"ipaddr"`
	LastSeen  *Time   `db:"last_seen"`
}

type NewNetworkDevice struct {
	NetworkID int64   `db:"network_id"`
	DeviceID  int64   `db:"device_id"`
	IpAddr    *string `db:"ipaddr"`
	LastSeen  *Time   `db:"last_seen"`
}

var NetworkDevices = Table[NetworkDevice]{Family: FamilyNetworkDevice, Name: "network_devices", Keyless: true}

func (r NetworkDevice) Ident() int64 { return r.ID }

func (n NewNetworkDevice) family() Family { return FamilyNetworkDevice }

// GetNetworkDevice looks up the link by its composite key.
func GetNetworkDevice(q Queryer, networkID, deviceID int64) (*NetworkDevice, error) {
	return NetworkDevices.getBy(q, "network_id = ? AND device_id = ?", networkID, deviceID)
}

func (n NewNetworkDevice) insert(q Queryer) (Result, error) {
	return insertLink(q, NetworkDevices, n, "network_id = ? AND device_id = ?", n.NetworkID, n.DeviceID)
}

// BreachEmail links an email to a breach, optionally with the leaked password.
type BreachEmail struct {
	ID       int64   `db:"id"`
	BreachID int64   `db:"breach_id"`
	EmailID  int64   `db:"email_id"`
	Password *string `db:"password"`
}

type NewBreachEmail struct {
	BreachID int64   `db:"breach_id" changeset:"-"`
	EmailID  int64   `db:"email_id" changeset:"-"`
	Password *string `db:"password"`
}

type BreachEmailUpdate struct {
	ID       int64   `db:"id"`
	Password *string `db:"password"`
}

var BreachEmails = Table[BreachEmail]{Family: FamilyBreachEmail, Name: "breach_emails", Keyless: true}

func (r BreachEmail) Ident() int64 { return r.ID }

func (n NewBreachEmail) family() Family { return FamilyBreachEmail }

func (u BreachEmailUpdate) family() Family { return FamilyBreachEmail }
func (u BreachEmailUpdate) ident() int64   { return u.ID }

// GetBreachEmail finds the row a candidate belongs to. A candidate with a
// password also matches a row that has no password yet, so the bare pairing
// gets enriched instead of duplicated. An exact password match is preferred.
// A candidate without a password matches any row of the pairing.
func GetBreachEmail(q Queryer, breachID, emailID int64, password *string) (*BreachEmail, error) {
	if password == nil {
		return BreachEmails.getBy(q, "breach_id = ? AND email_id = ? ORDER BY password IS NOT NULL", breachID, emailID)
	}
	return BreachEmails.getBy(q,
		"breach_id = ? AND email_id = ? AND (password = ? OR password IS NULL) ORDER BY password IS NULL",
		breachID, emailID, *password)
}

func (n NewBreachEmail) insert(q Queryer) (Result, error) {
	existing, err := GetBreachEmail(q, n.BreachID, n.EmailID, n.Password)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		id, err := BreachEmails.insert(q, n)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: Inserted, ID: id}, nil
	}
	return applyChanges(q, BreachEmails, existing.ID, diff(n, *existing))
}
