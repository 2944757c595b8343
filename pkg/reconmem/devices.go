package reconmem

type Device struct {
	Entity
	Name     *string `db:"name"`
	Hostname *string `db:"hostname"`
	Vendor   *string `db:"vendor"`
	LastSeen *Time   `db:"last_seen"`
}

type NewDevice struct {
	Value    string  `db:"value"`
	Name     *string `db:"name"`
	Hostname *string `db:"hostname"`
	Vendor   *string `db:"vendor"`
	LastSeen *Time   `db:"last_seen" changeset:"max"`
	Unscoped bool    `db:"unscoped"`
}

type DeviceUpdate struct {
	ID       int64   `db:"id"`
	Name     *string `db:"name"`
	Hostname *string `db:"hostname"`
	Vendor   *string `db:"vendor"`
	LastSeen *Time   `db:"last_seen" changeset:"max"`
}

var Devices = Table[Device]{Family: FamilyDevice, Name: "devices", Scopable: true}

func (n NewDevice) Key() string    { return n.Value }
func (n NewDevice) family() Family { return FamilyDevice }

func (n NewDevice) prepare() (Insert, error) {
	return n, requireValue(FamilyDevice, n.Value)
}

func (u DeviceUpdate) family() Family { return FamilyDevice }
func (u DeviceUpdate) ident() int64   { return u.ID }

type Network struct {
	Entity
	Latitude    *float64 `db:"latitude"`
	Longitude   *float64 `db:"longitude"`
	Description *string  `db:"description"`
}

type NewNetwork struct {
	Value       string   `db:"value"`
	Latitude    *float64 `db:"latitude"`
	Longitude   *float64 `db:"longitude"`
	Description *string  `db:"description"`
	Unscoped    bool     `db:"unscoped"`
}

type NetworkUpdate struct {
	ID          int64    `db:"id"`
	Latitude    *float64 `db:"latitude"`
	Longitude   *float64 `db:"longitude"`
	Description *string  `db:"description"`
}

var Networks = Table[Network]{Family: FamilyNetwork, Name: "networks", Scopable: true}

func (n NewNetwork) Key() string    { return n.Value }
func (n NewNetwork) family() Family { return FamilyNetwork }

func (n NewNetwork) prepare() (Insert, error) {
	return n, requireValue(FamilyNetwork, n.Value)
}

func (u NetworkUpdate) family() Family { return FamilyNetwork }
func (u NetworkUpdate) ident() int64   { return u.ID }
