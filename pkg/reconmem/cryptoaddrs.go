package reconmem

type CryptoAddr struct {
	Entity
	Currency       *string `db:"currency"`
	Denominator    *int64  `db:"denominator"`
	Balance        *int64  `db:"balance"`
	Received       *int64  `db:"received"`
	FirstSeen      *Time   `db:"first_seen"`
	LastWithdrawal *Time   `db:"last_withdrawal"`
}

type NewCryptoAddr struct {
	Value          string  `db:"value"`
	Currency       *string `db:"currency"`
	Denominator    *int64  `db:"denominator"`
	Balance        *int64  `db:"balance"`
	Received       *int64  `db:"received"`
	FirstSeen      *Time   `db:"first_seen" changeset:"min"`
	LastWithdrawal *Time   `db:"last_withdrawal" changeset:"max"`
	Unscoped       bool    `db:"unscoped"`
}

type CryptoAddrUpdate struct {
	ID             int64   `db:"id"`
	Currency       *string `db:"currency"`
	Denominator    *int64  `db:"denominator"`
	Balance        *int64  `db:"balance"`
	Received       *int64  `db:"received"`
	FirstSeen      *Time   `db:"first_seen" changeset:"min"`
	LastWithdrawal *Time   `db:"last_withdrawal" changeset:"max"`
}

var CryptoAddrs = Table[CryptoAddr]{Family: FamilyCryptoAddr, Name: "cryptoaddrs", Scopable: true}

func (n NewCryptoAddr) Key() string    { return n.Value }
func (n NewCryptoAddr) family() Family { return FamilyCryptoAddr }

func (n NewCryptoAddr) prepare() (Insert, error) {
	if err := requireValue(FamilyCryptoAddr, n.Value); err != nil {
		return nil, err
	}
	return n, validDenominator(n.Denominator)
}

func (u CryptoAddrUpdate) family() Family { return FamilyCryptoAddr }
func (u CryptoAddrUpdate) ident() int64   { return u.ID }

func (u CryptoAddrUpdate) validate() error {
	return validDenominator(u.Denominator)
}

func validDenominator(d *int64) error {
	if d != nil && (*d < 0 || *d > MaxDenominator) {
		return invalid("denominator %d must be between 0 and %d", *d, MaxDenominator)
	}
	return nil
}

// DisplayBalance formats the balance in whole currency units.
func (c CryptoAddr) DisplayBalance() string {
	return c.display(c.Balance)
}

// DisplayReceived formats the total received in whole currency units.
func (c CryptoAddr) DisplayReceived() string {
	return c.display(c.Received)
}

func (c CryptoAddr) display(v *int64) string {
	if v == nil || *v < 0 {
		return ""
	}
	var denominator uint32
	if c.Denominator != nil {
		if *c.Denominator < 0 || *c.Denominator > MaxDenominator {
			return ""
		}
		denominator = uint32(*c.Denominator)
	}
	return DisplayCurrency(uint64(*v), denominator)
}
