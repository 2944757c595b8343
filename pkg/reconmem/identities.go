package reconmem

import (
	"strings"
)

type Email struct {
	Entity
	Displayname *string `db:"displayname"`
	Valid       *bool   `db:"valid"`
}

type NewEmail struct {
	Value       string  `db:"value"`
	Displayname *string `db:"displayname"`
	Valid       *bool   `db:"valid"`
	Unscoped    bool    `db:"unscoped"`
}

type EmailUpdate struct {
	ID          int64   `db:"id"`
	Displayname *string `db:"displayname"`
	Valid       *bool   `db:"valid"`
}

var Emails = Table[Email]{Family: FamilyEmail, Name: "emails", Scopable: true}

func (n NewEmail) Key() string    { return n.Value }
func (n NewEmail) family() Family { return FamilyEmail }

func (n NewEmail) prepare() (Insert, error) {
	n.Value = strings.TrimSpace(n.Value)
	at := strings.LastIndexByte(n.Value, '@')
	if at <= 0 || at == len(n.Value)-1 {
		return nil, invalid("email %q has no domain", n.Value)
	}
	return n, nil
}

func (n NewEmail) autoscope(r *Rules) bool {
	at := strings.LastIndexByte(n.Value, '@')
	if at < 0 {
		return true
	}
	return r.Domain(n.Value[at+1:])
}

func (u EmailUpdate) family() Family { return FamilyEmail }
func (u EmailUpdate) ident() int64   { return u.ID }

type PhoneNumber struct {
	Entity
	Name       *string `db:"name"`
	Valid      *bool   `db:"valid"`
	LastOnline *Time   `db:"last_online"`
	Country    *string `db:"country"`
	Carrier    *string `db:"carrier"`
	Line       *string `db:"line"`
	IsPorted   *bool   `db:"is_ported"`
	LastPort   *Time   `db:"last_port"`
	CallerName *string `db:"caller_name"`
	CallerType *string `db:"caller_type"`
}

type NewPhoneNumber struct {
	Value      string  `db:"value"`
	Name       *string `db:"name"`
	Valid      *bool   `db:"valid"`
	LastOnline *Time   `db:"last_online" changeset:"max"`
	Country    *string `db:"country"`
	Carrier    *string `db:"carrier"`
	Line       *string `db:"line"`
	IsPorted   *bool   `db:"is_ported"`
	LastPort   *Time   `db:"last_port" changeset:"max"`
	CallerName *string `db:"caller_name"`
	CallerType *string `db:"caller_type"`
	Unscoped   bool    `db:"unscoped"`
}

type PhoneNumberUpdate struct {
	ID         int64   `db:"id"`
	Name       *string `db:"name"`
	Valid      *bool   `db:"valid"`
	LastOnline *Time   `db:"last_online" changeset:"max"`
	Country    *string `db:"country"`
	Carrier    *string `db:"carrier"`
	Line       *string `db:"line"`
	IsPorted   *bool   `db:"is_ported"`
	LastPort   *Time   `db:"last_port" changeset:"max"`
	CallerName *string `db:"caller_name"`
	CallerType *string `db:"caller_type"`
}

var PhoneNumbers = Table[PhoneNumber]{Family: FamilyPhoneNumber, Name: "phonenumbers", Scopable: true}

func (n NewPhoneNumber) Key() string    { return n.Value }
func (n NewPhoneNumber) family() Family { return FamilyPhoneNumber }

func (n NewPhoneNumber) prepare() (Insert, error) {
	return n, validPhoneNumber(n.Value)
}

func (u PhoneNumberUpdate) family() Family { return FamilyPhoneNumber }
func (u PhoneNumberUpdate) ident() int64   { return u.ID }

type Account struct {
	Entity
	Service     string  `db:"service"`
	Username    string  `db:"username"`
	Displayname *string `db:"displayname"`
	Email       *string `db:"email"`
	URL         *string `db:"url"`
	LastSeen    *Time   `db:"last_seen"`
	Phonenumber *string `db:"phonenumber"`
	ProfilePic  *string `db:"profile_pic"`
	Birthday    *string `db:"birthday"`
}

// NewAccount leaves Value empty; it is derived as service:username.
type NewAccount struct {
	Value       string  `db:"value"`
	Service     string  `db:"service" changeset:"-"`
	Username    string  `db:"username" changeset:"-"`
	Displayname *string `db:"displayname"`
	Email       *string `db:"email"`
	URL         *string `db:"url"`
	LastSeen    *Time   `db:"last_seen" changeset:"max"`
	Phonenumber *string `db:"phonenumber"`
	ProfilePic  *string `db:"profile_pic"`
	Birthday    *string `db:"birthday"`
	Unscoped    bool    `db:"unscoped"`
}

type AccountUpdate struct {
	ID          int64   `db:"id"`
	Displayname *string `db:"displayname"`
	Email       *string `db:"email"`
	URL         *string `db:"url"`
	LastSeen    *Time   `db:"last_seen" changeset:"max"`
	Phonenumber *string `db:"phonenumber"`
	ProfilePic  *string `db:"profile_pic"`
	Birthday    *string `db:"birthday"`
}

var Accounts = Table[Account]{Family: FamilyAccount, Name: "accounts", Param: "service", Scopable: true}

func (n NewAccount) Key() string    { return AccountValue(n.Service, n.Username) }
func (n NewAccount) family() Family { return FamilyAccount }

func (n NewAccount) prepare() (Insert, error) {
	if err := validAccount(n.Service, n.Username); err != nil {
		return nil, err
	}
	n.Value = n.Key()
	return n, nil
}

func (u AccountUpdate) family() Family { return FamilyAccount }
func (u AccountUpdate) ident() int64   { return u.ID }

type Breach struct {
	Entity
}

type NewBreach struct {
	Value    string `db:"value"`
	Unscoped bool   `db:"unscoped"`
}

var Breaches = Table[Breach]{Family: FamilyBreach, Name: "breaches", Scopable: true}

func (n NewBreach) Key() string    { return n.Value }
func (n NewBreach) family() Family { return FamilyBreach }

func (n NewBreach) prepare() (Insert, error) {
	return n, requireValue(FamilyBreach, n.Value)
}
