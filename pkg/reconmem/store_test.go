package reconmem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	require.NoError(t, err, "failed to open store")
	t.Cleanup(func() { store.Close() })
	return store
}

func mustInsert(t *testing.T, s *Store, obj Insert) Result {
	t.Helper()

	res, err := s.Insert(obj)
	require.NoError(t, err)
	return res
}

func TestOpenAndClose(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestInsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	first := mustInsert(t, s, NewDomain{Value: "example.com"})
	assert.Equal(t, Inserted, first.Outcome)
	assert.NotZero(t, first.ID)

	second := mustInsert(t, s, NewDomain{Value: "example.com"})
	assert.Equal(t, Unchanged, second.Outcome)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, ActionNone, second.Action())

	rows, err := Domains.List(s.DB())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestInsertNormalizesValue(t *testing.T) {
	s := openTestStore(t)

	mustInsert(t, s, NewDomain{Value: " Example.COM "})
	d, err := Domains.Get(s.DB(), "example.com")
	require.NoError(t, err)
	assert.True(t, d.Scoped())

	ip := mustInsert(t, s, NewIpAddr{Value: "::ffff:192.0.2.1"})
	row, err := IpAddrs.ByID(s.DB(), ip.ID)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", row.Value)
	assert.Equal(t, "4", row.Family)
}

func TestInsertUpdatesChangedFields(t *testing.T) {
	s := openTestStore(t)

	mustInsert(t, s, NewEmail{Value: "alice@example.com"})
	res := mustInsert(t, s, NewEmail{Value: "alice@example.com", Displayname: strRef("Alice")})
	require.Equal(t, Updated, res.Outcome)
	assert.Equal(t, "update: displayname=Alice", res.String())

	e, err := Emails.Get(s.DB(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, e.Displayname)
	assert.Equal(t, "Alice", *e.Displayname)

	res = mustInsert(t, s, NewEmail{Value: "alice@example.com", Displayname: strRef("Alice")})
	assert.Equal(t, Unchanged, res.Outcome)
}

func TestLastSeenIsMonotonic(t *testing.T) {
	s := openTestStore(t)

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	mustInsert(t, s, NewDevice{Value: "aa:bb:cc:dd:ee:ff", LastSeen: TimeRef(t1)})

	res := mustInsert(t, s, NewDevice{Value: "aa:bb:cc:dd:ee:ff", LastSeen: TimeRef(t0)})
	assert.Equal(t, Unchanged, res.Outcome)

	d, err := Devices.Get(s.DB(), "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	require.NotNil(t, d.LastSeen)
	assert.True(t, d.LastSeen.Equal(t1))

	res = mustInsert(t, s, NewDevice{Value: "aa:bb:cc:dd:ee:ff", LastSeen: TimeRef(t2)})
	assert.Equal(t, Updated, res.Outcome)

	d, err = Devices.Get(s.DB(), "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.True(t, d.LastSeen.Equal(t2))
}

func TestOutOfScopeRowsAreFrozen(t *testing.T) {
	s := openTestStore(t)

	res := mustInsert(t, s, subdomainCandidate(t, s, "example.com", "www.example.com"))
	require.Equal(t, Inserted, res.Outcome)

	f, err := ParseFilter([]string{"where", "value=www.example.com"})
	require.NoError(t, err)
	n, err := s.NoscopeFamily(FamilySubdomain, f)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	res = mustInsert(t, s, NewSubdomain{DomainID: 1, Value: "www.example.com", Resolvable: boolRef(true)})
	assert.Equal(t, Skipped, res.Outcome)
	assert.Equal(t, ActionNone, res.Action())

	row, err := Subdomains.Get(s.DB(), "www.example.com")
	require.NoError(t, err)
	assert.Nil(t, row.Resolvable)
	assert.False(t, row.Scoped())

	n, err = s.ScopeFamily(FamilySubdomain, MatchAll())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	res = mustInsert(t, s, NewSubdomain{DomainID: 1, Value: "www.example.com", Resolvable: boolRef(true)})
	assert.Equal(t, Updated, res.Outcome)
}

// subdomainCandidate inserts the parent domain and returns a candidate subdomain.
func subdomainCandidate(t *testing.T, s *Store, domain, subdomain string) NewSubdomain {
	t.Helper()

	d := mustInsert(t, s, NewDomain{Value: domain})
	return NewSubdomain{DomainID: d.ID, Value: subdomain}
}

func TestAutoscopeOnInsert(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddRule(Rule{Kind: RuleDomain, Value: "example.com", Scoped: false}))
	require.NoError(t, s.AddRule(Rule{Kind: RuleIP, Value: "192.0.2.0/24", Scoped: false}))

	mustInsert(t, s, NewDomain{Value: "example.com"})
	mustInsert(t, s, NewDomain{Value: "example.org"})
	mustInsert(t, s, NewEmail{Value: "bob@mail.example.com"})
	mustInsert(t, s, NewIpAddr{Value: "192.0.2.10"})

	d, err := Domains.Get(s.DB(), "example.com")
	require.NoError(t, err)
	assert.False(t, d.Scoped())

	d, err = Domains.Get(s.DB(), "example.org")
	require.NoError(t, err)
	assert.True(t, d.Scoped())

	e, err := Emails.Get(s.DB(), "bob@mail.example.com")
	require.NoError(t, err)
	assert.False(t, e.Scoped())

	ip, err := IpAddrs.Get(s.DB(), "192.0.2.10")
	require.NoError(t, err)
	assert.False(t, ip.Scoped())

	scoped, err := Domains.Filter(s.DB(), MatchAll().AndScoped())
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "example.org", scoped[0].Value)
}

func TestRulesPersistAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/reconmem.db"

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AddRule(Rule{Kind: RuleDomain, Value: "example.com", Scoped: false}))
	require.NoError(t, s.AddRule(Rule{Kind: RuleDomain, Value: "example.com", Scoped: true}))
	require.NoError(t, s.AddRule(Rule{Kind: RuleURL, Value: "https://example.net/x", Scoped: false}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	rules, err := s.ListRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.True(t, rules[0].Scoped)
	assert.True(t, s.Rules().Domain("example.com"))
	assert.False(t, s.Rules().URL("https://example.net/x/y"))

	existed, err := s.DeleteRule(RuleURL, "https://example.net/x")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.True(t, s.Rules().URL("https://example.net/x/y"))

	existed, err = s.DeleteRule(RuleURL, "https://example.net/x")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestValidationRejectsBeforeWrite(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name string
		obj  Insert
	}{
		{"phone without plus", NewPhoneNumber{Value: "12345"}},
		{"phone with letters", NewPhoneNumber{Value: "+12ab"}},
		{"service with colon", NewAccount{Service: "a:b", Username: "x"}},
		{"bad ip", NewIpAddr{Value: "300.1.1.1"}},
		{"bad netblock", NewNetblock{Value: "10.0.0.0/40"}},
		{"port out of range", NewPort{IpAddr: "192.0.2.1", Port: 70000, Protocol: "tcp"}},
		{"empty domain", NewDomain{Value: " "}},
		{"relative url", NewURL{SubdomainID: 1, Value: "/index.html"}},
		{"email without domain", NewEmail{Value: "alice"}},
		{"image not a digest", NewImage{Value: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Insert(tt.obj)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}

	rows, err := PhoneNumbers.List(s.DB())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAccountKeyAndParam(t *testing.T) {
	s := openTestStore(t)

	mustInsert(t, s, NewAccount{Service: "github.com", Username: "alice"})
	mustInsert(t, s, NewAccount{Service: "gitlab.com", Username: "alice", LastSeen: TimeRef(time.Now())})

	a, err := Accounts.Get(s.DB(), "github.com:alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)

	service := "gitlab.com"
	rows, err := Accounts.FilterWithParam(s.DB(), MatchAll(), &service)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "gitlab.com:alice", rows[0].Value)

	rows, err = Accounts.FilterWithParam(s.DB(), MatchAll(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPortValue(t *testing.T) {
	s := openTestStore(t)

	ip := mustInsert(t, s, NewIpAddr{Value: "2001:db8::1"})
	res := mustInsert(t, s, NewPort{IpAddrID: ip.ID, IpAddr: "2001:db8::1", Port: 443, Protocol: "TCP"})
	require.Equal(t, Inserted, res.Outcome)

	p, err := Ports.ByID(s.DB(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "tcp/[2001:db8::1]:443", p.Value)

	res = mustInsert(t, s, NewPort{IpAddrID: ip.ID, IpAddr: "2001:db8::1", Port: 443, Protocol: "tcp", Service: strRef("https")})
	assert.Equal(t, Updated, res.Outcome)
}

func TestLookups(t *testing.T) {
	s := openTestStore(t)

	_, err := Domains.Get(s.DB(), "missing.example")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Domains.ByID(s.DB(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	row, err := Domains.GetOpt(s.DB(), "missing.example")
	require.NoError(t, err)
	assert.Nil(t, row)

	res := mustInsert(t, s, NewBreach{Value: "megaleak"})
	id, err := s.LookupID(FamilyBreach, "megaleak")
	require.NoError(t, err)
	assert.Equal(t, res.ID, id)

	_, err = s.LookupID(FamilySubdomainIpAddr, "1")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = s.LookupID(Family("nope"), "x")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = s.ScopeFamily(FamilyNetworkDevice, MatchAll())
	assert.ErrorIs(t, err, ErrNotScopable)
}

func TestSelectAndDeleteByFamily(t *testing.T) {
	s := openTestStore(t)

	mustInsert(t, s, NewCryptoAddr{Value: "bc1qexample"})
	mustInsert(t, s, NewCryptoAddr{Value: "1Example"})

	f, err := ParseFilter([]string{"where", "value", "like", "bc1%"})
	require.NoError(t, err)

	rows, err := s.Select(FamilyCryptoAddr, f)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bc1qexample", rows[0].(CryptoAddr).Value)

	n, err := s.DeleteFamily(FamilyCryptoAddr, f)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	id, err := s.LookupID(FamilyCryptoAddr, "1Example")
	require.NoError(t, err)
	n, err = s.DeleteID(FamilyCryptoAddr, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err = s.Select(FamilyCryptoAddr, MatchAll())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExplicitUpdate(t *testing.T) {
	s := openTestStore(t)

	t1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	res := mustInsert(t, s, NewPhoneNumber{Value: "+15550100", LastOnline: TimeRef(t1)})

	up, err := s.Update(PhoneNumberUpdate{ID: res.ID, LastOnline: TimeRef(t1.Add(-time.Hour)), Carrier: strRef("acme")})
	require.NoError(t, err)
	require.Equal(t, Updated, up.Outcome)
	require.Len(t, up.Changes, 1)
	assert.Equal(t, "carrier", up.Changes[0].Column)

	up, err = s.Update(PhoneNumberUpdate{ID: res.ID, Carrier: strRef("acme")})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, up.Outcome)

	_, err = s.Update(PhoneNumberUpdate{ID: 999, Carrier: strRef("acme")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("ipaddrs")
	require.NoError(t, err)
	assert.Equal(t, FamilyIpAddr, f)

	f, err = ParseFamily("Breach-Email")
	require.NoError(t, err)
	assert.Equal(t, FamilyBreachEmail, f)
	assert.Equal(t, "breach_emails", f.Table())

	_, err = ParseFamily("hosts")
	assert.ErrorIs(t, err, ErrInvalidValue)

	for _, f := range Families() {
		back, ok := FamilyForTable(f.Table())
		assert.True(t, ok, f)
		assert.Equal(t, f, back)
	}
}
