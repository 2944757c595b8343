package reconmem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(s *Store, at time.Time) *time.Time {
	now := at
	s.now = func() time.Time { return now }
	return &now
}

func TestInsertTTLCreatesAndBumps(t *testing.T) {
	s := openTestStore(t)
	now := fixedClock(s, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	res, err := s.InsertTTL(NewDomain{Value: "example.com"}, 60)
	require.NoError(t, err)
	require.Equal(t, Inserted, res.Outcome)

	ttl, err := s.TTLOf(FamilyDomain, res.ID)
	require.NoError(t, err)
	require.NotNil(t, ttl)
	assert.Equal(t, "domains", ttl.Family)
	assert.True(t, ttl.Value.Equal(now.Add(time.Minute)))

	*now = now.Add(30 * time.Second)
	_, err = s.InsertTTL(NewDomain{Value: "example.com"}, 60)
	require.NoError(t, err)

	ttl, err = s.TTLOf(FamilyDomain, res.ID)
	require.NoError(t, err)
	assert.True(t, ttl.Value.Equal(now.Add(time.Minute)))
}

func TestBumpNeverRegresses(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(s, start)

	res := mustInsert(t, s, NewBreach{Value: "megaleak"})
	require.NoError(t, s.CreateTTL(FamilyBreach, res.ID, 3600))

	require.NoError(t, s.BumpTTL(FamilyBreach, res.ID, 60))
	ttl, err := s.TTLOf(FamilyBreach, res.ID)
	require.NoError(t, err)
	assert.True(t, ttl.Value.Equal(start.Add(time.Hour)), "earlier expiry must not win")

	require.NoError(t, s.BumpTTL(FamilyBreach, res.ID, 7200))
	ttl, err = s.TTLOf(FamilyBreach, res.ID)
	require.NoError(t, err)
	assert.True(t, ttl.Value.Equal(start.Add(2*time.Hour)))
}

func TestBumpWithoutTTLDoesNothing(t *testing.T) {
	s := openTestStore(t)

	res := mustInsert(t, s, NewDomain{Value: "example.com"})
	_, err := s.InsertTTL(NewDomain{Value: "example.com"}, 60)
	require.NoError(t, err)

	ttl, err := s.TTLOf(FamilyDomain, res.ID)
	require.NoError(t, err)
	assert.Nil(t, ttl)
}

func TestSkippedInsertGetsNoTTL(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddRule(Rule{Kind: RuleDomain, Value: "example.com", Scoped: false}))
	mustInsert(t, s, NewDomain{Value: "example.com"})

	res, err := s.InsertTTL(NewDomain{Value: "example.com"}, 60)
	require.NoError(t, err)
	assert.Equal(t, Skipped, res.Outcome)

	var n int
	require.NoError(t, s.DB().Get(&n, "SELECT COUNT(*) FROM ttls"))
	assert.Zero(t, n)
}

func TestReapDeletesBothRows(t *testing.T) {
	s := openTestStore(t)
	now := fixedClock(s, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	short, err := s.InsertTTL(NewDomain{Value: "short.example"}, 10)
	require.NoError(t, err)
	long, err := s.InsertTTL(NewDomain{Value: "long.example"}, 3600)
	require.NoError(t, err)

	*now = now.Add(time.Minute)

	expired, err := s.ExpiredTTLs()
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, short.ID, expired[0].Key)

	n, err := s.ReapExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Domains.ByID(s.DB(), short.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	ttl, err := s.TTLOf(FamilyDomain, short.ID)
	require.NoError(t, err)
	assert.Nil(t, ttl)

	_, err = Domains.ByID(s.DB(), long.ID)
	assert.NoError(t, err)
}

func TestReapCorruptTTL(t *testing.T) {
	s := openTestStore(t)
	fixedClock(s, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	_, err := TTLs.insert(s.DB(), TTL{Family: "hosts", Key: 1, Value: At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)

	n, err := s.ReapExpired()
	assert.ErrorIs(t, err, ErrCorruptTTL)
	assert.Zero(t, n)
}

func TestDeletedRowTakesItsTTLAlong(t *testing.T) {
	s := openTestStore(t)
	now := fixedClock(s, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	old, err := s.InsertTTL(NewDomain{Value: "old.example"}, 60)
	require.NoError(t, err)

	f, err := ParseFilter([]string{"where", "value", "=", "old.example"})
	require.NoError(t, err)
	n, err := s.DeleteFamily(FamilyDomain, f)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ttl, err := s.TTLOf(FamilyDomain, old.ID)
	require.NoError(t, err)
	assert.Nil(t, ttl)

	keep := mustInsert(t, s, NewDomain{Value: "keep.example"})
	assert.NotEqual(t, old.ID, keep.ID, "ids are never reused")
	ttl, err = s.TTLOf(FamilyDomain, keep.ID)
	require.NoError(t, err)
	assert.Nil(t, ttl)

	*now = now.Add(2 * time.Minute)

	reaped, err := s.ReapExpired()
	require.NoError(t, err)
	assert.Zero(t, reaped)

	_, err = Domains.Get(s.DB(), "keep.example")
	assert.NoError(t, err)
}

func TestDeleteIDDropsTTL(t *testing.T) {
	s := openTestStore(t)
	fixedClock(s, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	res, err := s.InsertTTL(NewCryptoAddr{Value: "bc1qexample"}, 60)
	require.NoError(t, err)

	_, err = s.DeleteID(FamilyCryptoAddr, res.ID)
	require.NoError(t, err)

	ttls, err := TTLs.List(s.DB())
	require.NoError(t, err)
	assert.Empty(t, ttls)
}

func TestCascadedTTLIsReapedHarmlessly(t *testing.T) {
	s := openTestStore(t)
	now := fixedClock(s, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	sub, err := s.InsertTTL(subdomainCandidate(t, s, "old.example", "www.old.example"), 60)
	require.NoError(t, err)

	// the subdomain goes with its domain, its ttl stays behind
	_, err = s.DeleteFamily(FamilyDomain, MatchAll())
	require.NoError(t, err)

	fresh := mustInsert(t, s, subdomainCandidate(t, s, "new.example", "www.new.example"))
	assert.NotEqual(t, sub.ID, fresh.ID)

	*now = now.Add(2 * time.Minute)

	_, err = s.ReapExpired()
	require.NoError(t, err)

	_, err = Subdomains.ByID(s.DB(), fresh.ID)
	assert.NoError(t, err)
	ttls, err := TTLs.List(s.DB())
	require.NoError(t, err)
	assert.Empty(t, ttls)
}

func TestOnReapReportsFamilyAndKey(t *testing.T) {
	s := openTestStore(t)
	now := fixedClock(s, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	type reaped struct {
		family Family
		key    string
	}
	var got []reaped
	s.OnReap(func(f Family, key string) { got = append(got, reaped{f, key}) })

	digest := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	_, err := s.InsertTTL(NewImage{Value: digest}, 60)
	require.NoError(t, err)

	sub := mustInsert(t, s, subdomainCandidate(t, s, "example.com", "www.example.com"))
	ip := mustInsert(t, s, NewIpAddr{Value: "192.0.2.1"})
	_, err = s.InsertTTL(NewSubdomainIpAddr{SubdomainID: sub.ID, IpAddrID: ip.ID}, 60)
	require.NoError(t, err)

	*now = now.Add(2 * time.Minute)

	n, err := s.ReapExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []reaped{{FamilyImage, digest}}, got)
}
