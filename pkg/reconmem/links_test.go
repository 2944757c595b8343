package reconmem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubdomainIpAddrLink(t *testing.T) {
	s := openTestStore(t)

	sub := mustInsert(t, s, subdomainCandidate(t, s, "example.com", "www.example.com"))
	ip := mustInsert(t, s, NewIpAddr{Value: "192.0.2.1"})

	link := NewSubdomainIpAddr{SubdomainID: sub.ID, IpAddrID: ip.ID}
	res := mustInsert(t, s, link)
	assert.Equal(t, Inserted, res.Outcome)

	again := mustInsert(t, s, link)
	assert.Equal(t, Unchanged, again.Outcome)
	assert.Equal(t, res.ID, again.ID)

	row, err := GetSubdomainIpAddr(s.DB(), sub.ID, ip.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, res.ID, row.ID)

	_, err = SubdomainIpAddrs.GetOpt(s.DB(), "www.example.com")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNetworkDeviceLinkIsInsertOnly(t *testing.T) {
	s := openTestStore(t)

	network := mustInsert(t, s, NewNetwork{Value: "home-wifi"})
	device := mustInsert(t, s, NewDevice{Value: "aa:bb:cc:00:11:22"})

	res := mustInsert(t, s, NewNetworkDevice{NetworkID: network.ID, DeviceID: device.ID, IpAddr: strRef("192.168.1.20")})
	require.Equal(t, Inserted, res.Outcome)

	res = mustInsert(t, s, NewNetworkDevice{
		NetworkID: network.ID,
		DeviceID:  device.ID,
		IpAddr:    strRef("192.168.1.21"),
		LastSeen:  TimeRef(time.Now()),
	})
	assert.Equal(t, Unchanged, res.Outcome)

	row, err := GetNetworkDevice(s.DB(), network.ID, device.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "192.168.1.20", *row.IpAddr)
	assert.Nil(t, row.LastSeen)
}

func TestBreachEmailPasswordEnrichment(t *testing.T) {
	s := openTestStore(t)

	breach := mustInsert(t, s, NewBreach{Value: "megaleak"})
	email := mustInsert(t, s, NewEmail{Value: "alice@example.com"})

	res := mustInsert(t, s, NewBreachEmail{BreachID: breach.ID, EmailID: email.ID})
	require.Equal(t, Inserted, res.Outcome)

	found, err := GetBreachEmail(s.DB(), breach.ID, email.ID, strRef("hunter2"))
	require.NoError(t, err)
	require.NotNil(t, found, "a bare pairing matches a candidate with a password")
	assert.Equal(t, res.ID, found.ID)

	enriched := mustInsert(t, s, NewBreachEmail{BreachID: breach.ID, EmailID: email.ID, Password: strRef("hunter2")})
	assert.Equal(t, Updated, enriched.Outcome)
	assert.Equal(t, res.ID, enriched.ID)

	again := mustInsert(t, s, NewBreachEmail{BreachID: breach.ID, EmailID: email.ID, Password: strRef("hunter2")})
	assert.Equal(t, Unchanged, again.Outcome)

	bare := mustInsert(t, s, NewBreachEmail{BreachID: breach.ID, EmailID: email.ID})
	assert.Equal(t, Unchanged, bare.Outcome)

	second := mustInsert(t, s, NewBreachEmail{BreachID: breach.ID, EmailID: email.ID, Password: strRef("letmein")})
	assert.Equal(t, Inserted, second.Outcome)

	rows, err := BreachEmails.List(s.DB())
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	up, err := s.Update(BreachEmailUpdate{ID: second.ID, Password: strRef("letmein2")})
	require.NoError(t, err)
	assert.Equal(t, Updated, up.Outcome)
}

func TestDeletingParentCascades(t *testing.T) {
	s := openTestStore(t)

	sub := mustInsert(t, s, subdomainCandidate(t, s, "example.com", "www.example.com"))
	mustInsert(t, s, NewURL{SubdomainID: sub.ID, Value: "https://www.example.com/login"})

	u, err := URLs.Get(s.DB(), "https://www.example.com/login")
	require.NoError(t, err)
	assert.Equal(t, "/login", u.Path)

	_, err = s.DeleteFamily(FamilyDomain, MatchAll())
	require.NoError(t, err)

	rows, err := URLs.List(s.DB())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
