package cidrtool

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	addr, version, err := Parse("8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, 4, version)
	assert.True(t, addr.Is4())

	addr, version, err = Parse("2001:4860:4860::8888")
	require.NoError(t, err)
	assert.Equal(t, 6, version)
	assert.True(t, addr.Is6())

	_, _, err = Parse("not-an-ip")
	assert.ErrorIs(t, err, ErrInvalidIP)
}

func TestIsReserved(t *testing.T) {
	cases := []struct {
		ip       string
		reserved bool
	}{
		{"10.0.0.5", true},
		{"127.0.0.1", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
	}
	for _, c := range cases {
		addr := netip.MustParseAddr(c.ip)
		assert.Equal(t, c.reserved, IsReserved(addr), "ip=%s", c.ip)
	}
}

func TestInRange(t *testing.T) {
	addr := netip.MustParseAddr("192.168.1.42")

	inRange, err := InRange(addr, "192.168.1.0/24")
	require.NoError(t, err)
	assert.True(t, inRange)

	inRange, err = InRange(addr, "10.0.0.0/8")
	require.NoError(t, err)
	assert.False(t, inRange)

	_, err = InRange(addr, "garbage")
	assert.ErrorIs(t, err, ErrInvalidIP)
}

func TestASNRanger_LoadAndLookup(t *testing.T) {
	r := NewASNRanger()
	err := r.Load(map[int64][]string{
		15169: {"8.8.8.0/24"},
		13335: {"1.1.1.0/24"},
	})
	require.NoError(t, err)

	asNumber, ok := r.Lookup(netip.MustParseAddr("8.8.8.8").AsSlice())
	assert.True(t, ok)
	assert.EqualValues(t, 15169, asNumber)

	_, ok = r.Lookup(netip.MustParseAddr("9.9.9.9").AsSlice())
	assert.False(t, ok)
}

func TestASNRanger_LoadReplacesPriorContents(t *testing.T) {
	r := NewASNRanger()
	require.NoError(t, r.Load(map[int64][]string{1: {"1.1.1.0/24"}}))
	require.NoError(t, r.Load(map[int64][]string{2: {"2.2.2.0/24"}}))

	_, ok := r.Lookup(netip.MustParseAddr("1.1.1.1").AsSlice())
	assert.False(t, ok)

	asNumber, ok := r.Lookup(netip.MustParseAddr("2.2.2.2").AsSlice())
	assert.True(t, ok)
	assert.EqualValues(t, 2, asNumber)
}
