package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/cidrtool"
)

func TestASNGeoLookup_InvalidIP(t *testing.T) {
	g := NewASNGeoLookup(cidrtool.NewASNRanger(), nil)

	country, tz, ok, err := g.Locate(context.Background(), "not-an-ip")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", country)
	assert.Equal(t, 0, tz)
}

func TestASNGeoLookup_NoMatchingRange(t *testing.T) {
	ranger := cidrtool.NewASNRanger()
	require := assert.New(t)
	require.NoError(ranger.Load(map[int64][]string{15169: {"8.8.8.0/24"}}))

	g := NewASNGeoLookup(ranger, nil)
	_, _, ok, err := g.Locate(context.Background(), "9.9.9.9")
	assert.NoError(t, err)
	assert.False(t, ok)
}
