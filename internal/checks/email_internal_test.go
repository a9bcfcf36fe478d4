package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRoleAddress(t *testing.T) {
	assert.True(t, isRoleAddress("admin"))
	assert.True(t, isRoleAddress("support-team"))
	assert.True(t, isRoleAddress("noreply"))
	assert.False(t, isRoleAddress("jane.doe"))
}

func TestLooksRandom_HighEntropyMixedCase(t *testing.T) {
	assert.True(t, looksRandom("aB3dE7fG9h"))
}

func TestLooksRandom_HexLikeString(t *testing.T) {
	assert.True(t, looksRandom("a1b2c3d4e5f60718"))
}

func TestLooksRandom_NormalName(t *testing.T) {
	assert.False(t, looksRandom("jane.doe"))
}

func TestLooksRandom_ShortStringNeverRandom(t *testing.T) {
	assert.False(t, looksRandom("ab"))
}
