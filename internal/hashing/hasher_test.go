package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasherWithKey_MissingKey(t *testing.T) {
	_, err := NewHasherWithKey("")
	assert.ErrorIs(t, err, ErrMissingHashKey)
}

func TestHash_Deterministic(t *testing.T) {
	h, err := NewHasherWithKey("test-key")
	require.NoError(t, err)

	a := h.Hash("user@example.com")
	b := h.Hash("user@example.com")
	assert.Equal(t, a, b)
}

func TestHash_NormalizesCaseAndWhitespace(t *testing.T) {
	h, err := NewHasherWithKey("test-key")
	require.NoError(t, err)

	assert.Equal(t, h.Hash("User@Example.com"), h.Hash("  user@example.com  "))
}

func TestHash_DifferentKeysDifferentDigests(t *testing.T) {
	h1, _ := NewHasherWithKey("key-one")
	h2, _ := NewHasherWithKey("key-two")
	assert.NotEqual(t, h1.Hash("same-value"), h2.Hash("same-value"))
}

func TestIndexHash_IsPrefixOfHash(t *testing.T) {
	h, _ := NewHasherWithKey("test-key")
	full := h.Hash("value")
	idx := h.IndexHash("value")
	assert.Len(t, idx, 16)
	assert.Equal(t, full[:16], idx)
}

func TestCompositeHash_OrderIndependent(t *testing.T) {
	h, _ := NewHasherWithKey("test-key")
	a := h.CompositeHash("alpha", "beta", "gamma")
	b := h.CompositeHash("gamma", "alpha", "beta")
	assert.Equal(t, a, b)
}

func TestCompositeHash_DifferentSetsDiffer(t *testing.T) {
	h, _ := NewHasherWithKey("test-key")
	a := h.CompositeHash("alpha", "beta")
	b := h.CompositeHash("alpha", "gamma")
	assert.NotEqual(t, a, b)
}

func TestVerify(t *testing.T) {
	h, _ := NewHasherWithKey("test-key")
	digest := h.Hash("value")

	assert.True(t, h.Verify("value", digest))
	assert.False(t, h.Verify("other-value", digest))
	assert.False(t, h.Verify("value", "not-hex-!!"))
}
