package hashing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"fraudengine/internal/config"
	"fraudengine/internal/util"

	"go.uber.org/zap"
)

// ErrMissingHashKey signals a fatal boot condition: the keyed hash is
// the only thing standing between a blacklist lookup and a plaintext
// scan of the reference tables, so a blank key never defaults.
var ErrMissingHashKey = errors.New("hashing: HASH_KEY is not configured")

// Hasher implements the keyed, normalized one-way hash contract (C1):
// HMAC(sha256, key, normalize(value)) where normalize = lowercase ∘ trim.
// The same identity value must hash identically everywhere in the
// service so blacklist membership never requires plaintext.
type Hasher struct {
	key []byte
}

// NewHasher builds the keyed hasher from config. A missing key is a
// fatal initialization error, mirroring this codebase's startup
// posture for any secret the request path depends on.
func NewHasher(cfg *config.Config) *Hasher {
	if cfg.Hashing.Key == "" {
		util.Fatal("Failed to initialize hasher", zap.Error(ErrMissingHashKey))
	}
	return &Hasher{key: []byte(cfg.Hashing.Key)}
}

// NewHasherWithKey is the direct constructor used by tests and by
// components that carry their own hash key outside of config.
func NewHasherWithKey(key string) (*Hasher, error) {
	if key == "" {
		return nil, ErrMissingHashKey
	}
	return &Hasher{key: []byte(key)}, nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Hash returns the hex-encoded HMAC-SHA256 of the normalized value.
func (h *Hasher) Hash(value string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(normalize(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

// IndexHash returns the first 16 hex characters of Hash, sized for
// compact index columns where full collision resistance isn't needed
// (velocity counter keys, cache keys).
func (h *Hasher) IndexHash(value string) string {
	full := h.Hash(value)
	if len(full) < 16 {
		return full
	}
	return full[:16]
}

// CompositeHash hashes several values as one unit by sorting them and
// joining with "|" before hashing, so the same set in a different
// argument order still produces the same hash.
func (h *Hasher) CompositeHash(values ...string) string {
	sorted := make([]string, len(values))
	for i, v := range values {
		sorted[i] = normalize(v)
	}
	sort.Strings(sorted)
	return h.Hash(strings.Join(sorted, "|"))
}

// Verify constant-time compares a value's hash against an expected
// hex digest so callers never branch on untrusted input in variable
// time.
func (h *Hasher) Verify(value, expectedHex string) bool {
	computed, err := hex.DecodeString(h.Hash(value))
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
