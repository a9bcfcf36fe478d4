package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("mozilla/5.0 headless chrome", automationPatterns))
	assert.False(t, containsAny("mozilla/5.0 normal browser", automationPatterns))
}

func TestParseBrowserVersion(t *testing.T) {
	browser, version, ok := parseBrowserVersion("Mozilla/5.0 Chrome/58.0.3029.110")
	assert.True(t, ok)
	assert.Equal(t, "Chrome", browser)
	assert.Equal(t, 58, version)

	_, _, ok = parseBrowserVersion("no browser tokens here")
	assert.False(t, ok)
}

func TestParseBrowserVersion_OutdatedIE(t *testing.T) {
	browser, version, ok := parseBrowserVersion("Mozilla/4.0 (compatible; MSIE 6.0; Windows NT 5.1)")
	assert.True(t, ok)
	assert.Equal(t, "MSIE", browser)
	assert.Equal(t, 6, version)
}

func TestSha256Hex_Deterministic(t *testing.T) {
	a := sha256Hex("same input")
	b := sha256Hex("same input")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
