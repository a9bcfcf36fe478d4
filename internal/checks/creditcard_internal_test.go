package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripNonDigits(t *testing.T) {
	assert.Equal(t, "4111111111111111", stripNonDigits("4111 1111 1111 1111"))
	assert.Equal(t, "4111111111111111", stripNonDigits("4111-1111-1111-1111"))
	assert.Equal(t, "", stripNonDigits("no digits here"))
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4111111111111111"))
	assert.True(t, luhnValid("4242424242424242"))
	assert.False(t, luhnValid("4111111111111112"))
}

func TestClassifyBrand(t *testing.T) {
	cases := []struct {
		number string
		brand  string
	}{
		{"4111111111111111", "visa"},
		{"5555555555554444", "mastercard"},
		{"378282246310005", "amex"},
		{"6011111111111117", "discover"},
		{"0000000000000000", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.brand, classifyBrand(c.number), "number=%s", c.number)
	}
}
