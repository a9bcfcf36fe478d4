package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", RedactEmail("alice@example.com"))
	assert.Equal(t, "***", RedactEmail("no-at-sign"))
	assert.Equal(t, "***", RedactEmail("@example.com"))
}

func TestRedactIP(t *testing.T) {
	assert.Equal(t, "203.***", RedactIP("203.0.113.5"))
	assert.Equal(t, "2001.***", RedactIP("2001:db8::1"))
	assert.Equal(t, "***", RedactIP("nodelimiters"))
}

func TestRedactPAN(t *testing.T) {
	assert.Equal(t, "411111******1111", RedactPAN("4111111111111111"))
	assert.Equal(t, "***", RedactPAN("12345"))
}
