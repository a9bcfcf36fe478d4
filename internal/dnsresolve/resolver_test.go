package dnsresolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewResolver_DefaultsWhenUnset(t *testing.T) {
	r := NewResolver("", 0)
	assert.Equal(t, "8.8.8.8:53", r.server)
	assert.Equal(t, 2*time.Second, r.timeout)
}

func TestNewResolver_KeepsExplicitValues(t *testing.T) {
	r := NewResolver("1.1.1.1:53", 5*time.Second)
	assert.Equal(t, "1.1.1.1:53", r.server)
	assert.Equal(t, 5*time.Second, r.timeout)
}
