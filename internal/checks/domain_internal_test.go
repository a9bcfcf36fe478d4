package checks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidHostname(t *testing.T) {
	cases := []struct {
		domain string
		valid  bool
	}{
		{"example.com", true},
		{"sub.example.com", true},
		{"a.co", true},
		{"", false},
		{"nodotatall", false},
		{"-leadinghyphen.com", false},
		{"example.123", false},
		{"example.c", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.valid, isValidHostname(c.domain), "domain=%s", c.domain)
	}
}

func TestLooksParked_DetectsIndicator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>This domain is parked. Buy this domain today!</body></html>"))
	}))
	defer srv.Close()

	c := &DomainCheck{httpClient: srv.Client()}
	parked, err := c.looksParked(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.True(t, parked)
}

func TestLooksParked_NoIndicator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Welcome to our real business site.</body></html>"))
	}))
	defer srv.Close()

	c := &DomainCheck{httpClient: srv.Client()}
	parked, err := c.looksParked(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.False(t, parked)
}
