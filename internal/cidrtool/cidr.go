// Package cidrtool implements the CIDR/IP toolkit (C2): allocation-frugal
// IPv4/IPv6 parsing, the fixed reserved-range test, and CIDR containment.
package cidrtool

import (
	"errors"
	"net/netip"
)

var ErrInvalidIP = errors.New("cidrtool: invalid IP address")

// reservedRanges is the exact list from RFC 5735 / RFC 4291 named in
// the spec: 0/8, 10/8, 127/8, 169.254/16, 172.16/12, 192.168/16,
// 224/4, 240/4, 255.255.255.255/32.
var reservedRanges = mustParsePrefixes([]string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"255.255.255.255/32",
})

func mustParsePrefixes(cidrs []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			panic("cidrtool: invalid reserved range literal: " + c)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes
}

// Parse validates an IPv4 or IPv6 address string and returns the
// canonical address plus its version (4 or 6). Malformed input fails
// rather than silently coercing.
func Parse(value string) (netip.Addr, int, error) {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}, 0, ErrInvalidIP
	}
	if addr.Is4() || addr.Is4In6() {
		return addr.Unmap(), 4, nil
	}
	return addr, 6, nil
}

// IsReserved reports whether addr falls in one of the fixed
// RFC 5735/4291 reserved ranges.
func IsReserved(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, r := range reservedRanges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// InRange reports whether addr is contained in the given CIDR. IPv4
// and IPv6 comparisons both go through netip.Prefix.Contains, which
// compares the masked address directly rather than allocating strings.
func InRange(addr netip.Addr, cidr string) (bool, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return false, ErrInvalidIP
	}
	return prefix.Contains(addr.Unmap()), nil
}
