package cidrtool

import (
	"net"
	"sync"

	"github.com/yl2chen/cidranger"
)

// ASNRanger is a radix-trie lookup over an ASN's stored CIDR ranges.
// The reserved-range test above stays on net/netip since it checks a
// handful of fixed prefixes per call; ASN containment needs a trie
// because a single lookup can be tested against thousands of ranges
// pulled from the reference store.
type ASNRanger struct {
	mu     sync.RWMutex
	ranger cidranger.Ranger
	asn    map[string]int64 // CIDR string -> owning ASN, for reverse lookup
}

func NewASNRanger() *ASNRanger {
	return &ASNRanger{
		ranger: cidranger.NewPCTrieRanger(),
		asn:    make(map[string]int64),
	}
}

// Load replaces the trie contents with the given ASN -> CIDR list
// mapping. Called once per reference-data refresh/cache-fill, not per
// request.
func (r *ASNRanger) Load(ranges map[int64][]string) error {
	newRanger := cidranger.NewPCTrieRanger()
	asn := make(map[string]int64)

	for asNumber, cidrs := range ranges {
		for _, cidr := range cidrs {
			_, ipNet, err := net.ParseCIDR(cidr)
			if err != nil {
				continue
			}
			if err := newRanger.Insert(cidranger.NewBasicRangerEntry(*ipNet)); err != nil {
				continue
			}
			asn[ipNet.String()] = asNumber
		}
	}

	r.mu.Lock()
	r.ranger = newRanger
	r.asn = asn
	r.mu.Unlock()
	return nil
}

// Lookup returns the ASN owning the smallest matching range for ip,
// or ok=false if no loaded range contains it.
func (r *ASNRanger) Lookup(ip net.IP) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	networks, err := r.ranger.ContainingNetworks(ip)
	if err != nil || len(networks) == 0 {
		return 0, false
	}

	best := networks[len(networks)-1]
	ipNet := best.Network()
	asNumber, ok := r.asn[ipNet.String()]
	return asNumber, ok
}
