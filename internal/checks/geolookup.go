package checks

import (
	"context"
	"net"
	"regexp"

	"fraudengine/internal/cidrtool"
	"fraudengine/internal/repository/postgres"
)

var asnCountrySuffix = regexp.MustCompile(`\(([A-Z]{2})\)$`)

// ASNGeoLookup derives a coarse geolocation signal from the same ASN
// catalog the IP check's datacenter/VPN classification already uses,
// rather than wiring a dedicated geoip dataset this codebase's
// dependency set has no client for. The country code came along for
// free in the refresh pipeline's ASN name field; timezone is never
// known from ASN alone, so it always reports as "no signal".
type ASNGeoLookup struct {
	ranger  *cidrtool.ASNRanger
	refRepo *postgres.ReferenceRepository
}

func NewASNGeoLookup(ranger *cidrtool.ASNRanger, refRepo *postgres.ReferenceRepository) *ASNGeoLookup {
	return &ASNGeoLookup{ranger: ranger, refRepo: refRepo}
}

func (g *ASNGeoLookup) Locate(ctx context.Context, ip string) (string, int, bool, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", 0, false, nil
	}
	asNumber, found := g.ranger.Lookup(parsed)
	if !found {
		return "", 0, false, nil
	}
	asn, err := g.refRepo.LookupASNByNumber(ctx, asNumber)
	if err != nil {
		return "", 0, false, nil
	}
	m := asnCountrySuffix.FindStringSubmatch(asn.Name)
	if m == nil {
		return "", 0, false, nil
	}
	return m[1], 0, true, nil
}
