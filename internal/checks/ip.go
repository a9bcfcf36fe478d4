package checks

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"

	"fraudengine/internal/cidrtool"
	"fraudengine/internal/hashing"
	"fraudengine/internal/models"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/repository/redis"
	"fraudengine/internal/util"
)

var proxyHeaders = []string{
	"X-Forwarded-For", "X-Real-IP", "X-Originating-IP", "X-Forwarded",
	"X-Cluster-Client-IP", "Forwarded-For", "Forwarded", "Via",
	"True-Client-IP", "CF-Connecting-IP",
}

const ipVelocityWindow = time.Hour

// GeoLookup resolves an IP's geolocation for the consistency sub-rule.
// A nil/errored lookup is treated as "no signal", contributing 0.
type GeoLookup interface {
	Locate(ctx context.Context, ip string) (country string, tzOffsetHours int, ok bool, err error)
}

type IPCheck struct {
	hasher    *hashing.Hasher
	refCache  *redis.ReferenceCache
	refRepo   *postgres.ReferenceRepository
	asnRanger *cidrtool.ASNRanger
	velocity  *redis.VelocityCache
	geo       GeoLookup
	cacheTTL  time.Duration
}

func NewIPCheck(hasher *hashing.Hasher, refCache *redis.ReferenceCache, refRepo *postgres.ReferenceRepository, asnRanger *cidrtool.ASNRanger, velocity *redis.VelocityCache, geo GeoLookup, cacheTTL time.Duration) *IPCheck {
	return &IPCheck{
		hasher:    hasher,
		refCache:  refCache,
		refRepo:   refRepo,
		asnRanger: asnRanger,
		velocity:  velocity,
		geo:       geo,
		cacheTTL:  cacheTTL,
	}
}

func (c *IPCheck) Name() string { return "ip" }

func (c *IPCheck) Applicable(input *models.EvaluateInput) bool {
	return input.IP != ""
}

func (c *IPCheck) Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult {
	r := models.NewCheckResult(c.Name())

	addr, _, err := cidrtool.Parse(input.IP)
	if err != nil {
		r.HardFailNow("invalid_ip", 100, "unparseable IP address")
		r.Finalize()
		return *r
	}

	indexHash := c.hasher.IndexHash(input.IP)
	if blacklisted, err := c.isBlacklisted(ctx, indexHash); err != nil {
		util.Debug("ip check: blacklist lookup failed", zap.Error(err))
	} else if blacklisted {
		r.Details["blacklisted"] = true
		r.Add("blacklist", true, 100, "IP is blacklisted")
	}

	if cidrtool.IsReserved(addr) {
		r.HardFailNow("reserved_range", 100, "reserved/private address range")
		r.Finalize()
		return *r
	}

	if torActive, err := c.isTorExitNode(ctx, input.IP); err != nil {
		util.Debug("ip check: tor lookup failed", zap.Error(err))
	} else if torActive {
		r.Add("tor_exit_node", true, 90, "active Tor exit node")
	}

	c.classifyASN(ctx, r, addr)

	if c.geo != nil {
		c.geoConsistency(ctx, r, input)
	}

	count, err := c.velocity.Bump(ctx, "ip", indexHash, ipVelocityWindow)
	if err != nil {
		util.Debug("ip check: velocity bump failed", zap.Error(err))
	} else {
		velocityScore := 0
		switch {
		case count > 100:
			velocityScore = 30
		case count > 50:
			velocityScore = 20
		case count > 10:
			velocityScore = 10
		}
		if velocityScore > 0 {
			r.Add("velocity", true, velocityScore, "elevated request count in window")
		}
		r.Details["velocity"] = map[string]interface{}{"count": count, "risk_score": velocityScore}
	}

	proxyHeaderScore(r, input)

	r.Finalize()
	return *r
}

// classifyASN looks up the owning ASN from the in-memory cidranger
// trie (populated by the refresh pipeline) and applies its base
// risk_weight plus the datacenter/VPN/proxy bumps.
func (c *IPCheck) classifyASN(ctx context.Context, r *models.CheckResult, addr netip.Addr) {
	asNumber, ok := c.asnRanger.Lookup(net.ParseIP(addr.String()))
	if !ok {
		return
	}
	r.Details["asn"] = asNumber

	asn, err := c.refRepo.LookupASNByNumber(ctx, asNumber)
	if err != nil {
		util.Debug("ip check: asn detail lookup failed", zap.Error(err))
		return
	}

	if asn.RiskWeight > 0 {
		r.Add("asn_risk_weight", true, asn.RiskWeight, "ASN base risk: "+asn.RiskCategory)
	}
	r.Add("asn_datacenter", asn.IsDatacenter, 30, "datacenter ASN")
	r.Add("asn_vpn_proxy", asn.IsVPNOrProxy, 40, "VPN/proxy ASN")
}

func (c *IPCheck) isBlacklisted(ctx context.Context, indexHash string) (bool, error) {
	var hit bool
	ok, err := c.refCache.Get(ctx, "blacklist_ip", indexHash, &hit)
	if ok {
		return hit, nil
	}
	if err != nil && redis.IsNegativeHit(err) {
		return false, nil
	}
	_, lookupErr := c.refRepo.LookupBlacklist(ctx, models.FieldIP, indexHash)
	if lookupErr == postgres.ErrNotFound {
		_ = c.refCache.SetMiss(ctx, "blacklist_ip", indexHash, c.cacheTTL)
		return false, nil
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	_ = c.refCache.Set(ctx, "blacklist_ip", indexHash, true, c.cacheTTL)
	return true, nil
}

func (c *IPCheck) isTorExitNode(ctx context.Context, ip string) (bool, error) {
	var hit bool
	ok, err := c.refCache.Get(ctx, "tor_node", ip, &hit)
	if ok {
		return hit, nil
	}
	if err != nil && redis.IsNegativeHit(err) {
		return false, nil
	}
	_, lookupErr := c.refRepo.LookupTorNode(ctx, ip)
	if lookupErr == postgres.ErrNotFound {
		_ = c.refCache.SetMiss(ctx, "tor_node", ip, c.cacheTTL)
		return false, nil
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	_ = c.refCache.Set(ctx, "tor_node", ip, true, c.cacheTTL)
	return true, nil
}

func (c *IPCheck) geoConsistency(ctx context.Context, r *models.CheckResult, input *models.EvaluateInput) {
	country, tzOffset, ok, err := c.geo.Locate(ctx, input.IP)
	if err != nil {
		util.Debug("ip check: geolocation lookup failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	r.Details["geo_country"] = country
	if input.Country != "" && !strings.EqualFold(country, input.Country) {
		r.Add("country_mismatch", true, 30, "IP country differs from declared country")
	}
	if input.Timezone != "" {
		declaredOffset, ok := parseUTCOffset(input.Timezone)
		if ok {
			diff := tzOffset - declaredOffset
			if diff < 0 {
				diff = -diff
			}
			if diff > 3 {
				r.Add("timezone_mismatch", true, 20, "IP timezone differs from declared timezone")
			}
		}
	}
}

func parseUTCOffset(tz string) (int, bool) {
	_, err := time.LoadLocation(tz)
	if err != nil {
		return 0, false
	}
	loc, _ := time.LoadLocation(tz)
	_, offsetSeconds := time.Now().In(loc).Zone()
	return offsetSeconds / 3600, true
}

func proxyHeaderScore(r *models.CheckResult, input *models.EvaluateInput) {
	if len(input.Headers) == 0 {
		return
	}
	var present bool
	var mismatch bool
	for _, name := range proxyHeaders {
		values, ok := lookupHeaderCaseInsensitive(input.Headers, name)
		if !ok {
			continue
		}
		present = true
		for _, v := range values {
			for _, candidate := range strings.Split(v, ",") {
				candidate = strings.TrimSpace(candidate)
				if candidate == "" {
					continue
				}
				if ip := net.ParseIP(candidate); ip != nil && candidate != input.IP {
					mismatch = true
				}
			}
		}
	}
	r.Add("proxy_headers_present", present, 10, "proxy-forwarding headers present")
	r.Add("proxy_header_ip_mismatch", mismatch, 20, "forwarded IP differs from reported IP")
}

func lookupHeaderCaseInsensitive(headers map[string][]string, name string) ([]string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
