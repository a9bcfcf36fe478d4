package checks

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"fraudengine/internal/hashing"
	"fraudengine/internal/models"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/repository/redis"
	"fraudengine/internal/util"
)

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
var tldPattern = regexp.MustCompile(`^[a-z]{2,}$`)

var parkedIndicators = []string{
	"domain is for sale", "buy this domain", "this domain is parked",
	"domain parking", "related searches", "courtesy of",
}

// DomainAgeLookup resolves a domain's registration age. A nil or
// errored lookup contributes 0 — the age sub-rule is best-effort.
type DomainAgeLookup interface {
	AgeDays(ctx context.Context, domain string) (days int, ok bool, err error)
}

type DomainCheck struct {
	hasher     *hashing.Hasher
	refCache   *redis.ReferenceCache
	refRepo    *postgres.ReferenceRepository
	auditRepo  *postgres.AuditRepository
	resolver   dnsResolver
	spfLookup  spfResolver
	ageLookup  DomainAgeLookup
	httpClient *http.Client
	cacheTTL   time.Duration
}

type spfResolver interface {
	HasSPF(ctx context.Context, domain string) (bool, error)
}

func NewDomainCheck(hasher *hashing.Hasher, refCache *redis.ReferenceCache, refRepo *postgres.ReferenceRepository, auditRepo *postgres.AuditRepository, resolver dnsResolver, spf spfResolver, ageLookup DomainAgeLookup, cacheTTL time.Duration) *DomainCheck {
	return &DomainCheck{
		hasher:     hasher,
		refCache:   refCache,
		refRepo:    refRepo,
		auditRepo:  auditRepo,
		resolver:   resolver,
		spfLookup:  spf,
		ageLookup:  ageLookup,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		cacheTTL:   cacheTTL,
	}
}

func (c *DomainCheck) Name() string { return "domain" }

func (c *DomainCheck) Applicable(input *models.EvaluateInput) bool {
	return input.EffectiveDomain() != ""
}

func (c *DomainCheck) Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult {
	r := models.NewCheckResult(c.Name())
	domain := strings.ToLower(strings.TrimSpace(input.EffectiveDomain()))

	if !isValidHostname(domain) {
		r.HardFailNow("rfc1035", 100, "invalid hostname syntax")
		r.Finalize()
		return *r
	}

	mx, err := c.resolver.HasMX(ctx, domain)
	if err != nil {
		util.Debug("domain check: mx lookup failed", zap.Error(err))
	}
	r.Add("no_mx", !mx, 50, "no MX records")

	if c.ageLookup != nil {
		if days, ok, err := c.ageLookup.AgeDays(ctx, domain); err != nil {
			util.Debug("domain check: age lookup failed", zap.Error(err))
		} else if ok {
			r.Details["age_days"] = days
			if days < 30 {
				r.Add("new_domain", true, 40, "registered under 30 days ago")
			} else if days < 180 {
				r.Add("recent_domain", true, 20, "registered under 180 days ago")
			}
		}
	}

	if parked, err := c.looksParked(ctx, domain); err != nil {
		util.Debug("domain check: parked probe failed", zap.Error(err))
	} else if parked {
		r.Add("parked_domain", true, 60, "parked-domain indicator found")
	}

	hasAddr, err := c.resolver.HasAddress(ctx, domain)
	if err != nil {
		util.Debug("domain check: address lookup failed", zap.Error(err))
	}
	r.Add("no_address_record", !hasAddr, 20, "no A/AAAA record")

	hasSPF, err := c.spfLookup.HasSPF(ctx, domain)
	if err != nil {
		util.Debug("domain check: spf lookup failed", zap.Error(err))
	}
	r.Add("no_spf", !hasSPF, 10, "no SPF TXT record")

	indexHash := c.hasher.IndexHash(domain)
	if avg, blocks, err := c.auditRepo.Reputation(ctx, "email_hash", indexHash, time.Now().Add(-reputationWindow)); err != nil {
		util.Debug("domain check: reputation lookup failed", zap.Error(err))
	} else {
		r.Add("reputation_score", avg > 70, 30, "poor historical average score")
		r.Add("reputation_blocks", blocks > 5, 40, "many prior blocks")
	}

	r.Finalize()
	return *r
}

func (c *DomainCheck) looksParked(ctx context.Context, domain string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+domain, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, nil // unreachable site is not itself a signal
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return false, err
	}
	lowered := strings.ToLower(string(body))
	for _, indicator := range parkedIndicators {
		if strings.Contains(lowered, indicator) {
			return true, nil
		}
	}
	return false, nil
}

func isValidHostname(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels[:len(labels)-1] {
		if !labelPattern.MatchString(label) {
			return false
		}
	}
	return tldPattern.MatchString(labels[len(labels)-1])
}
