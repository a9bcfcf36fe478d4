package checks

import (
	"context"
	"net/mail"
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

var roleLocalParts = []string{
	"admin", "support", "info", "contact", "sales", "help", "webmaster",
	"postmaster", "noreply", "no-reply", "donotreply", "abuse", "spam",
	"security", "billing", "legal", "privacy",
}

var consecutiveSeparators = regexp.MustCompile(`[._-]{2,}`)
var allDigits = regexp.MustCompile(`^[0-9]+$`)
var hexPattern16 = regexp.MustCompile(`^[a-f0-9]{16,}$`)
var alnumPattern16 = regexp.MustCompile(`^[a-z0-9]{16,}$`)

const reputationWindow = 6 * 30 * 24 * time.Hour

type EmailCheck struct {
	hasher     *hashing.Hasher
	refCache   *redis.ReferenceCache
	refRepo    *postgres.ReferenceRepository
	auditRepo  *postgres.AuditRepository
	resolver   dnsResolver
	blacklist  *postgres.ReferenceRepository
	cacheTTL   time.Duration
}

type dnsResolver interface {
	HasMX(ctx context.Context, domain string) (bool, error)
	HasAddress(ctx context.Context, domain string) (bool, error)
}

func NewEmailCheck(hasher *hashing.Hasher, refCache *redis.ReferenceCache, refRepo *postgres.ReferenceRepository, auditRepo *postgres.AuditRepository, resolver dnsResolver, cacheTTL time.Duration) *EmailCheck {
	return &EmailCheck{
		hasher:    hasher,
		refCache:  refCache,
		refRepo:   refRepo,
		auditRepo: auditRepo,
		resolver:  resolver,
		blacklist: refRepo,
		cacheTTL:  cacheTTL,
	}
}

func (c *EmailCheck) Name() string { return "email" }

func (c *EmailCheck) Applicable(input *models.EvaluateInput) bool {
	return input.Email != ""
}

func (c *EmailCheck) Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult {
	r := models.NewCheckResult(c.Name())
	email := strings.TrimSpace(input.Email)

	if _, err := mail.ParseAddress(email); err != nil {
		r.HardFailNow("rfc5322", 100, "invalid address syntax")
		r.Finalize()
		return *r
	}

	at := strings.LastIndex(email, "@")
	localPart := strings.ToLower(email[:at])
	domain := strings.ToLower(email[at+1:])

	indexHash := c.hasher.IndexHash(email)
	if blacklisted, err := c.isBlacklisted(ctx, indexHash); err != nil {
		util.Debug("email check: blacklist lookup failed", zap.Error(err))
	} else if blacklisted {
		r.Details["blacklisted"] = true
		r.HardFailNow("blacklist", 100, "email is blacklisted")
		r.Finalize()
		return *r
	}

	if disposable, err := c.isDisposableDomain(ctx, domain); err != nil {
		util.Debug("email check: disposable lookup failed", zap.Error(err))
	} else if disposable {
		r.Details["disposable_domain"] = true
		r.HardFailNow("disposable_domain", 80, "domain is disposable")
	}

	r.Add("role_address", isRoleAddress(localPart), 30, "role-style local part")

	dotCount := strings.Count(localPart, ".") + strings.Count(localPart, "-") + strings.Count(localPart, "_")
	if dotCount > 5 {
		r.Add("separator_count", true, 15, "many separators")
	} else if dotCount > 3 {
		r.Add("separator_count", true, 10, "several separators")
	}
	r.Add("consecutive_separators", consecutiveSeparators.MatchString(localPart), 20, "consecutive separators")

	r.Add("plus_tag", strings.Contains(localPart, "+"), 20, "contains + tag")

	if len(localPart) < 3 {
		r.Add("short_local_part", true, 20, "local part too short")
	} else if len(localPart) > 30 {
		r.Add("long_local_part", true, 15, "local part too long")
	}
	r.Add("all_digit_local_part", allDigits.MatchString(localPart), 30, "all-digit local part")
	r.Add("random_pattern", looksRandom(localPart), 25, "random-looking local part")

	if r.Score <= 100 {
		mx, err := c.resolver.HasMX(ctx, domain)
		if err != nil {
			util.Debug("email check: mx lookup failed", zap.Error(err))
		}
		if !mx {
			addr, err := c.resolver.HasAddress(ctx, domain)
			if err != nil {
				util.Debug("email check: a lookup failed", zap.Error(err))
			}
			if !addr {
				r.HardFailNow("dns_unresolvable", 50, "domain has no MX or A record")
			}
		}
	}

	if avg, blocks, err := c.auditRepo.Reputation(ctx, "email_hash", indexHash, time.Now().Add(-reputationWindow)); err != nil {
		util.Debug("email check: reputation lookup failed", zap.Error(err))
	} else {
		r.Add("reputation_score", avg > 70, 20, "poor historical average score")
		r.Add("reputation_blocks", blocks > 2, 30, "multiple prior blocks")
	}

	r.Finalize()
	return *r
}

func (c *EmailCheck) isBlacklisted(ctx context.Context, indexHash string) (bool, error) {
	var hit bool
	ok, err := c.refCache.Get(ctx, "blacklist_email", indexHash, &hit)
	if ok {
		return hit, nil
	}
	if err != nil && redis.IsNegativeHit(err) {
		return false, nil
	}
	_, lookupErr := c.blacklist.LookupBlacklist(ctx, models.FieldEmail, indexHash)
	if lookupErr == postgres.ErrNotFound {
		_ = c.refCache.SetMiss(ctx, "blacklist_email", indexHash, c.cacheTTL)
		return false, nil
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	_ = c.refCache.Set(ctx, "blacklist_email", indexHash, true, c.cacheTTL)
	return true, nil
}

func (c *EmailCheck) isDisposableDomain(ctx context.Context, domain string) (bool, error) {
	var hit bool
	ok, err := c.refCache.Get(ctx, "disposable_domain", domain, &hit)
	if ok {
		return hit, nil
	}
	if err != nil && redis.IsNegativeHit(err) {
		return false, nil
	}
	_, lookupErr := c.refRepo.LookupDisposableDomain(ctx, domain)
	if lookupErr == postgres.ErrNotFound {
		_ = c.refCache.SetMiss(ctx, "disposable_domain", domain, c.cacheTTL)
		return false, nil
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	_ = c.refCache.Set(ctx, "disposable_domain", domain, true, c.cacheTTL)
	return true, nil
}

func isRoleAddress(localPart string) bool {
	for _, role := range roleLocalParts {
		if localPart == role || strings.HasPrefix(localPart, role) {
			return true
		}
	}
	return false
}

// looksRandom implements the spec's two-clause random-pattern
// heuristic over the local part after stripping separators.
func looksRandom(localPart string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || r == '_' {
			return -1
		}
		return r
	}, localPart)

	if len(cleaned) >= 8 {
		unique := map[rune]bool{}
		hasLower, hasUpper, hasDigit := false, false, false
		for _, r := range cleaned {
			unique[r] = true
			switch {
			case r >= 'a' && r <= 'z':
				hasLower = true
			case r >= 'A' && r <= 'Z':
				hasUpper = true
			case r >= '0' && r <= '9':
				hasDigit = true
			}
		}
		ratio := float64(len(unique)) / float64(len(cleaned))
		if ratio > 0.8 && hasLower && hasUpper && hasDigit {
			return true
		}
	}

	lowered := strings.ToLower(cleaned)
	return alnumPattern16.MatchString(lowered) || hexPattern16.MatchString(lowered)
}
