package checks

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"fraudengine/internal/hashing"
	"fraudengine/internal/models"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/repository/redis"
	"fraudengine/internal/util"
)

var phoneFormatAnomaly = regexp.MustCompile(`[^0-9+\-\s().]`)

var sequentialRuns = []string{"0123456789", "1234567890", "9876543210", "0987654321"}

const (
	phoneHourWindow = time.Hour
	phoneDayWindow  = 24 * time.Hour
)

type PhoneCheck struct {
	hasher             *hashing.Hasher
	refCache           *redis.ReferenceCache
	refRepo            *postgres.ReferenceRepository
	velocity           *redis.VelocityCache
	disposablePrefixes []string
	cacheTTL           time.Duration
}

func NewPhoneCheck(hasher *hashing.Hasher, refCache *redis.ReferenceCache, refRepo *postgres.ReferenceRepository, velocity *redis.VelocityCache, disposablePrefixes []string, cacheTTL time.Duration) *PhoneCheck {
	return &PhoneCheck{
		hasher:             hasher,
		refCache:           refCache,
		refRepo:            refRepo,
		velocity:           velocity,
		disposablePrefixes: disposablePrefixes,
		cacheTTL:           cacheTTL,
	}
}

func (c *PhoneCheck) Name() string { return "phone" }

func (c *PhoneCheck) Applicable(input *models.EvaluateInput) bool {
	return input.Phone != ""
}

func (c *PhoneCheck) Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult {
	r := models.NewCheckResult(c.Name())

	defaultRegion := input.Country
	if defaultRegion == "" {
		defaultRegion = "US"
	}

	parsed, err := phonenumbers.Parse(input.Phone, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		r.HardFailNow("invalid_number", 100, "could not parse as a valid phone number")
		r.Finalize()
		return *r
	}

	e164 := phonenumbers.Format(parsed, phonenumbers.E164)
	indexHash := c.hasher.IndexHash(e164)

	if blacklisted, err := c.isBlacklisted(ctx, indexHash); err != nil {
		util.Debug("phone check: blacklist lookup failed", zap.Error(err))
	} else if blacklisted {
		r.Details["blacklisted"] = true
		r.Add("blacklist", true, 100, "phone number is blacklisted")
	}

	numberType := phonenumbers.GetNumberType(parsed)
	r.Details["number_type"] = numberTypeString(numberType)
	r.Add("number_type", true, numberTypeScore(numberType), "number type: "+numberTypeString(numberType))

	region := phonenumbers.GetRegionCodeForNumber(parsed)
	r.Details["region"] = region
	r.Add("country_mismatch", input.Country != "" && !strings.EqualFold(region, input.Country), 30, "phone region differs from declared country")

	r.Add("format_anomaly", hasFormatAnomaly(input.Phone), 15, "unusual formatting or repeating/sequential digits")

	for _, prefix := range c.disposablePrefixes {
		if strings.HasPrefix(e164, prefix) {
			r.Add("disposable_prefix", true, 50, "matches configured disposable-number prefix")
			break
		}
	}

	velocityScore := 0
	hourCount, err := c.velocity.Bump(ctx, "phone_hour", indexHash, phoneHourWindow)
	if err != nil {
		util.Debug("phone check: hour velocity bump failed", zap.Error(err))
	} else {
		switch {
		case hourCount > 5:
			r.Add("velocity_hour", true, 25, "more than 5 uses in the last hour")
			velocityScore += 25
		case hourCount > 2:
			r.Add("velocity_hour", true, 15, "more than 2 uses in the last hour")
			velocityScore += 15
		}
	}

	dayCount, err := c.velocity.Bump(ctx, "phone_day", indexHash, phoneDayWindow)
	if err != nil {
		util.Debug("phone check: day velocity bump failed", zap.Error(err))
	} else {
		dayTriggered := dayCount > 10
		r.Add("velocity_day", dayTriggered, 20, "more than 10 uses in the last day")
		if dayTriggered {
			velocityScore += 20
		}
	}
	r.Details["velocity"] = map[string]interface{}{"hour_count": hourCount, "day_count": dayCount, "risk_score": velocityScore}

	r.Finalize()
	return *r
}

func (c *PhoneCheck) isBlacklisted(ctx context.Context, indexHash string) (bool, error) {
	var hit bool
	ok, err := c.refCache.Get(ctx, "blacklist_phone", indexHash, &hit)
	if ok {
		return hit, nil
	}
	if err != nil && redis.IsNegativeHit(err) {
		return false, nil
	}
	_, lookupErr := c.refRepo.LookupBlacklist(ctx, models.FieldPhone, indexHash)
	if lookupErr == postgres.ErrNotFound {
		_ = c.refCache.SetMiss(ctx, "blacklist_phone", indexHash, c.cacheTTL)
		return false, nil
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	_ = c.refCache.Set(ctx, "blacklist_phone", indexHash, true, c.cacheTTL)
	return true, nil
}

func numberTypeString(t phonenumbers.PhoneNumberType) string {
	switch t {
	case phonenumbers.FIXED_LINE:
		return "FIXED_LINE"
	case phonenumbers.MOBILE:
		return "MOBILE"
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		return "FIXED_LINE_OR_MOBILE"
	case phonenumbers.TOLL_FREE:
		return "TOLL_FREE"
	case phonenumbers.PREMIUM_RATE:
		return "PREMIUM_RATE"
	case phonenumbers.SHARED_COST:
		return "SHARED_COST"
	case phonenumbers.VOIP:
		return "VOIP"
	case phonenumbers.PERSONAL_NUMBER:
		return "PERSONAL_NUMBER"
	case phonenumbers.PAGER:
		return "PAGER"
	case phonenumbers.UAN:
		return "UAN"
	case phonenumbers.VOICEMAIL:
		return "VOICEMAIL"
	default:
		return "UNKNOWN"
	}
}

func numberTypeScore(t phonenumbers.PhoneNumberType) int {
	switch t {
	case phonenumbers.VOIP:
		return 40
	case phonenumbers.TOLL_FREE:
		return 50
	case phonenumbers.PREMIUM_RATE:
		return 60
	case phonenumbers.SHARED_COST:
		return 30
	case phonenumbers.FIXED_LINE:
		return 10
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
		return 0
	default:
		return 20
	}
}

func hasFormatAnomaly(raw string) bool {
	if countMatches(phoneFormatAnomaly, raw) > 2 {
		return true
	}
	for d := '0'; d <= '9'; d++ {
		if strings.Contains(raw, strings.Repeat(string(d), 7)) {
			return true
		}
	}
	digits := stripNonDigits(raw)
	for _, run := range sequentialRuns {
		if strings.Contains(digits, run) {
			return true
		}
	}
	return false
}

func countMatches(pattern *regexp.Regexp, s string) int {
	return len(pattern.FindAllString(s, -1))
}
