package checks

import (
	"context"
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

var brandPatterns = map[string]*regexp.Regexp{
	"visa":       regexp.MustCompile(`^4\d{12}(\d{3})?$`),
	"mastercard": regexp.MustCompile(`^(5[1-5]\d{14}|2(2[2-9]\d{12}|[3-6]\d{13}|7[01]\d{12}|720\d{12}))$`),
	"amex":       regexp.MustCompile(`^3[47]\d{13}$`),
	"discover":   regexp.MustCompile(`^6(011\d{12}|5\d{14}|4[4-9]\d{13})$`),
	"diners":     regexp.MustCompile(`^3(0[0-5]|[68]\d)\d{11}$`),
	"jcb":        regexp.MustCompile(`^35(2[89]|[3-8]\d)\d{12}$`),
	"maestro":    regexp.MustCompile(`^(5[0678]\d{10,17}|6\d{11,18})$`),
}

// brandOrder is the order classifyBrand tries brandPatterns in; maestro's
// pattern overlaps discover's, so it is tried last.
var brandOrder = []string{"visa", "mastercard", "amex", "discover", "diners", "jcb", "maestro"}

var testCards = map[string]bool{
	"4111111111111111": true, "4242424242424242": true,
	"5555555555554444": true, "378282246310005": true,
	"370000000000002": true, "6011111111111117": true,
	"3056930009020004": true, "3566002020360505": true,
	"5105105105105100": true, "4000056655665556": true,
}

var prepaidBINs = map[string]bool{"400000": true, "485932": true, "531309": true}
var virtualBINs = map[string]bool{"499999": true, "510510": true}

const (
	cardHourWindow = time.Hour
	cardDayWindow  = 24 * time.Hour
)

type CreditCardCheck struct {
	hasher   *hashing.Hasher
	refCache *redis.ReferenceCache
	refRepo  *postgres.ReferenceRepository
	velocity *redis.VelocityCache
	cacheTTL time.Duration
}

func NewCreditCardCheck(hasher *hashing.Hasher, refCache *redis.ReferenceCache, refRepo *postgres.ReferenceRepository, velocity *redis.VelocityCache, cacheTTL time.Duration) *CreditCardCheck {
	return &CreditCardCheck{hasher: hasher, refCache: refCache, refRepo: refRepo, velocity: velocity, cacheTTL: cacheTTL}
}

func (c *CreditCardCheck) Name() string { return "credit_card" }

func (c *CreditCardCheck) Applicable(input *models.EvaluateInput) bool {
	return input.CreditCard != ""
}

func (c *CreditCardCheck) Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult {
	r := models.NewCheckResult(c.Name())

	digits := stripNonDigits(input.CreditCard)
	if len(digits) < 13 || len(digits) > 19 || !allDigits.MatchString(digits) {
		r.HardFailNow("format", 100, "card number is not 13-19 digits")
		r.Finalize()
		return *r
	}

	if !luhnValid(digits) {
		r.HardFailNow("luhn", 100, "failed Luhn checksum")
		r.Finalize()
		return *r
	}

	brand := classifyBrand(digits)
	r.Details["brand"] = brand
	r.Add("unknown_brand", brand == "", 30, "unrecognized card brand")

	indexHash := c.hasher.IndexHash(digits)
	if blacklisted, err := c.isBlacklisted(ctx, indexHash); err != nil {
		util.Debug("credit card check: blacklist lookup failed", zap.Error(err))
	} else if blacklisted {
		r.Details["blacklisted"] = true
		r.Add("blacklist", true, 100, "card is blacklisted")
	}

	if testCards[digits] {
		r.Details["known_test_card"] = true
		r.HardFailNow("test_card", 80, "known test card number")
	}

	bin := digits[:6]
	r.Add("prepaid_bin", prepaidBINs[bin], 30, "prepaid BIN")
	r.Add("virtual_bin", virtualBINs[bin], 20, "virtual-card BIN")

	velocityScore := 0
	hourCount, err := c.velocity.Bump(ctx, "card_hour", indexHash, cardHourWindow)
	if err != nil {
		util.Debug("credit card check: hour velocity bump failed", zap.Error(err))
	} else {
		switch {
		case hourCount > 10:
			r.Add("velocity_hour", true, 30, "more than 10 uses in the last hour")
			velocityScore += 30
		case hourCount > 3:
			r.Add("velocity_hour", true, 20, "more than 3 uses in the last hour")
			velocityScore += 20
		}
	}

	dayCount, err := c.velocity.Bump(ctx, "card_day", indexHash, cardDayWindow)
	if err != nil {
		util.Debug("credit card check: day velocity bump failed", zap.Error(err))
	} else {
		dayTriggered := dayCount > 20
		r.Add("velocity_day", dayTriggered, 25, "more than 20 uses in the last day")
		if dayTriggered {
			velocityScore += 25
		}
	}
	r.Details["velocity"] = map[string]interface{}{"hour_count": hourCount, "day_count": dayCount, "risk_score": velocityScore}

	r.Finalize()
	return *r
}

func (c *CreditCardCheck) isBlacklisted(ctx context.Context, indexHash string) (bool, error) {
	var hit bool
	ok, err := c.refCache.Get(ctx, "blacklist_card", indexHash, &hit)
	if ok {
		return hit, nil
	}
	if err != nil && redis.IsNegativeHit(err) {
		return false, nil
	}
	_, lookupErr := c.refRepo.LookupBlacklist(ctx, models.FieldCreditCard, indexHash)
	if lookupErr == postgres.ErrNotFound {
		_ = c.refCache.SetMiss(ctx, "blacklist_card", indexHash, c.cacheTTL)
		return false, nil
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	_ = c.refCache.Set(ctx, "blacklist_card", indexHash, true, c.cacheTTL)
	return true, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func classifyBrand(digits string) string {
	for _, brand := range brandOrder {
		if brandPatterns[brand].MatchString(digits) {
			return brand
		}
	}
	return ""
}
