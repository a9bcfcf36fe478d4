package checks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"fraudengine/internal/models"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/repository/redis"
	"fraudengine/internal/util"
)

var botPatterns = []string{"bot", "crawler", "spider", "scraper"}
var automationPatterns = []string{"headless", "phantomjs", "selenium", "puppeteer", "playwright"}
var maliciousUAPatterns = []string{"sqlmap", "nikto", "nmap", "masscan", "metasploit"}
var languagePatterns = []string{"python-requests", "curl/", "wget/", "go-http-client", "java/", "okhttp"}

var suspiciousCharPattern = regexp.MustCompile(`[^a-zA-Z0-9\s()\[\]/.,;:_\-+]`)
var badSubstrings = []string{"hack", "exploit", "inject", "bypass", "penetration"}

var browserVersionPattern = regexp.MustCompile(`(Chrome|Firefox|Safari|MSIE|Edge)[/ ](\d+)`)

var outdatedBrowsers = map[string]int{
	"MSIE-6": 90, "MSIE-7": 80, "MSIE-8": 70, "MSIE-9": 60,
}

const uaDayWindow = 24 * time.Hour

type UserAgentCheck struct {
	refCache *redis.ReferenceCache
	refRepo  *postgres.ReferenceRepository
	velocity *redis.VelocityCache
	cacheTTL time.Duration
}

func NewUserAgentCheck(refCache *redis.ReferenceCache, refRepo *postgres.ReferenceRepository, velocity *redis.VelocityCache, cacheTTL time.Duration) *UserAgentCheck {
	return &UserAgentCheck{refCache: refCache, refRepo: refRepo, velocity: velocity, cacheTTL: cacheTTL}
}

func (c *UserAgentCheck) Name() string { return "user_agent" }

func (c *UserAgentCheck) Applicable(input *models.EvaluateInput) bool {
	return input.UserAgent != ""
}

func (c *UserAgentCheck) Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult {
	r := models.NewCheckResult(c.Name())
	ua := input.UserAgent

	if len(ua) < 10 {
		r.Passed = false
		r.Score = 50
		return *r
	}

	hash := sha256Hex(ua)
	if known, err := c.knownUserAgent(ctx, hash); err != nil {
		util.Debug("user agent check: known-ua lookup failed", zap.Error(err))
	} else if known != nil {
		r.Details["known_category"] = known.Category
		if known.RiskWeight > 0 {
			r.Add("known_ua_risk_weight", true, known.RiskWeight, "known user agent risk weight")
		}
		if known.Category == "malicious" {
			r.Details["known_malicious"] = true
		}
	}

	lowered := strings.ToLower(ua)
	r.Add("bot_pattern", containsAny(lowered, botPatterns), 40, "matches known bot pattern")
	r.Add("automation_pattern", containsAny(lowered, automationPatterns), 50, "matches automation-tool pattern")
	if containsAny(lowered, maliciousUAPatterns) {
		r.Details["known_malicious"] = true
		r.Add("malicious_pattern", true, 80, "matches known-malicious pattern")
	}
	r.Add("language_pattern", containsAny(lowered, languagePatterns), 30, "matches programming-language HTTP client pattern")

	if browser, version, ok := parseBrowserVersion(ua); ok {
		r.Details["browser"] = browser
		r.Details["browser_version"] = version
		if bump, ok := outdatedBrowsers[browser+"-"+strconv.Itoa(version)]; ok {
			r.Add("outdated_browser", true, bump, "outdated browser version")
		}
	}

	r.Add("too_short", len(ua) < 20, 30, "unusually short user agent")
	r.Add("too_long", len(ua) > 500, 20, "unusually long user agent")
	r.Add("missing_engine_token", !containsAny(lowered, []string{"mozilla", "webkit", "gecko"}), 25, "missing common engine token")
	r.Add("malicious_keyword", containsAny(lowered, badSubstrings), 60, "contains suspicious keyword")
	r.Add("repeated_run", hasRepeatedRun(ua, 11), 40, "long repeated character run")
	r.Add("suspicious_chars", suspiciousCharPattern.MatchString(ua), 50, "contains characters outside the expected set")

	count, err := c.velocity.Bump(ctx, "ua_day", hash, uaDayWindow)
	if err != nil {
		util.Debug("user agent check: velocity bump failed", zap.Error(err))
	} else {
		if count > 1000 {
			r.Add("frequency", true, 20, "more than 1000 occurrences today")
		} else if count > 100 {
			r.Add("frequency", true, 10, "more than 100 occurrences today")
		}
	}

	r.Finalize()
	return *r
}

func (c *UserAgentCheck) knownUserAgent(ctx context.Context, hash string) (*models.KnownUserAgent, error) {
	var cached models.KnownUserAgent
	ok, err := c.refCache.Get(ctx, "known_ua", hash, &cached)
	if ok {
		return &cached, nil
	}
	if err != nil && redis.IsNegativeHit(err) {
		return nil, nil
	}
	ua, lookupErr := c.refRepo.LookupUserAgent(ctx, hash)
	if lookupErr == postgres.ErrNotFound {
		_ = c.refCache.SetMiss(ctx, "known_ua", hash, c.cacheTTL)
		return nil, nil
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	_ = c.refCache.Set(ctx, "known_ua", hash, ua, c.cacheTTL)
	return ua, nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// hasRepeatedRun reports whether s holds the same character n or more
// times in a row.
func hasRepeatedRun(s string, n int) bool {
	run := 0
	var prev rune
	for i, ch := range s {
		if i > 0 && ch == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = ch
	}
	return false
}

func parseBrowserVersion(ua string) (string, int, bool) {
	m := browserVersionPattern.FindStringSubmatch(ua)
	if len(m) != 3 {
		return "", 0, false
	}
	version, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], version, true
}
