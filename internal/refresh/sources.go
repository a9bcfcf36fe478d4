package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fraudengine/internal/config"
	"fraudengine/internal/models"
)

const batchSize = 500

// torSource refreshes the Tor exit-node list. The plain-text feed is
// preferred when configured (one IP per line); the onionoo JSON feed
// is paginated and each relay may list several exit_addresses.
type torSource struct{}

func (s *torSource) Name() string { return "tor" }

func (s *torSource) MinInterval(sched config.RefreshScheduleConfig) time.Duration {
	return sched.TorMinInterval
}

func (s *torSource) Run(ctx context.Context, p *Pipeline) (int, error) {
	urls := p.SourceURLs().TorIPListURLs
	var nodes []models.TorExitNode
	for _, url := range urls {
		f, err := fetchToTempFile(ctx, url)
		if err != nil {
			return 0, err
		}
		_, _ = scanLines(f, batchSize, parseTorIPLine, func(batch []models.TorExitNode) error {
			nodes = append(nodes, batch...)
			return nil
		})
		removeTemp(f)
	}

	if jsonURL := p.SourceURLs().TorJSONURL; jsonURL != "" {
		more, err := fetchTorJSON(ctx, jsonURL)
		if err != nil {
			return 0, err
		}
		nodes = append(nodes, more...)
	}

	if len(nodes) == 0 {
		return 0, fmt.Errorf("tor refresh: no exit nodes parsed from any configured source")
	}

	version := sourceVersion()
	if err := p.ReferenceRepository().UpsertTorNodes(ctx, dedupeTorNodes(nodes), version, retentionWindow); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func parseTorIPLine(line string) (models.TorExitNode, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return models.TorExitNode{}, false
	}
	if net.ParseIP(line) == nil {
		return models.TorExitNode{}, false
	}
	return models.TorExitNode{IP: line, IsActive: true, LastSeenAt: time.Now()}, true
}

type torRelay struct {
	Nickname      string   `json:"nickname"`
	Fingerprint   string   `json:"fingerprint"`
	ExitAddresses []string `json:"exit_addresses"`
	LastSeen      string   `json:"last_seen"`
}

type torOnionooResponse struct {
	Relays []torRelay `json:"relays"`
}

func fetchTorJSON(ctx context.Context, url string) ([]models.TorExitNode, error) {
	f, err := fetchToTempFile(ctx, url)
	if err != nil {
		return nil, err
	}
	defer removeTemp(f)

	var resp torOnionooResponse
	if err := json.NewDecoder(f).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode tor onionoo response: %w", err)
	}

	var out []models.TorExitNode
	for _, relay := range resp.Relays {
		for _, addr := range relay.ExitAddresses {
			ip := addr
			if host, _, err := net.SplitHostPort(addr); err == nil {
				ip = host
			}
			if net.ParseIP(ip) == nil {
				continue
			}
			out = append(out, models.TorExitNode{IP: ip, IsActive: true, LastSeenAt: time.Now()})
		}
	}
	return out, nil
}

func dedupeTorNodes(nodes []models.TorExitNode) []models.TorExitNode {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]models.TorExitNode, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n.IP]; ok {
			continue
		}
		seen[n.IP] = struct{}{}
		out = append(out, n)
	}
	return out
}

// disposableSource refreshes the disposable/temporary email domain
// blocklist. Text feeds are a commented newline list of domains; JSON
// feeds are a plain array of domain strings.
type disposableSource struct{}

func (s *disposableSource) Name() string { return "disposable_emails" }

func (s *disposableSource) MinInterval(sched config.RefreshScheduleConfig) time.Duration {
	return sched.DisposableMinInterval
}

func (s *disposableSource) Run(ctx context.Context, p *Pipeline) (int, error) {
	var domains []models.DisposableEmailDomain

	for _, url := range p.SourceURLs().DisposableTextURLs {
		f, err := fetchToTempFile(ctx, url)
		if err != nil {
			return 0, err
		}
		_, _ = scanLines(f, batchSize, parseDisposableLine, func(batch []models.DisposableEmailDomain) error {
			domains = append(domains, batch...)
			return nil
		})
		removeTemp(f)
	}

	for _, url := range p.SourceURLs().DisposableJSONURLs {
		f, err := fetchToTempFile(ctx, url)
		if err != nil {
			return 0, err
		}
		names, err := decodeJSONArray[string](f)
		removeTemp(f)
		if err != nil {
			return 0, err
		}
		for _, n := range names {
			if d, ok := parseDisposableLine(n); ok {
				domains = append(domains, d)
			}
		}
	}

	if len(domains) == 0 {
		return 0, fmt.Errorf("disposable domain refresh: no domains parsed from any configured source")
	}

	version := sourceVersion()
	if err := p.ReferenceRepository().UpsertDisposableDomains(ctx, dedupeDomains(domains), version, retentionWindow); err != nil {
		return 0, err
	}
	return len(domains), nil
}

func parseDisposableLine(line string) (models.DisposableEmailDomain, bool) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, ".") {
		return models.DisposableEmailDomain{}, false
	}
	return models.DisposableEmailDomain{Domain: line, IsActive: true, LastSeenAt: time.Now()}, true
}

func dedupeDomains(domains []models.DisposableEmailDomain) []models.DisposableEmailDomain {
	seen := make(map[string]struct{}, len(domains))
	out := make([]models.DisposableEmailDomain, 0, len(domains))
	for _, d := range domains {
		if _, ok := seen[d.Domain]; ok {
			continue
		}
		seen[d.Domain] = struct{}{}
		out = append(out, d)
	}
	return out
}

// asnSource refreshes the ASN classification table from a master list
// (asn, country code, organization name) plus an optional second feed
// of CIDR ranges keyed by ASN, merged into the same rows.
type asnSource struct{}

func (s *asnSource) Name() string { return "asn" }

func (s *asnSource) MinInterval(sched config.RefreshScheduleConfig) time.Duration {
	return sched.ASNMinInterval
}

var asnLinePattern = regexp.MustCompile(`^(\d+)\s+([A-Z]{2})\s+(.+)$`)

func (s *asnSource) Run(ctx context.Context, p *Pipeline) (int, error) {
	listURL := p.SourceURLs().ASNListURL
	if listURL == "" {
		return 0, fmt.Errorf("asn refresh: no master list URL configured")
	}

	f, err := fetchToTempFile(ctx, listURL)
	if err != nil {
		return 0, err
	}
	asnByNumber := make(map[int64]*models.ASN)
	_, _ = scanLines(f, batchSize, parseASNLine, func(batch []models.ASN) error {
		for _, a := range batch {
			a := a
			asnByNumber[a.ASNumber] = &a
		}
		return nil
	})
	removeTemp(f)

	if len(asnByNumber) == 0 {
		return 0, fmt.Errorf("asn refresh: no rows parsed from master list")
	}

	if rangesURL := p.SourceURLs().ASNRangesURL; rangesURL != "" {
		rf, err := fetchToTempFile(ctx, rangesURL)
		if err != nil {
			return 0, err
		}
		_, _ = scanLines(rf, batchSize, parseASNRangeLine, func(batch []asnRange) error {
			for _, rng := range batch {
				if a, ok := asnByNumber[rng.asn]; ok {
					a.IPRanges = append(a.IPRanges, rng.cidr)
				}
			}
			return nil
		})
		removeTemp(rf)
	}

	out := make([]models.ASN, 0, len(asnByNumber))
	for _, a := range asnByNumber {
		out = append(out, *a)
	}

	version := sourceVersion()
	if err := p.ReferenceRepository().UpsertASNs(ctx, out, version, retentionWindow); err != nil {
		return 0, err
	}
	return len(out), nil
}

func parseASNLine(line string) (models.ASN, bool) {
	m := asnLinePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return models.ASN{}, false
	}
	number, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return models.ASN{}, false
	}
	org := m[3]
	category, weight, isDatacenter, isVPN := classifyASNOrg(org)
	return models.ASN{
		ASNumber:     number,
		Name:         fmt.Sprintf("%s (%s)", org, m[2]),
		RiskCategory: category,
		RiskWeight:   weight,
		IsDatacenter: isDatacenter,
		IsVPNOrProxy: isVPN,
		IsActive:     true,
		LastSeenAt:   time.Now(),
	}, true
}

// classifyASNOrg makes a coarse guess from the organization name alone
// when no richer classification feed is configured; operators can
// refine individual rows afterward via the admin blacklist endpoints.
func classifyASNOrg(org string) (category string, weight int, isDatacenter, isVPN bool) {
	lower := strings.ToLower(org)
	switch {
	case strings.Contains(lower, "vpn") || strings.Contains(lower, "proxy"):
		return models.ASNRiskVPN, 70, true, true
	case strings.Contains(lower, "hosting") || strings.Contains(lower, "cloud") || strings.Contains(lower, "datacenter") || strings.Contains(lower, "data center") || strings.Contains(lower, "server"):
		return models.ASNRiskHosting, 50, true, false
	case strings.Contains(lower, "telecom") || strings.Contains(lower, "mobile") || strings.Contains(lower, "broadband") || strings.Contains(lower, "communications"):
		return models.ASNRiskISP, 10, false, false
	default:
		return models.ASNRiskUnknown, 25, false, false
	}
}

type asnRange struct {
	asn  int64
	cidr string
}

func parseASNRangeLine(line string) (asnRange, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return asnRange{}, false
	}
	number, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return asnRange{}, false
	}
	if _, _, err := net.ParseCIDR(fields[1]); err != nil {
		return asnRange{}, false
	}
	return asnRange{asn: number, cidr: fields[1]}, true
}

// userAgentSource refreshes the known-user-agent catalog: a JSON array
// of objects identifying either a raw browser pattern or a bot/library
// signature, keyed loosely since feeds in the wild disagree on field
// names.
type userAgentSource struct{}

func (s *userAgentSource) Name() string { return "user_agents" }

func (s *userAgentSource) MinInterval(sched config.RefreshScheduleConfig) time.Duration {
	return sched.UserAgentMinInterval
}

type userAgentEntry struct {
	Pattern   string `json:"pattern"`
	UserAgent string `json:"userAgent"`
	Name      string `json:"name"`
	Browser   string `json:"browser"`
	Version   string `json:"version"`
	Category  string `json:"category"`
}

func (s *userAgentSource) Run(ctx context.Context, p *Pipeline) (int, error) {
	url := p.SourceURLs().UserAgentJSONURL
	if url == "" {
		return 0, fmt.Errorf("user agent refresh: no catalog URL configured")
	}

	f, err := fetchToTempFile(ctx, url)
	if err != nil {
		return 0, err
	}
	entries, err := decodeJSONArray[userAgentEntry](f)
	removeTemp(f)
	if err != nil {
		return 0, err
	}

	agents := make([]models.KnownUserAgent, 0, len(entries))
	for _, e := range entries {
		pattern := firstNonEmpty(e.Pattern, e.UserAgent)
		if pattern == "" {
			continue
		}
		category := e.Category
		if category == "" {
			category = "browser"
		}
		agents = append(agents, models.KnownUserAgent{
			Pattern:    sha256Hex(pattern),
			Category:   category,
			RiskWeight: userAgentRiskWeight(category),
			IsActive:   true,
			LastSeenAt: time.Now(),
		})
	}

	if len(agents) == 0 {
		return 0, fmt.Errorf("user agent refresh: no agents parsed from catalog")
	}

	version := sourceVersion()
	if err := p.ReferenceRepository().UpsertUserAgents(ctx, agents, version, retentionWindow); err != nil {
		return 0, err
	}
	return len(agents), nil
}

func userAgentRiskWeight(category string) int {
	switch category {
	case "malicious":
		return 90
	case "bot":
		return 40
	case "library":
		return 30
	default:
		return 0
	}
}

// sha256Hex matches the check-side hash (internal/checks.sha256Hex) so
// the pattern column is keyed by sha256 of the user-agent string on
// both the write (refresh) and read (check) sides.
func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sourceVersion stamps each refresh run's rows with a monotonically
// meaningful version string. Timestamps are otherwise off-limits in
// this codebase's deterministic paths, but a refresh run is an
// inherently real-time operation invoked from cmd/refresh, not a
// request-scoped evaluation.
func sourceVersion() string {
	return time.Now().UTC().Format("20060102T150405")
}
