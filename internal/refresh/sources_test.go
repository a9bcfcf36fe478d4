package refresh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudengine/internal/models"
)

func TestParseTorIPLine(t *testing.T) {
	node, ok := parseTorIPLine("185.220.101.1")
	require.True(t, ok)
	assert.Equal(t, "185.220.101.1", node.IP)
	assert.True(t, node.IsActive)

	_, ok = parseTorIPLine("# comment")
	assert.False(t, ok)

	_, ok = parseTorIPLine("")
	assert.False(t, ok)

	_, ok = parseTorIPLine("not-an-ip")
	assert.False(t, ok)
}

func TestDedupeTorNodes(t *testing.T) {
	nodes := []models.TorExitNode{
		{IP: "1.1.1.1"}, {IP: "2.2.2.2"}, {IP: "1.1.1.1"},
	}
	out := dedupeTorNodes(nodes)
	assert.Len(t, out, 2)
}

func TestParseDisposableLine(t *testing.T) {
	d, ok := parseDisposableLine("Mailinator.com")
	require.True(t, ok)
	assert.Equal(t, "mailinator.com", d.Domain)

	_, ok = parseDisposableLine("# header")
	assert.False(t, ok)

	_, ok = parseDisposableLine("nodotsatall")
	assert.False(t, ok)

	_, ok = parseDisposableLine("")
	assert.False(t, ok)
}

func TestDedupeDomains(t *testing.T) {
	domains := []models.DisposableEmailDomain{
		{Domain: "a.com"}, {Domain: "b.com"}, {Domain: "a.com"},
	}
	out := dedupeDomains(domains)
	assert.Len(t, out, 2)
}

func TestParseASNLine(t *testing.T) {
	asn, ok := parseASNLine("15169 US Google LLC")
	require.True(t, ok)
	assert.EqualValues(t, 15169, asn.ASNumber)
	assert.Equal(t, "Google LLC (US)", asn.Name)
	assert.Equal(t, models.ASNRiskUnknown, asn.RiskCategory)

	_, ok = parseASNLine("not a valid line")
	assert.False(t, ok)
}

func TestClassifyASNOrg(t *testing.T) {
	cases := []struct {
		org      string
		category string
		isVPN    bool
		isDC     bool
	}{
		{"NordVPN Services", models.ASNRiskVPN, true, true},
		{"Proxy Networks Inc", models.ASNRiskVPN, true, true},
		{"Amazon Cloud Hosting", models.ASNRiskHosting, false, true},
		{"DigitalOcean Data Center", models.ASNRiskHosting, false, true},
		{"Verizon Mobile Communications", models.ASNRiskISP, false, false},
		{"Some Random Org", models.ASNRiskUnknown, false, false},
	}
	for _, c := range cases {
		category, _, isDatacenter, isVPN := classifyASNOrg(c.org)
		assert.Equal(t, c.category, category, "org=%s", c.org)
		assert.Equal(t, c.isVPN, isVPN, "org=%s", c.org)
		assert.Equal(t, c.isDC, isDatacenter, "org=%s", c.org)
	}
}

func TestParseASNRangeLine(t *testing.T) {
	rng, ok := parseASNRangeLine("15169 8.8.8.0/24")
	require.True(t, ok)
	assert.EqualValues(t, 15169, rng.asn)
	assert.Equal(t, "8.8.8.0/24", rng.cidr)

	_, ok = parseASNRangeLine("15169 not-a-cidr")
	assert.False(t, ok)

	_, ok = parseASNRangeLine("just-one-field")
	assert.False(t, ok)
}

func TestUserAgentRiskWeight(t *testing.T) {
	assert.Equal(t, 90, userAgentRiskWeight("malicious"))
	assert.Equal(t, 40, userAgentRiskWeight("bot"))
	assert.Equal(t, 30, userAgentRiskWeight("library"))
	assert.Equal(t, 0, userAgentRiskWeight("browser"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestSha256Hex_MatchesCheckSideHash(t *testing.T) {
	// 64 lowercase hex chars, deterministic, and distinct from the raw
	// input so the refresh-side ingest key lines up with the check-side
	// lookup key computed from the same user-agent string.
	h := sha256Hex("Mozilla/5.0 SomeBot/1.0")
	assert.Len(t, h, 64)
	assert.NotEqual(t, "Mozilla/5.0 SomeBot/1.0", h)
	assert.Equal(t, h, sha256Hex("Mozilla/5.0 SomeBot/1.0"))
}
