package models

import "time"

// TorExitNode is one row of the refreshed Tor exit-node list, keyed by
// the exit IP. SourceVersion is the identifier of the refresh run that
// last reported the row; the flip-before-upsert sweep itself retires
// rows by is_active and last_seen_at.
type TorExitNode struct {
	IP            string    `json:"ip"`
	IsActive      bool      `json:"is_active"`
	SourceVersion string    `json:"source_version"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

// DisposableEmailDomain is one row of the refreshed disposable-domain
// list.
type DisposableEmailDomain struct {
	Domain        string    `json:"domain"`
	IsActive      bool      `json:"is_active"`
	SourceVersion string    `json:"source_version"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

// ASN is one autonomous-system record with its owned CIDR ranges and a
// risk classification (hosting/VPN providers score higher than ISPs).
type ASN struct {
	ASNumber      int64     `json:"asn"`
	Name          string    `json:"name"`
	IPRanges      []string  `json:"ip_ranges"`
	RiskCategory  string    `json:"risk_category"` // isp, hosting, vpn, unknown
	RiskWeight    int       `json:"risk_weight"`
	IsDatacenter  bool      `json:"is_datacenter"`
	IsVPNOrProxy  bool      `json:"is_vpn_or_proxy"`
	IsActive      bool      `json:"is_active"`
	SourceVersion string    `json:"source_version"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

const (
	ASNRiskISP     = "isp"
	ASNRiskHosting = "hosting"
	ASNRiskVPN     = "vpn"
	ASNRiskUnknown = "unknown"
)

// KnownUserAgent is one row of the refreshed legitimate-client-hints
// catalog used by the User-Agent check to distinguish known browser
// strings from unrecognized/scripted ones.
type KnownUserAgent struct {
	Pattern       string    `json:"pattern"`
	Category      string    `json:"category"` // browser, bot, library, malicious, unknown
	RiskWeight    int       `json:"risk_weight"`
	IsActive      bool      `json:"is_active"`
	SourceVersion string    `json:"source_version"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

// BlacklistEntry is a manually curated block/allow entry keyed by the
// index hash of an identity field (email, IP, card, or phone). Entries
// are operator-maintained, not refresh-pipeline-sourced.
type BlacklistEntry struct {
	IndexHash string    `json:"index_hash"`
	Field     string    `json:"field"` // email, ip, credit_card, phone
	Reason    string    `json:"reason,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	FieldEmail      = "email"
	FieldIP         = "ip"
	FieldCreditCard = "credit_card"
	FieldPhone      = "phone"
)
