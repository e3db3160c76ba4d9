package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Firewall actions as they appear in WAF decision logs.
const (
	ActionAllow = "ALLOW"
	ActionBlock = "BLOCK"
	ActionCount = "COUNT"
)

// Severity levels assigned by the threat classifier.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ThreatTypeUnknown marks events that matched no signature.
const ThreatTypeUnknown = "unknown"

// ParsedEvent is the canonical normalized form of one firewall log record.
// It is immutable once constructed by the normalizer.
type ParsedEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	SourceIP    string    `json:"source_ip"`
	Country     string    `json:"country"`
	Region      string    `json:"region"`
	UserAgent   string    `json:"user_agent"`
	URI         string    `json:"uri"`
	HTTPMethod  string    `json:"http_method"`
	RuleMatched string    `json:"rule_matched"`
	RawLog      string    `json:"raw_log"`
}

// Classification is the pure, deterministic output of the threat classifier.
type Classification struct {
	ThreatType string `json:"threat_type"`
	Severity   string `json:"severity"`
}

// IsEscalatable reports whether the severity warrants handing the event to
// the campaign/alert collaborator.
func (c Classification) IsEscalatable() bool {
	return c.Severity == SeverityHigh || c.Severity == SeverityCritical
}

// PersistedEvent is the durable record written to the event store. ID is the
// deterministic content hash; a second arrival with the same hash is a no-op.
type PersistedEvent struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organization_id"`
	MonitoredAccountID string    `json:"monitored_account_id"`
	Timestamp          time.Time `json:"timestamp"`
	Action             string    `json:"action"`
	SourceIP           string    `json:"source_ip"`
	Country            string    `json:"country"`
	Region             string    `json:"region"`
	UserAgent          string    `json:"user_agent"`
	URI                string    `json:"uri"`
	HTTPMethod         string    `json:"http_method"`
	RuleMatched        string    `json:"rule_matched"`
	ThreatType         string    `json:"threat_type"`
	Severity           string    `json:"severity"`
	RawLog             string    `json:"raw_log"`
	IsCampaign         bool      `json:"is_campaign"`
	CampaignID         *string   `json:"campaign_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewPersistedEvent builds the durable record for an attributed, classified
// event. The id covers (org, timestamp, source ip, uri, method, action) so
// re-delivery of the same underlying log entry produces the same id.
func NewPersistedEvent(orgID, accountID string, ev ParsedEvent, cl Classification, now time.Time) *PersistedEvent {
	return &PersistedEvent{
		ID:                 EventContentHash(orgID, ev.Timestamp, ev.SourceIP, ev.URI, ev.HTTPMethod, ev.Action),
		OrganizationID:     orgID,
		MonitoredAccountID: accountID,
		Timestamp:          ev.Timestamp,
		Action:             ev.Action,
		SourceIP:           ev.SourceIP,
		Country:            ev.Country,
		Region:             ev.Region,
		UserAgent:          ev.UserAgent,
		URI:                ev.URI,
		HTTPMethod:         ev.HTTPMethod,
		RuleMatched:        ev.RuleMatched,
		ThreatType:         cl.ThreatType,
		Severity:           cl.Severity,
		RawLog:             ev.RawLog,
		CreatedAt:          now,
	}
}

// EventContentHash computes the deterministic dedup identifier:
// sha256 over the identity tuple, truncated to 32 hex characters.
func EventContentHash(orgID string, ts time.Time, sourceIP, uri, method, action string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d%s%s%s%s",
		orgID, ts.UnixMilli(), sourceIP, uri, method, action)))
	return hex.EncodeToString(sum[:])[:32]
}

// MonitoringConfig is a tenant-owned registry row describing a monitored
// account. The pipeline looks these up and bumps their rolling counters; it
// never creates them.
type MonitoringConfig struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	MonitoredAccountID string     `json:"monitored_account_id"`
	LogGroupName       string     `json:"log_group_name"`
	WebACLName         string     `json:"web_acl_name"`
	IsActive           bool       `json:"is_active"`
	EventsToday        int64      `json:"events_today"`
	BlockedToday       int64      `json:"blocked_today"`
	LastEventAt        *time.Time `json:"last_event_at"`
}

// CloudCredential holds the account identity material consulted by the
// fallback attribution strategy. Either AccountID is set directly or the
// account id is embedded in RoleARN.
type CloudCredential struct {
	ConfigID  string `json:"config_id"`
	AccountID string `json:"account_id"`
	RoleARN   string `json:"role_arn"`
}
