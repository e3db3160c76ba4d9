// Package normalizer parses vendor firewall log documents embedded in raw
// subscription records into the canonical ParsedEvent form. A record that
// fails to parse is dropped individually; the batch keeps going.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// wafLog mirrors the vendor document. Several fields exist both nested under
// httpRequest and flat at the top level depending on the forwarder, so both
// spellings are accepted.
type wafLog struct {
	Timestamp         int64      `json:"timestamp"`
	Action            string     `json:"action"`
	TerminatingRuleID string     `json:"terminatingRuleId"`
	RuleID            string     `json:"ruleId"`
	WebACLID          string     `json:"webaclId"`
	HTTPRequest       *wafreq    `json:"httpRequest"`
	ClientIP          string     `json:"clientIp"`
	Country           string     `json:"country"`
	Region            string     `json:"region"`
	URI               string     `json:"uri"`
	HTTPMethod        string     `json:"httpMethod"`
	UserAgent         string     `json:"userAgent"`
}

type wafreq struct {
	ClientIP   string      `json:"clientIp"`
	Country    string      `json:"country"`
	URI        string      `json:"uri"`
	HTTPMethod string      `json:"httpMethod"`
	Headers    []wafHeader `json:"headers"`
}

type wafHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Normalize parses each record's message document. It returns the parsed
// events plus one error string per dropped record; errors are returned, not
// raised, so the orchestrator can report partial success.
func Normalize(records []models.RawRecord) ([]models.ParsedEvent, []string) {
	events := make([]models.ParsedEvent, 0, len(records))
	var errs []string

	for _, rec := range records {
		ev, err := normalizeRecord(rec)
		if err != nil {
			errs = append(errs, fmt.Sprintf("record %s: %v", rec.ID, err))
			continue
		}
		events = append(events, ev)
	}

	return events, errs
}

func normalizeRecord(rec models.RawRecord) (models.ParsedEvent, error) {
	var doc wafLog
	if err := json.Unmarshal([]byte(rec.Message), &doc); err != nil {
		return models.ParsedEvent{}, fmt.Errorf("parse log document: %w", err)
	}
	if doc.Action == "" {
		return models.ParsedEvent{}, fmt.Errorf("log document has no action")
	}

	ts := doc.Timestamp
	if ts == 0 {
		ts = rec.Timestamp
	}

	ev := models.ParsedEvent{
		Timestamp:   time.UnixMilli(ts).UTC(),
		Action:      strings.ToUpper(doc.Action),
		SourceIP:    doc.ClientIP,
		Country:     doc.Country,
		Region:      region(doc),
		UserAgent:   doc.UserAgent,
		URI:         doc.URI,
		HTTPMethod:  doc.HTTPMethod,
		RuleMatched: ruleMatched(doc),
		RawLog:      rec.Message,
	}

	if req := doc.HTTPRequest; req != nil {
		if ev.SourceIP == "" {
			ev.SourceIP = req.ClientIP
		}
		if ev.Country == "" {
			ev.Country = req.Country
		}
		if ev.URI == "" {
			ev.URI = req.URI
		}
		if ev.HTTPMethod == "" {
			ev.HTTPMethod = req.HTTPMethod
		}
		if ev.UserAgent == "" {
			ev.UserAgent = headerValue(req.Headers, "user-agent")
		}
	}

	return ev, nil
}

func ruleMatched(doc wafLog) string {
	if doc.TerminatingRuleID != "" {
		return doc.TerminatingRuleID
	}
	return doc.RuleID
}

// region prefers the flat field and falls back to the region segment of the
// web ACL ARN (arn:aws:wafv2:REGION:account:...).
func region(doc wafLog) string {
	if doc.Region != "" {
		return doc.Region
	}
	parts := strings.Split(doc.WebACLID, ":")
	if len(parts) >= 4 && parts[0] == "arn" {
		return parts[3]
	}
	return ""
}

func headerValue(headers []wafHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
