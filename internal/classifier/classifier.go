// Package classifier maps a normalized firewall event to a threat type and
// severity. Classification is a pure function of the event: no I/O, no
// clock, same input always yields the same output. The dedup layer depends
// on that determinism.
package classifier

import (
	"sort"
	"strings"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// Classify returns the classification for ev. The second return value is
// false when the event carries no classification at all, which happens for
// ALLOW events that match no signature.
//
// Explicit signature matches take precedence over action-based defaults. A
// BLOCK with no signature match is still at least low severity. A signature
// that matches on both its rule name and its URI patterns is escalated one
// severity step, which is how count-mode probing of a known attack class
// reaches critical.
func Classify(ev models.ParsedEvent) (models.Classification, bool) {
	if m, ok := bestMatch(ev); ok {
		sev := m.sig.severity
		if m.ruleHit && m.uriHit {
			sev = escalate(sev)
		}
		return models.Classification{ThreatType: m.sig.threatType, Severity: sev}, true
	}

	if ev.Action == models.ActionBlock {
		return models.Classification{ThreatType: models.ThreatTypeUnknown, Severity: models.SeverityLow}, true
	}

	return models.Classification{}, false
}

type match struct {
	sig     signature
	ruleHit bool
	uriHit  bool
}

// score ranks matches: an explicit rule-name hit outranks any URI-only hit,
// then signature specificity breaks ties between heuristics of the same
// kind. Name ordering makes the result total.
func (m match) score() int {
	s := m.sig.specificity
	if m.ruleHit {
		s += 100
	}
	if m.uriHit {
		s += 10
	}
	return s
}

func bestMatch(ev models.ParsedEvent) (match, bool) {
	rule := strings.ToLower(ev.RuleMatched)
	uri := strings.ToLower(ev.URI)

	var matches []match
	for _, sig := range signatures {
		m := match{sig: sig}
		for _, p := range sig.rulePatterns {
			if rule != "" && strings.Contains(rule, p) {
				m.ruleHit = true
				break
			}
		}
		for _, p := range sig.uriPatterns {
			if uri != "" && strings.Contains(uri, p) {
				m.uriHit = true
				break
			}
		}
		if m.ruleHit || m.uriHit {
			matches = append(matches, m)
		}
	}

	if len(matches) == 0 {
		return match{}, false
	}

	sort.Slice(matches, func(i, j int) bool {
		si, sj := matches[i].score(), matches[j].score()
		if si != sj {
			return si > sj
		}
		return matches[i].sig.name < matches[j].sig.name
	})

	return matches[0], true
}

func escalate(severity string) string {
	switch severity {
	case models.SeverityLow:
		return models.SeverityMedium
	case models.SeverityMedium:
		return models.SeverityHigh
	case models.SeverityHigh:
		return models.SeverityCritical
	default:
		return severity
	}
}
