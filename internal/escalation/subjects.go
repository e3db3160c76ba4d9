package escalation

// Subject constants for the message bus.
// Follow the pattern: {domain}.{action}.{resource}
const (
	// SubjectEventsEscalated carries high/critical events for the campaign
	// detector and alert dispatcher.
	SubjectEventsEscalated = "waf.events.escalated"
)
