package models

// BatchResult is what one pipeline run reports back to the delivery caller.
// Success is false when attribution failed or any record-level error was
// accumulated; the upstream subscription uses it to decide whether to retry.
type BatchResult struct {
	Success           bool     `json:"success"`
	EventsReceived    int      `json:"events_received"`
	EventsParsed      int      `json:"events_parsed"`
	EventsSaved       int      `json:"events_saved"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	Errors            []string `json:"errors"`
}
