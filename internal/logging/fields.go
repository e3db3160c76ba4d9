package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldService   = "service"
	FieldBatchID   = "batch_id"
	FieldOrgID     = "org_id"
	FieldAccountID = "account_id"
	FieldLogGroup  = "log_group"
	FieldLogStream = "log_stream"
	FieldRecordID  = "record_id"
	FieldEventID   = "event_id"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// BatchID returns a slog attribute for the batch ID.
func BatchID(id string) slog.Attr {
	return slog.String(FieldBatchID, id)
}

// OrgID returns a slog attribute for the attributed organization.
func OrgID(id string) slog.Attr {
	return slog.String(FieldOrgID, id)
}

// AccountID returns a slog attribute for the owner or monitored account.
func AccountID(id string) slog.Attr {
	return slog.String(FieldAccountID, id)
}

// LogGroup returns a slog attribute for the source log group.
func LogGroup(name string) slog.Attr {
	return slog.String(FieldLogGroup, name)
}

// RecordID returns a slog attribute for a raw record identifier.
func RecordID(id string) slog.Attr {
	return slog.String(FieldRecordID, id)
}

// EventID returns a slog attribute for a persisted event identifier.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}
