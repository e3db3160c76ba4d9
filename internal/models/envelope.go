package models

// Message types carried in a CloudWatch Logs subscription envelope.
const (
	MessageTypeData    = "DATA_MESSAGE"
	MessageTypeControl = "CONTROL_MESSAGE"
)

// LogBatchEnvelope is one decoded CloudWatch Logs subscription delivery.
// Owner is the AWS account that emitted the logs; it is not a tenant
// identifier and must never be used as one.
type LogBatchEnvelope struct {
	MessageType         string      `json:"messageType"`
	Owner               string      `json:"owner"`
	LogGroup            string      `json:"logGroup"`
	LogStream           string      `json:"logStream"`
	SubscriptionFilters []string    `json:"subscriptionFilters"`
	LogEvents           []RawRecord `json:"logEvents"`
}

// IsControl reports whether the envelope is a subscription control message.
// Control messages carry no log data and short-circuit the pipeline.
func (e *LogBatchEnvelope) IsControl() bool {
	return e.MessageType == MessageTypeControl
}

// RawRecord is one record in the envelope. Message is an embedded JSON
// document whose shape is firewall-vendor specific and may fail to parse.
type RawRecord struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}
