package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService = "service"

	// Storage
	FieldDriver    = "db_driver"
	FieldStrategy  = "db_strategy"
	FieldMessageID = "message_id"
	FieldCount     = "count"

	// Events
	FieldChannel   = "channel"
	FieldEventType = "event_type"
)
