package logger

// Standard field names for structured logging across mapknowledge.
const (
	FieldEntity   = "entity"
	FieldSource   = "source"
	FieldPath     = "path"
	FieldProvider = "provider"
	FieldError    = "error"
	FieldFailure  = "failure"
	FieldFrom     = "from"
	FieldTo       = "to"
	FieldSession  = "session"
	FieldCount    = "count"
)
