package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldKey         = "key"
	FieldBackend     = "backend"
	FieldURL         = "url"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldCount       = "count"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldTxID        = "transaction_id"
	FieldContribID   = "contribution_id"
	FieldView        = "view"
	FieldAuthState   = "auth_state"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentLedger   = "ledger"
	ComponentStore    = "store"
	ComponentCache    = "cache"
	ComponentSync     = "sync"
	ComponentBudget   = "budget"
	ComponentGoal     = "goal"
	ComponentSettings = "settings"
	ComponentAuth     = "auth"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentBackend  = "backend"
	ComponentSheets   = "sheets"
	ComponentAPI      = "api"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpSummary   = "summary"
	OpSync      = "sync"
	OpReconcile = "reconcile"
	OpValidate  = "validate"
	OpDecode    = "decode"
	OpRefresh   = "refresh"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeDecode        = "decode_error"
	ErrorTypeRejected      = "rejected_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithKey adds a local store key
func (f LogFields) WithKey(key string) LogFields {
	f[FieldKey] = key
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(desc, category string, amount int64) LogFields {
	f[FieldDescription] = desc
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

// WithHTTP adds request target and response status
func (f LogFields) WithHTTP(url string, statusCode int, durationMs int64) LogFields {
	f[FieldURL] = url
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// Args flattens the fields into slog key/value pairs, sorted by key.
func (f LogFields) Args() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(f)*2)
	for _, k := range keys {
		args = append(args, k, f[k])
	}
	return args
}
