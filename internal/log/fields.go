package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldCallerID    = "caller_id"
	FieldCacheKey    = "cache_key"
	FieldAmountCents = "amount_cents"
	FieldTxnID       = "transaction_id"
	FieldTxnType     = "transaction_type"
	FieldCategoryID  = "category_id"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentAuth        = "auth"
	ComponentTransaction = "transaction"
	ComponentCategory    = "category"
	ComponentUser        = "user"
	ComponentStorage     = "storage"
	ComponentCache       = "cache"
	ComponentAnalytics   = "analytics"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentRateLimit   = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpLogin    = "login"
	OpRegister = "register"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
