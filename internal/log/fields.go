package log

// Common field names for structured logging
const (
	FieldComponent          = "component"
	FieldRequestID          = "request_id"
	FieldClientIP           = "client_ip"
	FieldMethod             = "method"
	FieldPath               = "path"
	FieldQuery              = "query"
	FieldStatusCode         = "status_code"
	FieldDuration           = "duration_ms"
	FieldUserAgent          = "user_agent"
	FieldSuccess            = "success"
	FieldError              = "error"
	FieldOperation          = "operation"
	FieldUserID             = "user_id"
	FieldBudgetID           = "budget_id"
	FieldTemplateID         = "template_id"
	FieldMonth              = "month"
	FieldRecurringExpenseID = "recurring_expense_id"
	FieldExpenseID          = "expense_id"
	FieldAmountCents        = "amount_cents"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentRecurring   = "recurring"
	ComponentBudget      = "budget"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentMaterialize = "materialize"
	ComponentRateLimit   = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpGenerate    = "generate"
	OpMaterialize = "materialize"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID int64) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithBudget adds the budget id and its month.
func (f LogFields) WithBudget(budgetID int64, month string) LogFields {
	f[FieldBudgetID] = budgetID
	f[FieldMonth] = month
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
