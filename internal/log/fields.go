package log

// Attribute keys shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldBackend    = "backend"
	FieldView       = "view"
	FieldLocations  = "locations"
	FieldCategories = "categories"
	FieldRides      = "rides"
	FieldImportID   = "import_id"
	FieldSource     = "source"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLoader   = "loader"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentCharts   = "charts"
	ComponentImport   = "import"
	ComponentSecurity = "security"
	ComponentBackend  = "backend"
	ComponentTemplate = "template"
)

const (
	OpLoad    = "load"
	OpRender  = "render"
	OpImport  = "import"
	OpPublish = "publish"
	OpConsume = "consume"
)

// ErrorTypeTimeout tags failures caused by an expired deadline.
const ErrorTypeTimeout = "timeout_error"

// Fields collects key/value pairs in insertion order. Setting a key twice
// keeps the first position and the last value.
type Fields struct {
	keys   []string
	values map[string]any
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// With sets key to value.
func (f *Fields) With(key string, value any) *Fields {
	if _, seen := f.values[key]; !seen {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return f
}

// withNonEmpty sets key only when value is not empty.
func (f *Fields) withNonEmpty(key, value string) *Fields {
	if value == "" {
		return f
	}
	return f.With(key, value)
}

func (f *Fields) WithError(err error) *Fields {
	if err == nil {
		return f
	}
	return f.With(FieldError, err.Error())
}

func (f *Fields) WithOperation(op string) *Fields {
	return f.With(FieldOperation, op)
}

// WithSnapshot records the collection sizes of a dataset.
func (f *Fields) WithSnapshot(locations, categories, rides int) *Fields {
	return f.With(FieldLocations, locations).
		With(FieldCategories, categories).
		With(FieldRides, rides)
}

// Args flattens the fields into slog's alternating key/value form.
func (f *Fields) Args() []any {
	if f == nil {
		return nil
	}
	args := make([]any, 0, 2*len(f.keys))
	for _, k := range f.keys {
		args = append(args, k, f.values[k])
	}
	return args
}
