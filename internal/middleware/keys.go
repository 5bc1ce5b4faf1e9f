package middleware

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// --- Logger Keys ---
	RequestFileLoggerKey ContextKey = "requestFileLogger"
	RequestADXLoggerKey  ContextKey = "requestADXLogger"
	RequestIDHeader                 = "X-Request-ID"

	// --- JWT Middleware Keys ---
	AuthorizationHeader            = "Authorization"
	BearerPrefix                   = "Bearer "
	SubjectKey          ContextKey = "subject" // authenticated token subject

	RequestIDKey ContextKey = "requestID"
)
