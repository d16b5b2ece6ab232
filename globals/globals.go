package globals

// Context keys
type ContextKey string

const (
	RoleKey      ContextKey = "role"
	UserIDKey    ContextKey = "userId"
	ClaimsKey    ContextKey = "claims"
	RequestIDKey ContextKey = "requestId"
)
