package globals

// JwtSecret signs and verifies bearer tokens; main sets it from config.
var JwtSecret = []byte("change-me")

// Context keys
type ContextKey string

const (
	RoleKey        ContextKey = "role"
	UserIDKey      ContextKey = "userId"
	PermissionsKey ContextKey = "permissions"
)
