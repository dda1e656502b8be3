package constants

type ContextKey string

const (
	AppKey       ContextKey = "app"
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	TenantKey    ContextKey = "tenant"
	LocalizerKey ContextKey = "localizer"
	RequestStart ContextKey = "requestStart"
)

// RoleSuperadmin is the privilege tier allowed to act "as" another tenant
// via the override header.
const RoleSuperadmin = "superadmin"
