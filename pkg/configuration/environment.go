package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/tenancy/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"tenancy_directory"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// RouterOptions drives the lazy module mounts: retry backoff, circuit
// breaker thresholds and the development hot-reload switch.
type RouterOptions struct {
	RetryBaseDelay  time.Duration `env:"ROUTER_RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay   time.Duration `env:"ROUTER_RETRY_MAX_DELAY" envDefault:"30s"`
	CircuitLimit    int           `env:"ROUTER_CIRCUIT_LIMIT" envDefault:"5"`
	CircuitCooldown time.Duration `env:"ROUTER_CIRCUIT_COOLDOWN" envDefault:"5m"`
	LoadTimeout     time.Duration `env:"ROUTER_LOAD_TIMEOUT" envDefault:"30s"`
	HotReload       bool          `env:"ROUTER_HOT_RELOAD" envDefault:"false"`
}

// Validate clamps each knob to its minimum sane value instead of failing
// boot on an aggressive setting.
func (r *RouterOptions) Validate() error {
	if r.RetryBaseDelay < 100*time.Millisecond {
		r.RetryBaseDelay = 100 * time.Millisecond
	}
	if r.RetryMaxDelay < r.RetryBaseDelay {
		r.RetryMaxDelay = r.RetryBaseDelay
	}
	if r.CircuitLimit < 1 {
		r.CircuitLimit = 1
	}
	if r.CircuitCooldown < 5*time.Second {
		r.CircuitCooldown = 5 * time.Second
	}
	if r.LoadTimeout < time.Second {
		r.LoadTimeout = time.Second
	}
	return nil
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type TenancyOptions struct {
	// OverrideHeader carries an explicit tenant slug; honored only for
	// superadmin callers.
	OverrideHeader string `env:"TENANT_OVERRIDE_HEADER" envDefault:"X-Tenant-Override"`
	// GatewayHosts lists shared API-gateway hostnames that carry no tenant
	// signal of their own (comma separated).
	GatewayHosts string `env:"TENANT_GATEWAY_HOSTS" envDefault:""`
	// DefaultTenant is the slug served to loopback hosts outside production.
	DefaultTenant string `env:"TENANT_DEFAULT" envDefault:"default"`
}

func (t *TenancyOptions) GatewayHostSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, h := range strings.Split(t.GatewayHosts, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

type Configuration struct {
	Database   DatabaseOptions
	Router     RouterOptions
	Prometheus PrometheusOptions
	Tenancy    TenancyOptions

	ServerPort       int      `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string   `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string   `env:"-"`
	Domain           string   `env:"DOMAIN" envDefault:"localhost"`
	Origin           string   `env:"ORIGIN" envDefault:"http://localhost:3200"`
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3200"`
	LogLevel         string   `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string   `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Runtime looks for this header in the request; if absent, a random
	// uuidv4 is generated.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// SuperadminToken grants the superadmin role to bearer callers. Empty
	// disables the override path entirely.
	SuperadminToken string `env:"SUPERADMIN_API_TOKEN" envDefault:""`
	// ModuleManifest points at the per-deployment module catalog.
	ModuleManifest string `env:"MODULE_MANIFEST" envDefault:"config/modules.yaml"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) IsProduction() bool {
	return c.GoAppEnvironment == Production
}

func (c *Configuration) Scheme() string {
	if c.IsProduction() { // assume 'https' on production mode
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Router.Validate(); err != nil {
		return fmt.Errorf("router configuration error: %w", err)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.IsProduction() {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	if os.Getenv("ORIGIN") == "" {
		if c.GoAppEnvironment == "development" {
			c.Origin = fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Domain, c.ServerPort)
		} else {
			c.Origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Domain)
		}
	}

	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
