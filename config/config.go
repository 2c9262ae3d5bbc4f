package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the application. It is loaded
// once at startup and passed by value into the components that need it;
// business logic never reads the environment directly.
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseDSN string

	// Token signing secrets, one per token class.
	AccessSecret  string
	RefreshSecret string
	SessionSecret string

	// BcryptCost is the work factor applied when hashing passwords.
	BcryptCost int

	// MetricsAddr is the listen address for the Prometheus endpoint.
	// Empty disables the metrics listener.
	MetricsAddr string

	// ViewsDir is the directory holding the django templates.
	ViewsDir string
}

// IsProduction reports whether the app runs with production settings,
// which toggles the Secure flag on auth cookies.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Token config getters, consumed by the token service.

func (c Config) GetIssuer() string        { return "expenso" }
func (c Config) GetAccessSecret() string  { return c.AccessSecret }
func (c Config) GetRefreshSecret() string { return c.RefreshSecret }
func (c Config) GetSessionSecret() string { return c.SessionSecret }

// Load reads the configuration from the environment. A .env file in the
// working directory is merged in first when present. Missing required
// variables are reported together in a single error.
func Load() (*Config, error) {
	// A missing .env file is not an error, the environment may be
	// populated by the process manager instead.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getenv("PORT", "5000"),
		Env:         getenv("APP_ENV", "development"),
		DatabaseDSN: getenv("DATABASE_DSN", "file:expenso.db?cache=shared&_pragma=foreign_keys(1)"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		ViewsDir:    getenv("VIEWS_DIR", "./views"),
	}

	var missing []string

	cfg.AccessSecret = os.Getenv("JWT_ACCESS_SECRET")
	if cfg.AccessSecret == "" {
		missing = append(missing, "JWT_ACCESS_SECRET")
	}

	cfg.RefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	if cfg.RefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}

	cfg.SessionSecret = os.Getenv("JWT_SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "JWT_SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cost, err := getenvInt("BCRYPT_COST", 10)
	if err != nil {
		return nil, err
	}
	cfg.BcryptCost = cost

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return n, nil
}
