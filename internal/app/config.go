package app

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/auth"
	"github.com/harvestcart/harvestcart/internal/domain/pricing"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (HARVEST_ prefix), flags, a .env file or YAML
// config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage     string `default:"postgres" usage:"Storage backend: postgres or memory"`
	DatabaseURL string `usage:"PostgreSQL connection URL (HARVEST_DATABASE_URL, DATABASE_URL or SUPABASE_DB_URL)" flag:"database-url"`
	Pricing     PricingConfig
	Auth        AuthConfig
	Admin       AdminConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PricingConfig selects the rule applied to purchase order totals. The
// default leaves totals unchanged.
type PricingConfig struct {
	Adjustment string `default:"none" usage:"none, discount_percent, markup_percent, discount_fixed or markup_fixed"`
	Value      string `default:"0" usage:"Adjustment amount (percent or currency units)"`
	PerUnit    bool   `default:"false" usage:"Treat base_total as a unit price" flag:"pricing-per-unit"`
}

// AuthConfig selects the customer login method.
type AuthConfig struct {
	Method string `default:"disabled" usage:"Login method: disabled or pin"`
	Pepper string `usage:"HMAC pepper for PIN and admin key hashing" flag:"auth-pepper"`
}

// AdminConfig protects the admin routes.
type AdminConfig struct {
	APIKeyHash string `env:"API_KEY_HASH" yaml:"api_key_hash" usage:"Hex HMAC-SHA256 of the admin api_key; admin routes are open when empty" flag:"admin-api-key-hash"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig reads .env (if present), then environment, flags and YAML
// files. Invalid or missing settings are reported as initialization errors.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.Initialization("load .env", err)
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "HARVEST",
		Files:     []string{"config.yaml", "/etc/harvestcart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, apperr.Initialization("load config", err)
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the standard variables that hosting platforms
// and Supabase provide onto the HARVEST_ settings.
func (c *Config) applyPlatformDefaults() {
	for _, name := range []string{"DATABASE_URL", "SUPABASE_DB_URL"} {
		if c.DatabaseURL != "" {
			break
		}
		c.DatabaseURL = os.Getenv(name)
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return apperr.Initialization(
				"database URL is required: set HARVEST_DATABASE_URL, DATABASE_URL or SUPABASE_DB_URL", nil)
		}
	case StorageMemory:
	default:
		return apperr.Initialization("unknown storage backend "+c.Storage, nil)
	}

	if _, err := c.PricingRule(); err != nil {
		return apperr.Initialization("invalid pricing rule", err)
	}
	method := strings.ToLower(strings.TrimSpace(c.Auth.Method))
	if method == auth.MethodPIN && c.Auth.Pepper == "" {
		return apperr.Initialization("pin login requires HARVEST_AUTH_PEPPER", nil)
	}
	if c.Admin.APIKeyHash != "" && c.Auth.Pepper == "" {
		return apperr.Initialization("admin api key requires HARVEST_AUTH_PEPPER", nil)
	}
	return nil
}

// PricingRule parses the configured pricing rule.
func (c *Config) PricingRule() (pricing.Rule, error) {
	return pricing.ParseRule(c.Pricing.Adjustment, c.Pricing.Value, c.Pricing.PerUnit)
}
