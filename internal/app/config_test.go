package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/pricing"
)

func testLoader(files ...string) aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "HARVEST",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	}
}

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DATABASE_URL", "SUPABASE_DB_URL", "PORT", "HARVEST_DATABASE_URL", "HARVEST_STORAGE"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("HARVEST_STORAGE", "memory")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 100, cfg.RateLimit.Max)

	rule, err := cfg.PricingRule()
	require.NoError(t, err)
	assert.Equal(t, pricing.AdjustNone, rule.Adjustment)
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	clearPlatformEnv(t)

	_, err := loadConfig(testLoader())
	require.ErrorIs(t, err, apperr.ErrInitialization)
}

func TestLoadConfig_PlatformFallbacks(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("SUPABASE_DB_URL", "postgres://supabase/db")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "postgres://supabase/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	t.Setenv("DATABASE_URL", "postgres://primary/db")
	cfg, err = loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/db", cfg.DatabaseURL)
}

func TestLoadConfig_YAML(t *testing.T) {
	clearPlatformEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage: memory
pricing:
  adjustment: discount_percent
  value: "12.5"
auth:
  method: pin
  pepper: secret
`), 0o600))

	cfg, err := loadConfig(testLoader(path))
	require.NoError(t, err)
	rule, err := cfg.PricingRule()
	require.NoError(t, err)
	assert.Equal(t, pricing.AdjustDiscountPercent, rule.Adjustment)
	assert.True(t, decimal.RequireFromString("12.5").Equal(rule.Value))
	assert.Equal(t, "pin", cfg.Auth.Method)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown storage", env: map[string]string{"HARVEST_STORAGE": "mongo"}},
		{name: "bad pricing", env: map[string]string{"HARVEST_STORAGE": "memory", "HARVEST_PRICING_ADJUSTMENT": "bogus"}},
		{name: "pin without pepper", env: map[string]string{"HARVEST_STORAGE": "memory", "HARVEST_AUTH_METHOD": "pin"}},
		{name: "admin key without pepper", env: map[string]string{"HARVEST_STORAGE": "memory", "HARVEST_ADMIN_API_KEY_HASH": "abcd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPlatformEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(testLoader())
			require.ErrorIs(t, err, apperr.ErrInitialization)
		})
	}
}
