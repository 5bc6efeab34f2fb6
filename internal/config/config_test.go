package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cli2468/Vision-sub000/internal/money"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RESELL_CONFIG", "PORT", "ALLOWED_ORIGIN", "LEDGER_PATH", "TIMEZONE", "LOG_LEVEL",
		"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "AUTH_SECRET",
		"TOKEN_TTL_MINUTES", "PUSH_TIMEOUT_SECONDS", "GEMINI_API_KEY", "GEMINI_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
	assert.False(t, cfg.CloudEnabled())
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 10*time.Second, cfg.PushTimeout())
	assert.Equal(t, money.DefaultFeeTable(), cfg.FeeTable())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "resell.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9090"
ledger_path = "/tmp/ledger.json"
timezone = "America/Chicago"
push_timeout_seconds = 3

[[platforms]]
id = "ebay"
label = "eBay"
rate = 0.1325

[[platforms]]
id = "Mercari"
label = "Mercari"
rate = 0.10
`), 0o600))
	t.Setenv("RESELL_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("TOKEN_TTL_MINUTES", "-5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "/tmp/ledger.json", cfg.LedgerPath)
	assert.Equal(t, 3*time.Second, cfg.PushTimeout())
	assert.Equal(t, 30*24*time.Hour, cfg.TokenTTL(), "invalid env values keep the default")

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.String())

	fees := cfg.FeeTable()
	assert.Len(t, fees, 2)
	assert.InDelta(t, 0.10, fees.Rate("mercari"), 1e-9)
	assert.False(t, fees.Known("facebook"))
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = "), 0o600))
	t.Setenv("RESELL_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("RESELL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	_, err = Load()
	assert.NoError(t, err)
}

func TestLocationRejectsUnknownZone(t *testing.T) {
	_, err := Config{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
