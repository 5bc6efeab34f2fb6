package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/cli2468/Vision-sub000/internal/money"
)

// Config is built from defaults, then the TOML file named by RESELL_CONFIG,
// then environment variables. Later sources win.
type Config struct {
	Port               string           `toml:"port"`
	AllowedOrigin      string           `toml:"allowed_origin"`
	LedgerPath         string           `toml:"ledger_path"`
	Timezone           string           `toml:"timezone"`
	LogLevel           string           `toml:"log_level"`
	DatabaseURL        string           `toml:"database_url"`
	RedisAddr          string           `toml:"redis_addr"`
	RedisPassword      string           `toml:"redis_password"`
	RedisDB            int              `toml:"redis_db"`
	AuthSecret         string           `toml:"auth_secret"`
	TokenTTLMinutes    int              `toml:"token_ttl_minutes"`
	PushTimeoutSeconds int              `toml:"push_timeout_seconds"`
	GeminiAPIKey       string           `toml:"gemini_api_key"`
	GeminiModel        string           `toml:"gemini_model"`
	Platforms          []money.Platform `toml:"platforms"`
}

func Default() Config {
	return Config{
		Port:               "8080",
		AllowedOrigin:      "http://127.0.0.1:3000",
		LedgerPath:         "data/ledger.json",
		LogLevel:           "info",
		TokenTTLMinutes:    30 * 24 * 60,
		PushTimeoutSeconds: 10,
		GeminiModel:        "gemini-2.5-flash",
	}
}

func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("RESELL_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.AllowedOrigin, "ALLOWED_ORIGIN")
	setString(&cfg.LedgerPath, "LEDGER_PATH")
	setString(&cfg.Timezone, "TIMEZONE")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.AuthSecret, "AUTH_SECRET")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setInt(&cfg.RedisDB, "REDIS_DB", 0)
	setInt(&cfg.TokenTTLMinutes, "TOKEN_TTL_MINUTES", 1)
	setInt(&cfg.PushTimeoutSeconds, "PUSH_TIMEOUT_SECONDS", 1)
}

func setString(dst *string, key string) {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		*dst = val
	}
}

// setInt ignores values that do not parse or fall below min.
func setInt(dst *int, key string, min int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= min {
		*dst = n
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves Timezone; empty means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FeeTable returns the configured platforms, or the built-in table when the
// file declares none.
func (c Config) FeeTable() money.FeeTable {
	if len(c.Platforms) == 0 {
		return money.DefaultFeeTable()
	}
	return money.NewFeeTable(c.Platforms)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c Config) PushTimeout() time.Duration {
	return time.Duration(c.PushTimeoutSeconds) * time.Second
}

// CloudEnabled reports whether sign-in and sync are turned on. Without
// DATABASE_URL the cloud store lives in memory.
func (c Config) CloudEnabled() bool {
	return c.AuthSecret != ""
}
