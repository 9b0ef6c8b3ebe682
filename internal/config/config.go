// Package config loads zkdash settings from defaults, an optional TOML file,
// environment variables and explicit flag overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// ErrMissingSecret is returned when no master secret is configured.
var ErrMissingSecret = errors.New("ZKDASH_MASTER_SECRET is required")

// Config holds daemon configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string
	// RPCURL is the wallet provider's JSON-RPC endpoint. Empty runs without
	// an extension provider.
	RPCURL string
	// ProviderPollInterval is how often the RPC endpoint is polled for
	// account and network changes.
	ProviderPollInterval time.Duration
	// AddressPollInterval drives the reconciler's address self-heal timer.
	AddressPollInterval time.Duration

	NetworkID   string
	NetworkName string

	BuildTimeout time.Duration
	SessionTTL   time.Duration

	StorageBackend string
	StorageDir     string

	MasterSecret   string
	AllowedOrigins []string

	LogLevel string
	Debug    bool
}

// Overrides optionally overrides loaded values.
//
// A nil pointer means "use the file/environment/default value".
type Overrides struct {
	ConfigFile   *string
	Addr         *string
	RPCURL       *string
	MasterSecret *string
	LogLevel     *string
	Debug        *bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:                 ":3005",
		ProviderPollInterval: time.Second,
		AddressPollInterval:  5 * time.Second,
		NetworkID:            "1",
		NetworkName:          "Ethereum Mainnet",
		BuildTimeout:         2 * time.Minute,
		SessionTTL:           24 * time.Hour,
		StorageBackend:       StorageMemory,
		StorageDir:           "./zkdash-data",
		AllowedOrigins:       []string{"*"},
		LogLevel:             "info",
	}
}

type fileConfig struct {
	Addr                 string   `toml:"addr"`
	RPCURL               string   `toml:"rpc_url"`
	ProviderPollInterval string   `toml:"provider_poll_interval"`
	AddressPollInterval  string   `toml:"address_poll_interval"`
	NetworkID            string   `toml:"network_id"`
	NetworkName          string   `toml:"network_name"`
	BuildTimeout         string   `toml:"build_timeout"`
	SessionTTL           string   `toml:"session_ttl"`
	StorageBackend       string   `toml:"storage_backend"`
	StorageDir           string   `toml:"storage_dir"`
	MasterSecret         string   `toml:"master_secret"`
	AllowedOrigins       []string `toml:"allowed_origins"`
	LogLevel             string   `toml:"log_level"`
	Debug                bool     `toml:"debug"`
}

// Load builds the configuration and validates it.
func Load(overrides Overrides) (*Config, error) {
	cfg := Default()

	path := os.Getenv("ZKDASH_CONFIG")
	if overrides.ConfigFile != nil {
		path = *overrides.ConfigFile
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if overrides.Addr != nil {
		cfg.Addr = *overrides.Addr
	}
	if overrides.RPCURL != nil {
		cfg.RPCURL = *overrides.RPCURL
	}
	if overrides.MasterSecret != nil {
		cfg.MasterSecret = *overrides.MasterSecret
	}
	if overrides.LogLevel != nil {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.Debug != nil {
		cfg.Debug = *overrides.Debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.MasterSecret == "" {
		return ErrMissingSecret
	}
	if strings.TrimSpace(c.NetworkID) == "" {
		return errors.New("network id must not be empty")
	}
	switch c.StorageBackend {
	case StorageMemory:
	case StorageFile, StorageSQLite:
		if c.StorageDir == "" {
			return fmt.Errorf("storage dir is required for the %s backend", c.StorageBackend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	for name, d := range map[string]time.Duration{
		"provider poll interval": c.ProviderPollInterval,
		"address poll interval":  c.AddressPollInterval,
		"session ttl":            c.SessionTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("rpc_url") {
		cfg.RPCURL = strings.TrimSpace(raw.RPCURL)
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"provider_poll_interval", raw.ProviderPollInterval, &cfg.ProviderPollInterval},
		{"address_poll_interval", raw.AddressPollInterval, &cfg.AddressPollInterval},
		{"build_timeout", raw.BuildTimeout, &cfg.BuildTimeout},
		{"session_ttl", raw.SessionTTL, &cfg.SessionTTL},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("network_id") {
		cfg.NetworkID = strings.TrimSpace(raw.NetworkID)
	}
	if meta.IsDefined("network_name") {
		cfg.NetworkName = strings.TrimSpace(raw.NetworkName)
	}
	if meta.IsDefined("storage_backend") {
		cfg.StorageBackend = strings.ToLower(strings.TrimSpace(raw.StorageBackend))
	}
	if meta.IsDefined("storage_dir") {
		cfg.StorageDir = strings.TrimSpace(raw.StorageDir)
	}
	if meta.IsDefined("master_secret") {
		cfg.MasterSecret = raw.MasterSecret
	}
	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = splitOrigins(raw.AllowedOrigins)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Addr = fmt.Sprintf(":%d", p)
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"ZKDASH_ADDR", &cfg.Addr},
		{"ZKDASH_RPC_URL", &cfg.RPCURL},
		{"ZKDASH_NETWORK_ID", &cfg.NetworkID},
		{"ZKDASH_NETWORK_NAME", &cfg.NetworkName},
		{"ZKDASH_STORAGE_BACKEND", &cfg.StorageBackend},
		{"ZKDASH_STORAGE_DIR", &cfg.StorageDir},
		{"ZKDASH_MASTER_SECRET", &cfg.MasterSecret},
		{"ZKDASH_LOG_LEVEL", &cfg.LogLevel},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.key); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ZKDASH_PROVIDER_POLL_INTERVAL", &cfg.ProviderPollInterval},
		{"ZKDASH_ADDRESS_POLL_INTERVAL", &cfg.AddressPollInterval},
		{"ZKDASH_BUILD_TIMEOUT", &cfg.BuildTimeout},
		{"ZKDASH_SESSION_TTL", &cfg.SessionTTL},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := os.LookupEnv("ZKDASH_ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = splitOrigins(strings.Split(v, ","))
	}
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
	return nil
}

func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
