// Package config loads gamefuse configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/logging"
	"github.com/ryanm101/gamefuse/internal/tracing"
)

// Defaults.
const (
	DefaultDBPath          = "gamefuse.db"
	DefaultSearchTTL       = 10 * time.Minute
	DefaultDetailsTTL      = 24 * time.Hour
	DefaultLimit           = 10
	DefaultMaxLimit        = 50
	DefaultProviderTimeout = 1500 * time.Millisecond
	DefaultRepairLimit     = 10
)

// Config holds application configuration.
type Config struct {
	DBPath    string                               `yaml:"db_path"`
	Logging   logging.Config                       `yaml:"logging"`
	Tracing   tracing.Config                       `yaml:"tracing"`
	Cache     CacheConfig                          `yaml:"cache"`
	Search    SearchConfig                         `yaml:"search"`
	Providers map[game.ProviderName]ProviderConfig `yaml:"providers"`
}

// CacheConfig sets result cache lifetimes.
type CacheConfig struct {
	SearchTTL  time.Duration `yaml:"search_ttl"`
	DetailsTTL time.Duration `yaml:"details_ttl"`
}

// SearchConfig tunes the orchestrator.
type SearchConfig struct {
	DefaultLimit    int           `yaml:"default_limit"`
	MaxLimit        int           `yaml:"max_limit"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	RepairLimit     int           `yaml:"repair_limit"`
}

// ProviderConfig configures one upstream provider.
type ProviderConfig struct {
	Enabled         *bool         `yaml:"enabled,omitempty"` // nil means enabled
	APIKey          string        `yaml:"api_key,omitempty"`
	ClientID        string        `yaml:"client_id,omitempty"`
	ClientSecret    string        `yaml:"client_secret,omitempty"`
	BaseURL         string        `yaml:"base_url,omitempty"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window,omitempty"`
	MaxRequests     int           `yaml:"max_requests,omitempty"`
}

// IsEnabled reports whether the provider should be constructed.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DBPath:  DefaultDBPath,
		Logging: logging.DefaultConfig(),
		Tracing: tracing.DefaultConfig(),
		Cache: CacheConfig{
			SearchTTL:  DefaultSearchTTL,
			DetailsTTL: DefaultDetailsTTL,
		},
		Search: SearchConfig{
			DefaultLimit:    DefaultLimit,
			MaxLimit:        DefaultMaxLimit,
			ProviderTimeout: DefaultProviderTimeout,
			RepairLimit:     DefaultRepairLimit,
		},
		Providers: map[game.ProviderName]ProviderConfig{},
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".gamefuse.yaml",
		".gamefuse.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "gamefuse", "config.yaml"),
			filepath.Join(home, ".config", "gamefuse", "config.yml"),
			filepath.Join(home, ".gamefuse.yaml"),
		)
	}

	return paths
}

// DefaultPath is where `config init` writes a new file.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "gamefuse", "config.yaml")
	}
	return ".gamefuse.yaml"
}

// Load loads configuration from file or returns defaults.
// Priority: env GAMEFUSE_CONFIG > search paths > defaults. Env overrides apply last.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if envPath := os.Getenv("GAMEFUSE_CONFIG"); envPath != "" {
		if err := cfg.LoadFile(envPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.LoadFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if c.Providers == nil {
		c.Providers = map[game.ProviderName]ProviderConfig{}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GAMEFUSE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("GAMEFUSE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	c.setProviderEnv(game.ProviderRAWG, "RAWG_API_KEY", func(p *ProviderConfig, v string) { p.APIKey = v })
	c.setProviderEnv(game.ProviderIGDB, "IGDB_CLIENT_ID", func(p *ProviderConfig, v string) { p.ClientID = v })
	c.setProviderEnv(game.ProviderIGDB, "IGDB_CLIENT_SECRET", func(p *ProviderConfig, v string) { p.ClientSecret = v })
	c.setProviderEnv(game.ProviderGiantBomb, "GIANTBOMB_API_KEY", func(p *ProviderConfig, v string) { p.APIKey = v })
}

func (c *Config) setProviderEnv(name game.ProviderName, env string, set func(*ProviderConfig, string)) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return
	}
	if c.Providers == nil {
		c.Providers = map[game.ProviderName]ProviderConfig{}
	}
	p := c.Providers[name]
	set(&p, v)
	c.Providers[name] = p
}

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// GetDBPath returns the database path, applying defaults.
func (c *Config) GetDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return DefaultDBPath
}

// GetSearchTTL returns the search cache TTL.
func (c *Config) GetSearchTTL() time.Duration {
	if c.Cache.SearchTTL > 0 {
		return c.Cache.SearchTTL
	}
	return DefaultSearchTTL
}

// GetDetailsTTL returns the details cache TTL.
func (c *Config) GetDetailsTTL() time.Duration {
	if c.Cache.DetailsTTL > 0 {
		return c.Cache.DetailsTTL
	}
	return DefaultDetailsTTL
}

// GetDefaultLimit returns the result limit used when a caller passes none.
func (c *Config) GetDefaultLimit() int {
	if c.Search.DefaultLimit > 0 {
		return c.Search.DefaultLimit
	}
	return DefaultLimit
}

// GetMaxLimit returns the largest result limit a caller may request.
func (c *Config) GetMaxLimit() int {
	if c.Search.MaxLimit > 0 {
		return c.Search.MaxLimit
	}
	return DefaultMaxLimit
}

// GetProviderTimeout returns the per-call provider timeout.
func (c *Config) GetProviderTimeout() time.Duration {
	if c.Search.ProviderTimeout > 0 {
		return c.Search.ProviderTimeout
	}
	return DefaultProviderTimeout
}

// GetRepairLimit returns how many fused records the repair pass may touch.
func (c *Config) GetRepairLimit() int {
	if c.Search.RepairLimit > 0 {
		return c.Search.RepairLimit
	}
	return DefaultRepairLimit
}

// Provider returns the configuration for name. Missing entries are zero values.
func (c *Config) Provider(name game.ProviderName) ProviderConfig {
	return c.Providers[name]
}
