// Package config loads mapknowledge settings from TOML files and
// MAPKNOWLEDGE_ environment variables using Viper.
package config

import (
	"path/filepath"
	"time"
)

// Config is the complete mapknowledge configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store" toml:"store"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" toml:"knowledge"`
	Providers ProvidersConfig `mapstructure:"providers" toml:"providers"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
}

// StoreConfig locates the persistent knowledge store.
type StoreConfig struct {
	// Directory holding the store; empty runs without a persistent cache.
	Directory         string `mapstructure:"directory" toml:"directory"`
	File              string `mapstructure:"file" toml:"file"`
	ReadOnly          bool   `mapstructure:"read_only" toml:"read_only"`
	Create            bool   `mapstructure:"create" toml:"create"`
	CleanConnectivity bool   `mapstructure:"clean_connectivity" toml:"clean_connectivity"`
}

// KnowledgeConfig selects the knowledge source.
type KnowledgeConfig struct {
	// Source names a stored historical source; only valid read-only.
	Source string `mapstructure:"source" toml:"source,omitempty"`
}

// ProvidersConfig enables the knowledge providers.
type ProvidersConfig struct {
	TimeoutSeconds int             `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	NPO            NPOConfig       `mapstructure:"npo" toml:"npo"`
	SciCrunch      SciCrunchConfig `mapstructure:"scicrunch" toml:"scicrunch"`
}

// NPOConfig configures the graph provider, served from an exported snapshot.
type NPOConfig struct {
	Enabled  bool   `mapstructure:"enabled" toml:"enabled"`
	Snapshot string `mapstructure:"snapshot" toml:"snapshot"`
	Watch    bool   `mapstructure:"watch" toml:"watch"`
}

// SciCrunchConfig configures the registry provider.
type SciCrunchConfig struct {
	Enabled           bool    `mapstructure:"enabled" toml:"enabled"`
	Endpoint          string  `mapstructure:"endpoint" toml:"endpoint"`
	Release           string  `mapstructure:"release" toml:"release"`
	APIKey            string  `mapstructure:"api_key" toml:"-"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"`
}

// LogConfig controls logger output.
type LogConfig struct {
	JSON      bool `mapstructure:"json" toml:"json"`
	Verbosity int  `mapstructure:"verbosity" toml:"verbosity"`
}

// StorePath returns the store file, or "" when no store directory is set.
func (c *Config) StorePath() string {
	if c.Store.Directory == "" {
		return ""
	}
	file := c.Store.File
	if file == "" {
		file = DefaultStoreFile
	}
	return filepath.Join(c.Store.Directory, file)
}

// Timeout bounds each provider request.
func (c *Config) Timeout() time.Duration {
	if c.Providers.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// HasProviders reports whether any knowledge provider is enabled.
func (c *Config) HasProviders() bool {
	return c.Providers.NPO.Enabled || c.Providers.SciCrunch.Enabled
}
