package config

import (
	"github.com/spf13/viper"

	"github.com/teranos/mapknowledge/provider/scicrunch"
)

const (
	// DefaultStoreFile is the store file name inside the store directory.
	DefaultStoreFile = "knowledgebase.db"

	// DefaultTimeoutSeconds bounds provider requests.
	DefaultTimeoutSeconds = 30

	// EnvPrefix prefixes every environment override, e.g. MAPKNOWLEDGE_STORE_DIRECTORY.
	EnvPrefix = "MAPKNOWLEDGE"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Store defaults
	v.SetDefault("store.directory", "")
	v.SetDefault("store.file", DefaultStoreFile)
	v.SetDefault("store.read_only", false)
	v.SetDefault("store.create", true)
	v.SetDefault("store.clean_connectivity", false)

	v.SetDefault("knowledge.source", "")

	// Provider defaults
	v.SetDefault("providers.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("providers.npo.enabled", false)
	v.SetDefault("providers.npo.snapshot", "")
	v.SetDefault("providers.npo.watch", false)
	v.SetDefault("providers.scicrunch.enabled", true)
	v.SetDefault("providers.scicrunch.endpoint", scicrunch.DefaultEndpoint)
	v.SetDefault("providers.scicrunch.release", scicrunch.Production)
	v.SetDefault("providers.scicrunch.api_key", "")
	v.SetDefault("providers.scicrunch.requests_per_second", 10.0) // polite to a shared public service

	// Logging defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// The conventional SciCrunch variable is accepted alongside the prefixed one.
	_ = v.BindEnv("providers.scicrunch.api_key", EnvPrefix+"_PROVIDERS_SCICRUNCH_API_KEY", "SCICRUNCH_API_KEY")
}
