package config

import (
	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/provider/scicrunch"
)

// Validate checks that the configuration describes a usable session.
func (c *Config) Validate() error {
	if c.Knowledge.Source != "" && !c.Store.ReadOnly {
		return invalid(errors.WithHint(
			errors.Newf("knowledge.source %q requires a read-only store", c.Knowledge.Source),
			"Historical sources are frozen: set store.read_only = true"))
	}
	if c.Knowledge.Source != "" && c.Store.Directory == "" {
		return invalid(errors.Newf("knowledge.source %q requires a store", c.Knowledge.Source))
	}
	if c.Store.CleanConnectivity && c.Store.ReadOnly {
		return invalid(errors.New("store.clean_connectivity cannot be used with a read-only store"))
	}
	if c.Store.Directory == "" && !c.HasProviders() {
		return errors.WithHint(errors.WithStack(errors.ErrNoKnowledge),
			"Set store.directory or enable a provider")
	}

	if c.Providers.TimeoutSeconds < 0 {
		return invalid(errors.Newf("providers.timeout_seconds must be >= 0, got %d", c.Providers.TimeoutSeconds))
	}
	if c.Providers.NPO.Enabled && c.Providers.NPO.Snapshot == "" {
		return invalid(errors.New("providers.npo.snapshot cannot be empty when enabled"))
	}
	if sc := c.Providers.SciCrunch; sc.Enabled {
		switch sc.Release {
		case "", scicrunch.Production, scicrunch.Staging:
		default:
			return invalid(errors.Newf("providers.scicrunch.release must be %q or %q, got %q",
				scicrunch.Production, scicrunch.Staging, sc.Release))
		}
		if sc.RequestsPerSecond < 0 {
			return invalid(errors.Newf("providers.scicrunch.requests_per_second must be >= 0, got %f", sc.RequestsPerSecond))
		}
	}
	if c.Log.Verbosity < 0 {
		return invalid(errors.Newf("log.verbosity must be >= 0, got %d", c.Log.Verbosity))
	}
	return nil
}

func invalid(err error) error {
	return errors.Mark(err, errors.ErrInvalidConfig)
}
