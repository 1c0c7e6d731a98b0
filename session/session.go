// Package session builds a ready-to-use resolver from configuration: it
// opens the store, constructs the enabled providers, settles the current
// knowledge source and optionally cleans stale connectivity first.
package session

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/mapknowledge/config"
	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/maintenance"
	"github.com/teranos/mapknowledge/provider"
	"github.com/teranos/mapknowledge/provider/scicrunch"
	"github.com/teranos/mapknowledge/provider/snapshot"
	"github.com/teranos/mapknowledge/resolver"
	"github.com/teranos/mapknowledge/store"
)

// Session owns a resolver and everything it was built from.
type Session struct {
	Resolver *resolver.Resolver
	// Store is nil when the session runs without a persistent cache.
	Store *store.Store

	logger *zap.SugaredLogger
}

// Providers lets callers substitute the providers a configuration would
// build. Nil fields are built from configuration. The session takes
// ownership of whatever is supplied.
type Providers struct {
	Graph    provider.GraphProvider
	Registry provider.RegistryProvider
}

// Open validates cfg and builds a session from it.
func Open(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Session, error) {
	return OpenWith(ctx, cfg, Providers{}, log)
}

// OpenWith is Open with caller supplied providers.
func OpenWith(ctx context.Context, cfg *config.Config, providers Providers, log *zap.SugaredLogger) (*Session, error) {
	log = logger.OrNop(log)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		st  *store.Store
		err error
	)
	if path := cfg.StorePath(); path != "" {
		st, err = store.Open(path, store.Options{ReadOnly: cfg.Store.ReadOnly, Create: cfg.Store.Create}, log)
		if err != nil {
			return nil, err
		}
	}

	var (
		graph    provider.GraphProvider    = provider.NoGraph{}
		registry provider.RegistryProvider = provider.NoRegistry{}
	)
	// An explicit source is historical and never consults providers.
	if cfg.Knowledge.Source == "" {
		graph, registry, err = buildProviders(cfg, providers, log)
		if err != nil {
			closeAll(st, nil, nil)
			return nil, err
		}
	} else {
		closeAll(nil, providers.Graph, providers.Registry)
	}

	source, provenance, err := currentSource(ctx, cfg, st, graph, registry, log)
	if err != nil {
		closeAll(st, graph, registry)
		return nil, err
	}
	if st != nil {
		provenance.Store = st.Path()
	}

	if cfg.Store.CleanConnectivity && st != nil && source != "" {
		if _, err := maintenance.Clean(ctx, st, source, log); err != nil {
			closeAll(st, graph, registry)
			return nil, err
		}
	}

	opts := resolver.Options{
		Graph:      graph,
		Registry:   registry,
		Source:     source,
		Provenance: provenance,
		Logger:     log,
	}
	if st != nil {
		opts.Store = st
	}
	r, err := resolver.New(ctx, opts)
	if err != nil {
		closeAll(st, graph, registry)
		return nil, err
	}

	return &Session{Resolver: r, Store: st, logger: log}, nil
}

// Close releases the resolver, its providers and the store.
func (s *Session) Close() error {
	return s.Resolver.Close()
}

func buildProviders(cfg *config.Config, p Providers, log *zap.SugaredLogger) (provider.GraphProvider, provider.RegistryProvider, error) {
	graph, registry := p.Graph, p.Registry

	if graph == nil {
		graph = provider.NoGraph{}
		if npo := cfg.Providers.NPO; npo.Enabled {
			snap, err := snapshot.Open(npo.Snapshot, snapshot.Options{Watch: npo.Watch}, log)
			if err != nil {
				return nil, nil, err
			}
			graph = snap
		}
	}

	if registry == nil {
		registry = provider.NoRegistry{}
		if sc := cfg.Providers.SciCrunch; sc.Enabled {
			client, err := scicrunch.New(scicrunch.Options{
				Endpoint:          sc.Endpoint,
				Release:           sc.Release,
				APIKey:            sc.APIKey,
				Timeout:           cfg.Timeout(),
				RequestsPerSecond: sc.RequestsPerSecond,
			}, log)
			if err != nil {
				_ = graph.Close()
				return nil, nil, err
			}
			if sc.APIKey == "" {
				log.Warnw("No SciCrunch API key, requests may be refused",
					logger.FieldProvider, client.Name())
			}
			registry = client
		}
	}
	return graph, registry, nil
}

// currentSource settles the session's knowledge source: an explicit source
// must already be stored; otherwise the graph build, then the registry
// release, then the most recent stored source.
func currentSource(ctx context.Context, cfg *config.Config, st *store.Store,
	graph provider.GraphProvider, registry provider.RegistryProvider,
	log *zap.SugaredLogger) (string, resolver.Provenance, error) {

	var provenance resolver.Provenance

	if explicit := cfg.Knowledge.Source; explicit != "" {
		ok, err := st.HasSource(ctx, explicit)
		if err != nil {
			return "", provenance, err
		}
		if !ok {
			return "", provenance, errors.WithHint(
				errors.Wrapf(errors.ErrUnknownKnowledgeSource, "%q", explicit),
				"List stored sources with 'mapknowledge sources'")
		}
		return explicit, provenance, nil
	}

	// The two builds come from independent services; fetch them together.
	var (
		g             errgroup.Group
		graphBuild    provider.GraphBuild
		registryBuild provider.RegistryBuild
		haveGraph     bool
		haveRegistry  bool
	)
	if provider.Enabled(graph) {
		g.Go(func() error {
			build, ok, err := graph.Build(ctx)
			if err != nil {
				log.Warnw("Graph provider build unavailable",
					logger.FieldProvider, graph.Name(), logger.FieldError, err)
				return nil
			}
			graphBuild, haveGraph = build, ok
			return nil
		})
	}
	if provider.Enabled(registry) {
		g.Go(func() error {
			build, ok, err := registry.Build(ctx)
			if err != nil {
				log.Warnw("Registry provider build unavailable",
					logger.FieldProvider, registry.Name(), logger.FieldError, err)
				return nil
			}
			registryBuild, haveRegistry = build, ok
			return nil
		})
	}
	_ = g.Wait()

	var source string
	if haveGraph {
		provenance.Graph = &graphBuild
		source = graphBuild.Release
	}
	if haveRegistry {
		provenance.Registry = &registryBuild
		if source == "" {
			source = registryBuild.Source()
		}
	}
	if source == "" && st != nil {
		sources, err := st.ListSources(ctx)
		if err != nil {
			return "", provenance, err
		}
		if len(sources) > 0 {
			source = sources[0]
		}
	}

	log.Infow("Knowledge source selected", logger.FieldSource, source)
	return source, provenance, nil
}

func closeAll(st *store.Store, graph provider.GraphProvider, registry provider.RegistryProvider) {
	if graph != nil {
		_ = graph.Close()
	}
	if registry != nil {
		_ = registry.Close()
	}
	if st != nil {
		_ = st.Close()
	}
}
