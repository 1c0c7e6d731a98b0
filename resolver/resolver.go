// Package resolver answers "what is known about this entity" for one
// session. It consults, in order, an in-memory cache, the persistent store
// and the configured providers, persisting whatever the providers return
// and resolving every term a connectivity path refers to.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/provider"
	"github.com/teranos/mapknowledge/store"
)

// Store is the persistent store a resolver reads from and writes to.
// *store.Store implements it.
type Store interface {
	Get(ctx context.Context, source, entity string) (*knowledge.Record, error)
	PutWithConnectivity(ctx context.Context, source, entity string, rec *knowledge.Record) error
	ConnectivityModels(ctx context.Context) ([]store.ConnectivityModel, error)
	PutConnectivityModel(ctx context.Context, model, version string) error
	ReadOnly() bool
	Close() error
}

var _ Store = (*store.Store)(nil)

// Options configure a Resolver. Nil providers are treated as absent.
type Options struct {
	Store    Store // nil resolves without a persistent cache
	Graph    provider.GraphProvider
	Registry provider.RegistryProvider
	// Source is the current knowledge source; "" is the shared source.
	Source string
	// Provenance describes the provider builds serving Source.
	Provenance Provenance
	Logger     *zap.SugaredLogger
}

// Provenance records where a session's knowledge comes from.
type Provenance struct {
	Session  string                  `json:"session"`
	Started  time.Time               `json:"started"`
	Source   string                  `json:"source,omitempty"`
	Store    string                  `json:"store,omitempty"`
	Graph    *provider.GraphBuild    `json:"graph,omitempty"`
	Registry *provider.RegistryBuild `json:"registry,omitempty"`
}

// Stats count what a resolver has done.
type Stats struct {
	CacheHits      int `json:"cache_hits"`
	StoreHits      int `json:"store_hits"`
	ProviderCalls  int `json:"provider_calls"`
	ProviderErrors int `json:"provider_errors"`
	Writes         int `json:"writes"`
}

type cacheKey struct {
	source string
	entity string
}

// Resolver resolves entity knowledge for one session. Its methods may be
// called from several goroutines but resolution itself is sequential.
type Resolver struct {
	store    Store
	graph    provider.GraphProvider
	registry provider.RegistryProvider
	source   string
	known    map[string]struct{}
	logger   *zap.SugaredLogger
	warnings *logger.OnceLogger

	mu         sync.Mutex
	cache      map[cacheKey]*knowledge.Record
	resolving  map[cacheKey]struct{}
	provenance Provenance
	stats      Stats
	closed     bool
}

// New builds a resolver. When a graph provider is configured, the set of
// entities it knows connectivity for is fetched once here and not refreshed
// if the provider later reloads.
func New(ctx context.Context, opts Options) (*Resolver, error) {
	r := &Resolver{
		store:      opts.Store,
		graph:      opts.Graph,
		registry:   opts.Registry,
		source:     opts.Source,
		known:      make(map[string]struct{}),
		logger:     logger.OrNop(opts.Logger),
		cache:      make(map[cacheKey]*knowledge.Record),
		resolving:  make(map[cacheKey]struct{}),
		provenance: opts.Provenance,
	}
	if r.graph == nil {
		r.graph = provider.NoGraph{}
	}
	if r.registry == nil {
		r.registry = provider.NoRegistry{}
	}
	session := uuid.New().String()
	r.logger = r.logger.With(logger.FieldSession, session)
	r.warnings = logger.NewOnceLogger(r.logger)
	r.provenance.Session = session
	r.provenance.Source = r.source
	if r.provenance.Started.IsZero() {
		r.provenance.Started = time.Now().UTC()
	}

	if provider.Enabled(r.graph) {
		known, err := provider.KnownConnectivityEntities(ctx, r.graph)
		if err != nil {
			r.providerFailed(r.graph.Name(), "", err)
		} else {
			r.known = known
		}
	}

	r.logger.Infow("Knowledge resolver ready",
		logger.FieldSource, r.source,
		"graph", r.graph.Name(),
		"registry", r.registry.Name(),
		"store", r.store != nil,
		"connectivity_entities", len(r.known))
	return r, nil
}

// Source returns the current knowledge source.
func (r *Resolver) Source() string {
	return r.source
}

// SessionID identifies this resolver's session in logs and provenance.
func (r *Resolver) SessionID() string {
	return r.provenance.Session
}

// Provenance describes the session and the provider builds behind it.
func (r *Resolver) Provenance() Provenance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.provenance
}

// Stats returns a snapshot of the resolver's counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// EntityKnowledge returns what is known about entity in the current source,
// resolving it through the providers when the store has nothing better.
func (r *Resolver) EntityKnowledge(ctx context.Context, entity string) (*knowledge.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("resolver is closed")
	}
	rec, err := r.resolve(ctx, entity, r.source, false, false)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// EntityKnowledgeFrom returns what source knows about entity. An empty
// source means the current one, as for EntityKnowledge. Other sources are
// frozen and never consult providers.
func (r *Resolver) EntityKnowledgeFrom(ctx context.Context, entity, source string) (*knowledge.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("resolver is closed")
	}
	if source == "" {
		source = r.source
	}
	rec, err := r.resolve(ctx, entity, source, source != r.source, false)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Label returns the entity's label, which is the entity itself when nothing
// better is known.
func (r *Resolver) Label(ctx context.Context, entity string) (string, error) {
	rec, err := r.EntityKnowledge(ctx, entity)
	if err != nil {
		return "", err
	}
	return rec.Label, nil
}

// Close releases both providers and the store. Closing twice is a no-op.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cache = nil

	var err error
	for _, closer := range []interface{ Close() error }{r.graph, r.registry} {
		err = errors.CombineErrors(err, closer.Close())
	}
	if r.store != nil {
		err = errors.CombineErrors(err, r.store.Close())
	}
	r.logger.Debugw("Knowledge resolver closed",
		"cache_hits", r.stats.CacheHits,
		"provider_calls", r.stats.ProviderCalls,
		"writes", r.stats.Writes)
	return err
}
