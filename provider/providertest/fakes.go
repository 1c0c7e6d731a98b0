// Package providertest provides in-memory providers that count their calls.
package providertest

import (
	"context"
	"sort"
	"sync"

	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/provider"
)

// Graph is an in-memory GraphProvider. Terms defaults to every record id.
type Graph struct {
	Records  map[string]*knowledge.Record
	Paths    []string
	Models   []string
	TermList []string
	BuildSet *provider.GraphBuild
	Err      error // returned by Knowledge when set

	mu     sync.Mutex
	calls  map[string]int
	closed bool
}

var _ provider.GraphProvider = (*Graph)(nil)

// NewGraph returns a graph provider serving records.
func NewGraph(records ...*knowledge.Record) *Graph {
	g := &Graph{Records: make(map[string]*knowledge.Record)}
	for _, r := range records {
		g.Records[r.ID] = r
	}
	return g
}

func (g *Graph) Name() string { return "graph" }

func (g *Graph) Knowledge(_ context.Context, entity string) (*knowledge.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[entity]++
	if g.Err != nil {
		return nil, g.Err
	}
	if r, ok := g.Records[entity]; ok {
		return r.Clone(), nil
	}
	return knowledge.Stub(entity), nil
}

func (g *Graph) ConnectivityModels(context.Context) ([]string, error) { return g.Models, nil }
func (g *Graph) ConnectivityPaths(context.Context) ([]string, error)  { return g.Paths, nil }

func (g *Graph) Terms(context.Context) ([]string, error) {
	if g.TermList != nil {
		return g.TermList, nil
	}
	terms := make([]string, 0, len(g.Records))
	for id := range g.Records {
		terms = append(terms, id)
	}
	sort.Strings(terms)
	return terms, nil
}

func (g *Graph) Build(context.Context) (provider.GraphBuild, bool, error) {
	if g.BuildSet == nil {
		return provider.GraphBuild{}, false, nil
	}
	return *g.BuildSet, true, nil
}

func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Calls returns how often Knowledge was asked about entity.
func (g *Graph) Calls(entity string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[entity]
}

// TotalCalls returns how often Knowledge was called.
func (g *Graph) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return total(g.calls)
}

// Closed reports whether Close was called.
func (g *Graph) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Registry is an in-memory RegistryProvider.
type Registry struct {
	Records  map[string]*knowledge.Record
	Metadata map[string]*knowledge.Record
	Released string
	Err      error

	mu            sync.Mutex
	calls         map[string]int
	metadataCalls map[string]int
	closed        bool
}

var _ provider.RegistryProvider = (*Registry)(nil)

// NewRegistry returns a registry provider serving records.
func NewRegistry(records ...*knowledge.Record) *Registry {
	r := &Registry{
		Records:  make(map[string]*knowledge.Record),
		Metadata: make(map[string]*knowledge.Record),
	}
	for _, rec := range records {
		r.Records[rec.ID] = rec
	}
	return r
}

func (r *Registry) Name() string { return "registry" }

func (r *Registry) Knowledge(_ context.Context, entity string) (*knowledge.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[entity]++
	if r.Err != nil {
		return nil, r.Err
	}
	if rec, ok := r.Records[entity]; ok {
		return rec.Clone(), nil
	}
	return knowledge.Stub(entity), nil
}

func (r *Registry) ConnectivityMetadata(_ context.Context, entity string) (*knowledge.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metadataCalls == nil {
		r.metadataCalls = make(map[string]int)
	}
	r.metadataCalls[entity]++
	if r.Err != nil {
		return nil, r.Err
	}
	if rec, ok := r.Metadata[entity]; ok {
		return rec.Clone(), nil
	}
	return knowledge.Stub(entity), nil
}

func (r *Registry) Build(context.Context) (provider.RegistryBuild, bool, error) {
	if r.Released == "" {
		return provider.RegistryBuild{}, false, nil
	}
	return provider.RegistryBuild{Released: r.Released}, true, nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Calls returns how often Knowledge was asked about entity.
func (r *Registry) Calls(entity string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[entity]
}

// MetadataCalls returns how often ConnectivityMetadata was asked about entity.
func (r *Registry) MetadataCalls(entity string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metadataCalls[entity]
}

// TotalCalls returns how often Knowledge was called.
func (r *Registry) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return total(r.calls)
}

// Closed reports whether Close was called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func total(calls map[string]int) int {
	n := 0
	for _, c := range calls {
		n += c
	}
	return n
}
