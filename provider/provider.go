// Package provider defines the two knowledge sources a resolver consults:
// a graph provider that is authoritative for connectivity, and a registry
// provider that knows about everything else.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/teranos/mapknowledge/knowledge"
)

// GraphBuild identifies the build a graph provider serves.
type GraphBuild struct {
	SHA      string `json:"sha,omitempty"`
	Released string `json:"released,omitempty"`
	Release  string `json:"release,omitempty"`
	Path     string `json:"path,omitempty"`
}

// RegistryBuild identifies the release a registry provider serves.
type RegistryBuild struct {
	Released string `json:"released"`
}

// Source is the knowledge source name for a registry release, "sckan-<date>".
// Released timestamps are truncated to their date.
func (b RegistryBuild) Source() string {
	released := strings.TrimSpace(b.Released)
	if released == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, released); err == nil {
		released = t.Format(time.DateOnly)
	} else if len(released) > len(time.DateOnly) && released[len(time.DateOnly)] == 'T' {
		released = released[:len(time.DateOnly)]
	}
	return "sckan-" + released
}

// GraphProvider serves knowledge from a connectivity graph. Knowledge always
// returns a record with at least an id; absent fields mean the entity is
// unknown to the provider.
type GraphProvider interface {
	Name() string
	Knowledge(ctx context.Context, entity string) (*knowledge.Record, error)
	ConnectivityModels(ctx context.Context) ([]string, error)
	ConnectivityPaths(ctx context.Context) ([]string, error)
	Terms(ctx context.Context) ([]string, error)
	Build(ctx context.Context) (GraphBuild, bool, error)
	Close() error
}

// RegistryProvider serves general ontology knowledge.
type RegistryProvider interface {
	Name() string
	Knowledge(ctx context.Context, entity string) (*knowledge.Record, error)
	// ConnectivityMetadata returns extra fields merged into records that
	// carry connectivity.
	ConnectivityMetadata(ctx context.Context, entity string) (*knowledge.Record, error)
	Build(ctx context.Context) (RegistryBuild, bool, error)
	Close() error
}

// NoGraph is the graph provider used when none is configured.
type NoGraph struct{}

func (NoGraph) Name() string { return "none" }

func (NoGraph) Knowledge(_ context.Context, entity string) (*knowledge.Record, error) {
	return knowledge.Stub(entity), nil
}

func (NoGraph) ConnectivityModels(context.Context) ([]string, error) { return nil, nil }
func (NoGraph) ConnectivityPaths(context.Context) ([]string, error)  { return nil, nil }
func (NoGraph) Terms(context.Context) ([]string, error)              { return nil, nil }

func (NoGraph) Build(context.Context) (GraphBuild, bool, error) { return GraphBuild{}, false, nil }
func (NoGraph) Close() error                                    { return nil }

// NoRegistry is the registry provider used when none is configured.
type NoRegistry struct{}

func (NoRegistry) Name() string { return "none" }

func (NoRegistry) Knowledge(_ context.Context, entity string) (*knowledge.Record, error) {
	return knowledge.Stub(entity), nil
}

func (NoRegistry) ConnectivityMetadata(_ context.Context, entity string) (*knowledge.Record, error) {
	return knowledge.Stub(entity), nil
}

func (NoRegistry) Build(context.Context) (RegistryBuild, bool, error) {
	return RegistryBuild{}, false, nil
}
func (NoRegistry) Close() error { return nil }

// Enabled reports whether p is a real provider rather than an absent variant.
func Enabled(p interface{}) bool {
	switch p.(type) {
	case nil, NoGraph, *NoGraph, NoRegistry, *NoRegistry:
		return false
	}
	return true
}

// KnownConnectivityEntities returns the union of the graph provider's paths,
// models and terms.
func KnownConnectivityEntities(ctx context.Context, g GraphProvider) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	for _, list := range []func(context.Context) ([]string, error){
		g.ConnectivityPaths, g.ConnectivityModels, g.Terms,
	} {
		ids, err := list(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			known[id] = struct{}{}
		}
	}
	return known, nil
}
