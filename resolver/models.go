package resolver

import (
	"context"
	"sort"

	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/provider"
)

// ConnectivityPaths lists the neuron population paths the graph provider
// knows. Without a graph provider the list is empty.
func (r *Resolver) ConnectivityPaths(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !provider.Enabled(r.graph) {
		return nil, nil
	}
	r.stats.ProviderCalls++
	paths, err := r.graph.ConnectivityPaths(ctx)
	if err != nil {
		r.providerFailed(r.graph.Name(), "", err)
		return nil, nil
	}
	return paths, nil
}

// ConnectivityModels lists the connectivity models the graph provider knows
// and records them against the current source. Without a graph provider the
// models last recorded in the store are returned.
func (r *Resolver) ConnectivityModels(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recorded := make(map[string]string)
	if r.store != nil {
		stored, err := r.store.ConnectivityModels(ctx)
		if err != nil {
			return nil, err
		}
		for _, m := range stored {
			recorded[m.Model] = m.Version
		}
	}

	if !provider.Enabled(r.graph) {
		models := make([]string, 0, len(recorded))
		for model := range recorded {
			models = append(models, model)
		}
		sort.Strings(models)
		return models, nil
	}

	r.stats.ProviderCalls++
	models, err := r.graph.ConnectivityModels(ctx)
	if err != nil {
		r.providerFailed(r.graph.Name(), "", err)
		return nil, nil
	}

	for _, model := range models {
		version, seen := recorded[model]
		if seen && version != "" && version != r.source {
			r.logger.Warnw("Connectivity model changed since it was cached, clean connectivity to refresh it",
				logger.FieldEntity, model,
				logger.FieldFrom, version,
				logger.FieldTo, r.source)
		}
		if r.store == nil || r.store.ReadOnly() || (seen && version == r.source) {
			continue
		}
		if err := r.store.PutConnectivityModel(ctx, model, r.source); err != nil {
			return nil, err
		}
		r.stats.Writes++
	}
	return models, nil
}
