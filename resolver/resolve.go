package resolver

import (
	"context"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/provider"
)

// resolve runs with r.mu held and returns a record owned by the cache.
// frozen is set for lookups in a source other than the current one, which
// never reach the providers. node is set when the entity is referenced by a
// connectivity path; a bare self-labelled record is then persisted too, so
// every node of a stored path exists in the store.
func (r *Resolver) resolve(ctx context.Context, entity, source string, frozen, node bool) (*knowledge.Record, error) {
	key := cacheKey{source: source, entity: entity}
	if rec, ok := r.cache[key]; ok {
		r.stats.CacheHits++
		r.logErrors(entity, rec)
		return rec, nil
	}
	r.resolving[key] = struct{}{}
	defer delete(r.resolving, key)

	var rec *knowledge.Record
	if r.store != nil {
		stored, err := r.store.Get(ctx, source, entity)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			r.stats.StoreHits++
			rec = stored
		}
	}

	if !frozen && (rec == nil || !rec.HasRealLabel(entity)) {
		fetched := r.fromProviders(ctx, entity)
		if fetched.HasKnowledge() {
			rec = fetched
			rec.Source = r.source
			rec.PreferLongLabel(entity)
			if err := r.persist(ctx, entity, rec); err != nil {
				return nil, err
			}
		}
	}

	if rec == nil {
		rec = knowledge.Stub(entity)
		rec.Source = source
		if node && !frozen {
			rec.Label = entity
			if err := r.persist(ctx, entity, rec); err != nil {
				return nil, err
			}
		}
	}

	for _, term := range rec.ConnectivityTerms() {
		termKey := cacheKey{source: source, entity: term}
		if _, done := r.cache[termKey]; done {
			continue
		}
		if _, busy := r.resolving[termKey]; busy {
			continue
		}
		if _, err := r.resolve(ctx, term, source, frozen, true); err != nil {
			return nil, err
		}
	}

	if rec.Label == "" {
		rec.Label = entity
	}

	r.cache[key] = rec
	if rec.Source != source {
		r.cache[cacheKey{source: rec.Source, entity: entity}] = rec
	}
	r.logErrors(entity, rec)
	return rec, nil
}

// fromProviders asks the graph provider first when it is authoritative for
// entity, then the registry. It always returns a record.
func (r *Resolver) fromProviders(ctx context.Context, entity string) *knowledge.Record {
	var rec *knowledge.Record

	_, known := r.known[entity]
	if provider.Enabled(r.graph) && (known || knowledge.IsConnectivityEntity(entity)) {
		rec = r.ask(ctx, r.graph.Name(), entity, r.graph.Knowledge)
	}

	if (rec == nil || !rec.HasKnowledge()) && provider.Enabled(r.registry) {
		rec = r.ask(ctx, r.registry.Name(), entity, r.registry.Knowledge)
		if rec != nil && rec.HasConnectivity() {
			if meta := r.ask(ctx, r.registry.Name(), entity, r.registry.ConnectivityMetadata); meta != nil {
				rec.Merge(meta)
			}
		}
	}

	if rec == nil {
		return knowledge.Stub(entity)
	}
	rec.ID = entity
	return rec
}

// ask calls a provider, folding failures into a nil result.
func (r *Resolver) ask(ctx context.Context, name, entity string,
	fetch func(context.Context, string) (*knowledge.Record, error)) *knowledge.Record {
	r.stats.ProviderCalls++
	rec, err := fetch(ctx, entity)
	if err != nil {
		r.providerFailed(name, entity, err)
		return nil
	}
	return rec
}

func (r *Resolver) persist(ctx context.Context, entity string, rec *knowledge.Record) error {
	if r.store == nil || r.store.ReadOnly() {
		return nil
	}
	if err := r.store.PutWithConnectivity(ctx, r.source, entity, rec); err != nil {
		if errors.IsReadOnly(err) {
			return nil
		}
		return errors.Wrapf(err, "persist knowledge for %s", entity)
	}
	r.stats.Writes++
	return nil
}

func (r *Resolver) providerFailed(name, entity string, err error) {
	r.stats.ProviderErrors++
	class := provider.FailureClass(err)
	r.warnings.Warnw("Knowledge provider unavailable", name+"/"+class,
		logger.FieldProvider, name,
		logger.FieldFailure, class,
		logger.FieldError, err.Error(),
		logger.FieldEntity, entity)
}

func (r *Resolver) logErrors(entity string, rec *knowledge.Record) {
	for _, msg := range rec.Errors {
		r.logger.Errorw("Knowledge error",
			logger.FieldEntity, entity,
			logger.FieldError, msg)
	}
}
