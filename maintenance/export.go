package maintenance

import (
	"context"
	"io"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/store"
)

// Resolver is the part of a resolver an export needs.
type Resolver interface {
	Source() string
	ConnectivityPaths(ctx context.Context) ([]string, error)
	EntityKnowledge(ctx context.Context, entity string) (*knowledge.Record, error)
}

// Export resolves every connectivity path and every term its connectivity,
// phenotypes, taxons, dendrites and axons refer to, and writes the result
// to w as one document. The document is returned for callers that want to
// summarise it.
func Export(ctx context.Context, r Resolver, w io.Writer, format knowledge.Format) (*knowledge.Document, error) {
	paths, err := r.ConnectivityPaths(ctx)
	if err != nil {
		return nil, err
	}

	doc := &knowledge.Document{Source: r.Source()}
	seen := make(map[string]struct{})
	add := func(entity string) (*knowledge.Record, error) {
		if _, ok := seen[entity]; ok {
			return nil, nil
		}
		seen[entity] = struct{}{}
		rec, err := r.EntityKnowledge(ctx, entity)
		if err != nil {
			return nil, errors.Wrapf(err, "export %s", entity)
		}
		rec.ID = entity
		rec.Source = doc.Source
		doc.Knowledge = append(doc.Knowledge, rec)
		return rec, nil
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := add(path)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		for _, term := range referencedTerms(rec) {
			if _, err := add(term); err != nil {
				return nil, err
			}
		}
	}

	if err := doc.Encode(w, format); err != nil {
		return nil, err
	}
	return doc, nil
}

// ExportStore writes the records stored under source without consulting
// any provider.
func ExportStore(ctx context.Context, st *store.Store, source string, w io.Writer, format knowledge.Format) (*knowledge.Document, error) {
	if source == "" {
		sources, err := st.ListSources(ctx)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			return nil, errors.WithHint(errors.New("no knowledge sources stored"),
				"Resolve some knowledge first with 'mapknowledge lookup'")
		}
		source = sources[0]
	}

	doc := &knowledge.Document{Source: source}
	err := st.Records(ctx, source, func(entity string, rec *knowledge.Record) error {
		rec.ID = entity
		doc.Knowledge = append(doc.Knowledge, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := doc.Encode(w, format); err != nil {
		return nil, err
	}
	return doc, nil
}

func referencedTerms(rec *knowledge.Record) []string {
	terms := rec.ConnectivityTerms()
	terms = append(terms, rec.Phenotypes...)
	terms = append(terms, rec.Taxons...)
	for _, nodes := range [][]knowledge.Node{rec.Dendrites, rec.Axons} {
		for _, n := range nodes {
			terms = append(terms, n.Terms()...)
		}
	}
	return terms
}
