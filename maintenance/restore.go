package maintenance

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/store"
)

// RestoreStats reports what Restore wrote.
type RestoreStats struct {
	Restored int `json:"restored"`
	Kept     int `json:"kept"`
}

// Restore replaces the knowledge of doc.Source with the document's records.
//
// Unless purge is set, labelled non-connectivity knowledge already stored for
// the source, or for the most recent source when doc.Source is new, is kept
// wherever the document has no record of its own. Everything happens in one
// transaction.
func Restore(ctx context.Context, st *store.Store, doc *knowledge.Document, purge bool, log *zap.SugaredLogger) (RestoreStats, error) {
	log = logger.OrNop(log)
	var stats RestoreStats
	if doc.Source == "" {
		return stats, errors.WithHint(errors.New("document has no knowledge source"),
			"Set the document's top level \"source\" field")
	}

	var prior []*knowledge.Record
	if !purge {
		var err error
		if prior, err = priorKnowledge(ctx, st, doc.Source); err != nil {
			return stats, err
		}
	}

	err := st.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.PurgeSource(ctx, doc.Source); err != nil {
			return err
		}

		restored := make(map[string]struct{}, len(doc.Knowledge))
		for _, rec := range doc.Knowledge {
			rec = rec.Clone()
			rec.Source = ""
			if err := tx.Put(ctx, doc.Source, rec.ID, rec); err != nil {
				return err
			}
			for _, node := range rec.ConnectivityNodes() {
				if err := tx.IndexConnectivityNode(ctx, doc.Source, node, rec.ID); err != nil {
					return err
				}
			}
			restored[rec.ID] = struct{}{}
		}
		stats.Restored = len(restored)

		for _, rec := range prior {
			if _, ok := restored[rec.ID]; ok {
				continue
			}
			if err := tx.Put(ctx, doc.Source, rec.ID, rec); err != nil {
				return err
			}
			stats.Kept++
		}
		return nil
	})
	if err != nil {
		return RestoreStats{}, err
	}

	log.Infow("Restored knowledge source",
		logger.FieldSource, doc.Source,
		logger.FieldCount, stats.Restored,
		"kept", stats.Kept)
	return stats, nil
}

// priorKnowledge collects the labelled non-connectivity records to carry
// over into source.
func priorKnowledge(ctx context.Context, st *store.Store, source string) ([]*knowledge.Record, error) {
	from := source
	ok, err := st.HasSource(ctx, source)
	if err != nil {
		return nil, err
	}
	if !ok {
		sources, err := st.ListSources(ctx)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			return nil, nil
		}
		from = sources[0]
	}

	var prior []*knowledge.Record
	err = st.Records(ctx, from, func(entity string, rec *knowledge.Record) error {
		if knowledge.IsConnectivityEntity(entity) || rec.HasConnectivity() || !rec.HasRealLabel(entity) {
			return nil
		}
		rec.ID = entity
		rec.Source = ""
		prior = append(prior, rec)
		return nil
	})
	return prior, err
}
