// Package maintenance holds the operations run against a knowledge store
// outside of normal resolution: purging a source, listing sources, and
// exporting or restoring a source's knowledge as a document.
package maintenance

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/store"
)

// Clean purges source's connectivity knowledge so it is resolved afresh.
func Clean(ctx context.Context, st *store.Store, source string, log *zap.SugaredLogger) (store.PurgeStats, error) {
	log = logger.OrNop(log)
	log.Infow("Cleaning connectivity knowledge", logger.FieldSource, source, logger.FieldPath, st.Path())

	stats, err := st.PurgeSource(ctx, source)
	if err != nil {
		return stats, err
	}
	log.Infow("Connectivity knowledge cleaned",
		logger.FieldSource, source,
		logger.FieldCount, stats.Total(),
		"connectivity", stats.Connectivity,
		"nodes", stats.Nodes)
	return stats, nil
}

// Sources lists the stored knowledge sources, most recent first.
func Sources(ctx context.Context, st *store.Store) ([]string, error) {
	return st.ListSources(ctx)
}
