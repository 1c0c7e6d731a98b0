package store

import (
	"context"
	"strings"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
)

// nodeTermsQuery selects every term (primary and layers) of the nodes
// indexed for a source.
const nodeTermsQuery = `
	SELECT json_extract(node, '$[0]') FROM connectivity_nodes WHERE source = ?
	UNION
	SELECT layer.value FROM connectivity_nodes AS n, json_each(n.node, '$[1]') AS layer
	WHERE n.source = ?`

const purgeNodeRecordsQuery = `
	DELETE FROM knowledge
	WHERE (source = ? OR source IS NULL) AND entity IN (` + nodeTermsQuery + `)`

// PurgeStats reports how many rows PurgeSource removed.
type PurgeStats struct {
	Connectivity int64 // connectivity namespace records
	Nodes        int64 // records for entities used as connectivity nodes
	Records      int64 // remaining records of the source
	IndexRows    int64 // connectivity index rows
	Models       int64 // connectivity models recorded against the source
}

// Total is the number of knowledge rows removed.
func (p PurgeStats) Total() int64 {
	return p.Connectivity + p.Nodes + p.Records
}

// PurgeSource removes the knowledge attributed to source together with
// shared connectivity knowledge and the records of entities its connectivity
// references, so they are resolved afresh. It runs in one transaction.
func (s *Store) PurgeSource(ctx context.Context, source string) (PurgeStats, error) {
	var stats PurgeStats
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		stats, err = tx.PurgeSource(ctx, source)
		return err
	})
	if err != nil {
		return PurgeStats{}, err
	}

	s.logger.Infow("Purged knowledge source",
		logger.FieldSource, source,
		logger.FieldCount, stats.Total(),
		"index_rows", stats.IndexRows)
	return stats, nil
}

// PurgeSource is Store.PurgeSource within an open transaction.
func (t *Tx) PurgeSource(ctx context.Context, source string) (PurgeStats, error) {
	var stats PurgeStats
	if source == "" {
		return stats, errors.WithHint(
			errors.New("purge requires a knowledge source"),
			"List stored sources with 'mapknowledge sources'")
	}

	patterns := knowledge.ConnectivityPatterns()
	likes := strings.TrimSuffix(strings.Repeat("entity LIKE ? OR ", len(patterns)), " OR ")
	connectivityArgs := []interface{}{source}
	for _, p := range patterns {
		connectivityArgs = append(connectivityArgs, p)
	}

	steps := []struct {
		name  string
		query string
		args  []interface{}
		count *int64
	}{
		{
			name:  "connectivity records",
			query: "DELETE FROM knowledge WHERE (source = ? OR source IS NULL) AND (" + likes + ")",
			args:  connectivityArgs,
			count: &stats.Connectivity,
		},
		{
			name:  "connectivity node records",
			query: purgeNodeRecordsQuery,
			args:  []interface{}{source, source, source},
			count: &stats.Nodes,
		},
		{
			name:  "source records",
			query: "DELETE FROM knowledge WHERE source = ?",
			args:  []interface{}{source},
			count: &stats.Records,
		},
		{
			name:  "connectivity index",
			query: "DELETE FROM connectivity_nodes WHERE source = ?",
			args:  []interface{}{source},
			count: &stats.IndexRows,
		},
		{
			name:  "connectivity models",
			query: "DELETE FROM connectivity_models WHERE version = ?",
			args:  []interface{}{source},
			count: &stats.Models,
		},
	}

	for _, step := range steps {
		res, err := t.tx.ExecContext(ctx, step.query, step.args...)
		if err != nil {
			return PurgeStats{}, errors.Wrapf(err, "purge %s for %s", step.name, source)
		}
		if n, err := res.RowsAffected(); err == nil {
			*step.count = n
		}
	}
	return stats, nil
}
