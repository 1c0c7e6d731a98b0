package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/mapknowledge/knowledge"
)

const (
	olderSource = "sckan-2024-03-04"
	newerSource = "sckan-2024-09-21"
)

// newTestStore creates a fresh store file in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "knowledgebase.db"),
		Options{Create: true}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func neuronPath(id string, nodes ...knowledge.Node) *knowledge.Record {
	rec := &knowledge.Record{ID: id, Label: "neuron " + id}
	for i := 1; i < len(nodes); i++ {
		rec.Connectivity = append(rec.Connectivity, knowledge.NewEdge(nodes[i-1], nodes[i]))
	}
	return rec
}

func countRows(t *testing.T, s *Store, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(query, args...).Scan(&n))
	return n
}
