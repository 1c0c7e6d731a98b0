package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/store"
)

const currentSource = "sckan-2024-09-21"

func observedLogger(level zap.AtomicLevel) (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core).Sugar(), logs
}

func newTestResolver(t *testing.T, opts Options) *Resolver {
	t.Helper()
	if opts.Source == "" {
		opts.Source = currentSource
	}
	r, err := New(t.Context(), opts)
	require.NoError(t, err)
	return r
}

// pathOne is a connectivity path through two nodes nobody has labels for.
func pathOne() *knowledge.Record {
	return &knowledge.Record{
		ID:    "P1",
		Label: "Path One",
		Connectivity: []knowledge.Edge{
			knowledge.NewEdge(knowledge.NewNode("N1"), knowledge.NewNode("N2")),
		},
	}
}

// failingStore refuses every write.
type failingStore struct {
	*store.Store
	puts int
}

func (f *failingStore) PutWithConnectivity(context.Context, string, string, *knowledge.Record) error {
	f.puts++
	return errors.New("database or disk is full")
}
