package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
	mktest "github.com/teranos/mapknowledge/internal/testing"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/provider/providertest"
)

func TestEntityKnowledge_Idempotent(t *testing.T) {
	ctx := t.Context()
	graph := providertest.NewGraph(pathOne())
	graph.Paths = []string{"P1"}
	registry := providertest.NewRegistry()
	r := newTestResolver(t, Options{Store: mktest.CreateTestStore(t), Graph: graph, Registry: registry})

	first, err := r.EntityKnowledge(ctx, "P1")
	require.NoError(t, err)
	before := r.Stats()
	graphCalls, registryCalls := graph.TotalCalls(), registry.TotalCalls()

	second, err := r.EntityKnowledge(ctx, "P1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	after := r.Stats()
	assert.Equal(t, before.Writes, after.Writes)
	assert.Equal(t, before.ProviderCalls, after.ProviderCalls)
	assert.Equal(t, before.CacheHits+1, after.CacheHits)
	assert.Equal(t, graphCalls, graph.TotalCalls())
	assert.Equal(t, registryCalls, registry.TotalCalls())
}

func TestEntityKnowledge_PathNodesArePersisted(t *testing.T) {
	ctx := t.Context()
	s := mktest.CreateTestStore(t)
	graph := providertest.NewGraph(pathOne())
	graph.Paths = []string{"P1"}
	r := newTestResolver(t, Options{Store: s, Graph: graph})

	rec, err := r.EntityKnowledge(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Path One", rec.Label)
	assert.Equal(t, currentSource, rec.Source)

	for _, node := range []string{"N1", "N2"} {
		stored, err := s.Get(ctx, currentSource, node)
		require.NoError(t, err)
		require.NotNil(t, stored, node)
		assert.Equal(t, node, stored.Label)
	}

	paths, err := s.NodePaths(ctx, currentSource, knowledge.NewNode("N2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, paths)
}

func TestEntityKnowledge_RecursiveClosure(t *testing.T) {
	ctx := t.Context()
	path := &knowledge.Record{
		ID:    "ilxtr:neuron-type-keast-8",
		Label: "neuron type kblad 8",
		Connectivity: []knowledge.Edge{
			knowledge.NewEdge(knowledge.NewNode("UBERON:0006448", "UBERON:0002726"), knowledge.NewNode("ILX:0793221")),
			knowledge.NewEdge(knowledge.NewNode("ILX:0793221"), knowledge.NewNode("UBERON:0001258")),
		},
	}
	registry := providertest.NewRegistry(
		&knowledge.Record{ID: "UBERON:0001258", Label: "urinary bladder"},
		&knowledge.Record{ID: "UBERON:0002726", Label: "L1 segment"},
	)

	// With and without a store, every node term is cached once the path is.
	for name, opts := range map[string]Options{
		"store":    {Store: mktest.CreateTestStore(t)},
		"no store": {},
	} {
		t.Run(name, func(t *testing.T) {
			opts.Graph = providertest.NewGraph(path)
			opts.Registry = registry
			r := newTestResolver(t, opts)

			_, err := r.EntityKnowledge(ctx, path.ID)
			require.NoError(t, err)

			calls := r.Stats().ProviderCalls
			for _, term := range path.ConnectivityTerms() {
				hits := r.Stats().CacheHits
				_, err := r.EntityKnowledge(ctx, term)
				require.NoError(t, err)
				assert.Equal(t, hits+1, r.Stats().CacheHits, term)
			}
			assert.Equal(t, calls, r.Stats().ProviderCalls)

			label, err := r.Label(ctx, "UBERON:0001258")
			require.NoError(t, err)
			assert.Equal(t, "urinary bladder", label)
		})
	}
}

func TestEntityKnowledge_ConnectivityCycle(t *testing.T) {
	p1 := &knowledge.Record{ID: "ilxtr:p1", Label: "one",
		Connectivity: []knowledge.Edge{knowledge.NewEdge(knowledge.NewNode("UBERON:1"), knowledge.NewNode("ilxtr:p2"))}}
	p2 := &knowledge.Record{ID: "ilxtr:p2", Label: "two",
		Connectivity: []knowledge.Edge{knowledge.NewEdge(knowledge.NewNode("ilxtr:p1"), knowledge.NewNode("UBERON:2"))}}
	graph := providertest.NewGraph(p1, p2)
	r := newTestResolver(t, Options{Store: mktest.CreateTestStore(t), Graph: graph})

	rec, err := r.EntityKnowledge(t.Context(), "ilxtr:p1")
	require.NoError(t, err)
	assert.Equal(t, "one", rec.Label)
	assert.Equal(t, 1, graph.Calls("ilxtr:p1"))
	assert.Equal(t, 1, graph.Calls("ilxtr:p2"))
}

func TestEntityKnowledge_SelfLabelSentinel(t *testing.T) {
	ctx := t.Context()
	s := mktest.CreateTestStore(t)
	entities := []string{"UBERON:0001759", "ILX:0793221", "NCBITaxon:10116"}

	// Nobody knows anything yet.
	r := newTestResolver(t, Options{Store: s, Registry: providertest.NewRegistry()})
	for _, entity := range entities {
		label, err := r.Label(ctx, entity)
		require.NoError(t, err)
		assert.Equal(t, entity, label)
	}

	// A later session whose registry knows real labels returns them.
	registry := providertest.NewRegistry()
	for _, entity := range entities {
		registry.Records[entity] = &knowledge.Record{ID: entity, Label: "label of " + entity}
	}
	r = newTestResolver(t, Options{Store: s, Registry: registry})
	for _, entity := range entities {
		label, err := r.Label(ctx, entity)
		require.NoError(t, err)
		assert.Equal(t, "label of "+entity, label)
	}
}

func TestEntityKnowledge_StoredSelfLabelIsRetried(t *testing.T) {
	ctx := t.Context()
	s := mktest.CreateTestStore(t)
	entity := "UBERON:0001759"
	require.NoError(t, s.Put(ctx, currentSource, entity, &knowledge.Record{ID: entity, Label: entity}))

	registry := providertest.NewRegistry(&knowledge.Record{ID: entity, Label: "vagus nerve"})
	r := newTestResolver(t, Options{Store: s, Registry: registry})

	label, err := r.Label(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, "vagus nerve", label)
	assert.Equal(t, 1, registry.Calls(entity))

	stored, err := s.Get(ctx, currentSource, entity)
	require.NoError(t, err)
	assert.Equal(t, "vagus nerve", stored.Label)
}

func TestEntityKnowledge_StoredRealLabelSkipsProviders(t *testing.T) {
	ctx := t.Context()
	s := mktest.CreateTestStore(t)
	entity := "UBERON:0000948"
	require.NoError(t, s.Put(ctx, currentSource, entity, &knowledge.Record{ID: entity, Label: "heart"}))

	registry := providertest.NewRegistry(&knowledge.Record{ID: entity, Label: "cor"})
	r := newTestResolver(t, Options{Store: s, Registry: registry})

	label, err := r.Label(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, "heart", label)
	assert.Zero(t, registry.TotalCalls())
	assert.Equal(t, 1, r.Stats().StoreHits)
}

func TestEntityKnowledgeFrom_HistoricalSourceIsFrozen(t *testing.T) {
	ctx := t.Context()
	s := mktest.CreateTestStore(t)
	const older = "sckan-2024-03-04"
	require.NoError(t, s.Put(ctx, older, "ilxtr:neuron-type-keast-8", &knowledge.Record{
		ID: "ilxtr:neuron-type-keast-8", Label: "ilxtr:neuron-type-keast-8",
	}))

	graph := providertest.NewGraph(&knowledge.Record{ID: "ilxtr:neuron-type-keast-8", Label: "new label"})
	registry := providertest.NewRegistry(&knowledge.Record{ID: "UBERON:1", Label: "one"})
	r := newTestResolver(t, Options{Store: s, Graph: graph, Registry: registry})

	rec, err := r.EntityKnowledgeFrom(ctx, "ilxtr:neuron-type-keast-8", older)
	require.NoError(t, err)
	assert.Equal(t, older, rec.Source)
	assert.Equal(t, "ilxtr:neuron-type-keast-8", rec.Label)

	rec, err = r.EntityKnowledgeFrom(ctx, "UBERON:1", older)
	require.NoError(t, err)
	assert.Equal(t, "UBERON:1", rec.Label)

	assert.Zero(t, graph.TotalCalls())
	assert.Zero(t, registry.TotalCalls())

	// The current source may still be named explicitly.
	rec, err = r.EntityKnowledgeFrom(ctx, "UBERON:1", currentSource)
	require.NoError(t, err)
	assert.Equal(t, "one", rec.Label)
}

func TestEntityKnowledgeFrom_EmptySourceIsCurrent(t *testing.T) {
	ctx := t.Context()
	registry := providertest.NewRegistry(&knowledge.Record{ID: "UBERON:2", Label: "two"})
	r := newTestResolver(t, Options{Store: mktest.CreateTestStore(t), Registry: registry})

	rec, err := r.EntityKnowledgeFrom(ctx, "UBERON:2", "")
	require.NoError(t, err)
	assert.Equal(t, "two", rec.Label)
	assert.Equal(t, currentSource, rec.Source)
	assert.Equal(t, 1, registry.TotalCalls())

	again, err := r.EntityKnowledge(ctx, "UBERON:2")
	require.NoError(t, err)
	assert.Equal(t, rec, again)
	assert.Equal(t, 1, registry.TotalCalls())
}

func TestEntityKnowledge_ProviderOrder(t *testing.T) {
	ctx := t.Context()
	path := &knowledge.Record{
		ID:           "ilxtr:neuron-type-aacar-1",
		Label:        "aacar 1",
		Connectivity: []knowledge.Edge{knowledge.NewEdge(knowledge.NewNode("UBERON:1"), knowledge.NewNode("UBERON:2"))},
	}

	t.Run("connectivity namespace asks the graph first", func(t *testing.T) {
		graph := providertest.NewGraph(path)
		registry := providertest.NewRegistry()
		r := newTestResolver(t, Options{Graph: graph, Registry: registry})

		rec, err := r.EntityKnowledge(ctx, path.ID)
		require.NoError(t, err)
		assert.Equal(t, "aacar 1", rec.Label)
		assert.Equal(t, 1, graph.Calls(path.ID))
		assert.Zero(t, registry.Calls(path.ID))
		// Plain anatomical terms are not asked of the graph.
		assert.Zero(t, graph.Calls("UBERON:1"))
		assert.Equal(t, 1, registry.Calls("UBERON:1"))
	})

	t.Run("graph stub falls back to the registry with metadata", func(t *testing.T) {
		graph := providertest.NewGraph()
		registry := providertest.NewRegistry(path)
		registry.Metadata[path.ID] = &knowledge.Record{
			ID:         path.ID,
			Taxons:     []string{"NCBITaxon:10116"},
			Phenotypes: []string{"ilxtr:ParasympatheticPhenotype"},
		}
		r := newTestResolver(t, Options{Graph: graph, Registry: registry})

		rec, err := r.EntityKnowledge(ctx, path.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, graph.Calls(path.ID))
		assert.Equal(t, 1, registry.Calls(path.ID))
		assert.Equal(t, 1, registry.MetadataCalls(path.ID))
		assert.Equal(t, []string{"NCBITaxon:10116"}, rec.Taxons)
		assert.Equal(t, "aacar 1", rec.Label)
	})

	t.Run("known graph terms outside connectivity namespaces", func(t *testing.T) {
		graph := providertest.NewGraph(&knowledge.Record{ID: "UBERON:0001759", Label: "vagus nerve"})
		registry := providertest.NewRegistry()
		r := newTestResolver(t, Options{Graph: graph, Registry: registry})

		label, err := r.Label(ctx, "UBERON:0001759")
		require.NoError(t, err)
		assert.Equal(t, "vagus nerve", label)
		assert.Zero(t, registry.TotalCalls())
	})
}

func TestEntityKnowledge_PrefersLongLabel(t *testing.T) {
	ctx := t.Context()
	s := mktest.CreateTestStore(t)
	entity := "ilxtr:neuron-type-sstom-6"
	graph := providertest.NewGraph(&knowledge.Record{ID: entity, Label: entity, LongLabel: "stomach to spinal cord"})
	r := newTestResolver(t, Options{Store: s, Graph: graph})

	label, err := r.Label(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, "stomach to spinal cord", label)

	stored, err := s.Get(ctx, currentSource, entity)
	require.NoError(t, err)
	assert.Equal(t, "stomach to spinal cord", stored.Label)
}

func TestEntityKnowledge_ProviderFailureDegrades(t *testing.T) {
	ctx := t.Context()
	log, logs := observedLogger(zap.NewAtomicLevelAt(zap.WarnLevel))
	registry := providertest.NewRegistry()
	registry.Err = errors.WrapProviderUnavailable(errors.New("connection refused"), "registry")
	r := newTestResolver(t, Options{Store: mktest.CreateTestStore(t), Registry: registry, Logger: log})

	for _, entity := range []string{"UBERON:1", "UBERON:2", "UBERON:3"} {
		rec, err := r.EntityKnowledge(ctx, entity)
		require.NoError(t, err)
		assert.Equal(t, entity, rec.Label)
	}

	assert.Equal(t, 3, r.Stats().ProviderErrors)
	assert.Equal(t, 1, logs.FilterMessage("Knowledge provider unavailable").Len())
	assert.Zero(t, r.Stats().Writes)
}

func TestEntityKnowledge_ErrorsFieldIsReturnedAndLogged(t *testing.T) {
	ctx := t.Context()
	log, logs := observedLogger(zap.NewAtomicLevelAt(zap.ErrorLevel))
	entity := "ilxtr:neuron-type-bad"
	graph := providertest.NewGraph(&knowledge.Record{ID: entity, Label: "bad", Errors: []string{"unknown layer UBERON:X"}})
	r := newTestResolver(t, Options{Graph: graph, Logger: log})

	rec, err := r.EntityKnowledge(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, []string{"unknown layer UBERON:X"}, rec.Errors)

	_, err = r.EntityKnowledge(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("Knowledge error").Len())
}

func TestEntityKnowledge_WriteFailurePropagates(t *testing.T) {
	ctx := t.Context()
	fs := &failingStore{Store: mktest.CreateTestStore(t)}
	registry := providertest.NewRegistry(&knowledge.Record{ID: "UBERON:1", Label: "one"})
	r := newTestResolver(t, Options{Store: fs, Registry: registry})

	_, err := r.EntityKnowledge(ctx, "UBERON:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk is full")

	// Nothing was cached, so the next call tries again.
	_, err = r.EntityKnowledge(ctx, "UBERON:1")
	require.Error(t, err)
	assert.Equal(t, 2, fs.puts)
}

func TestEntityKnowledge_ReadOnlyStoreIsNotWritten(t *testing.T) {
	ctx := t.Context()
	s := mktest.CreateTestStore(t)
	path := s.Path()
	require.NoError(t, s.Close())

	ro := mktest.OpenReadOnly(t, path)
	registry := providertest.NewRegistry(&knowledge.Record{ID: "UBERON:1", Label: "one"})
	r := newTestResolver(t, Options{Store: ro, Registry: registry})

	label, err := r.Label(ctx, "UBERON:1")
	require.NoError(t, err)
	assert.Equal(t, "one", label)
	assert.Zero(t, r.Stats().Writes)

	stored, err := ro.Get(ctx, currentSource, "UBERON:1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestEntityKnowledge_ReturnsCopies(t *testing.T) {
	ctx := t.Context()
	r := newTestResolver(t, Options{Graph: providertest.NewGraph(pathOne())})

	rec, err := r.EntityKnowledge(ctx, "P1")
	require.NoError(t, err)
	rec.Label = "mutated"
	rec.Connectivity[0][0].Term = "mutated"

	again, err := r.EntityKnowledge(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Path One", again.Label)
	assert.Equal(t, "N1", again.Connectivity[0][0].Term)
}

func TestResolver_Close(t *testing.T) {
	graph := providertest.NewGraph()
	registry := providertest.NewRegistry()
	r := newTestResolver(t, Options{Store: mktest.CreateTestStore(t), Graph: graph, Registry: registry})

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.True(t, graph.Closed())
	assert.True(t, registry.Closed())

	_, err := r.EntityKnowledge(t.Context(), "UBERON:1")
	assert.Error(t, err)
}

func TestResolver_Provenance(t *testing.T) {
	r := newTestResolver(t, Options{})
	p := r.Provenance()
	assert.Len(t, p.Session, 36)
	assert.Equal(t, currentSource, p.Source)
	assert.False(t, p.Started.IsZero())

	other := newTestResolver(t, Options{})
	assert.NotEqual(t, p.Session, other.Provenance().Session)
}
