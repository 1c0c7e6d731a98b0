package store

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
)

func TestStore_PurgeSource(t *testing.T) {
	ctx := t.Context()
	s := newTestStore(t)

	soma := knowledge.NewNode("UBERON:0006448", "UBERON:0002726")
	target := knowledge.NewNode("UBERON:0001258")
	path := neuronPath("ilxtr:neuron-type-keast-8", soma, target)
	model := knowledge.ModelPrefix + "keast-bladder"

	for _, source := range []string{olderSource, newerSource} {
		require.NoError(t, s.PutWithConnectivity(ctx, source, path.ID, path))
		require.NoError(t, s.Put(ctx, source, "UBERON:0001258", &knowledge.Record{ID: "UBERON:0001258", Label: "bladder"}))
		require.NoError(t, s.Put(ctx, source, "NCBITaxon:10116", &knowledge.Record{ID: "NCBITaxon:10116", Label: "rat"}))
		require.NoError(t, s.Put(ctx, source, model, &knowledge.Record{ID: model, Label: "bladder model"}))
	}
	// Shared knowledge: a connectivity entity, a layer term used by the
	// purged paths and an unrelated term.
	require.NoError(t, s.Put(ctx, "", "ilxtr:neuron-type-aacar-1", &knowledge.Record{ID: "ilxtr:neuron-type-aacar-1"}))
	require.NoError(t, s.Put(ctx, "", "UBERON:0002726", &knowledge.Record{ID: "UBERON:0002726", Label: "cervical"}))
	require.NoError(t, s.Put(ctx, "", "UBERON:0000948", &knowledge.Record{ID: "UBERON:0000948", Label: "heart"}))
	require.NoError(t, s.PutConnectivityModel(ctx, model, newerSource))

	otherRows := countRows(t, s, "SELECT count(*) FROM knowledge WHERE source = ?", olderSource)
	otherIndex := countRows(t, s, "SELECT count(*) FROM connectivity_nodes WHERE source = ?", olderSource)

	stats, err := s.PurgeSource(ctx, newerSource)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.IndexRows)
	assert.Equal(t, int64(1), stats.Models)
	assert.Equal(t, int64(6), stats.Total())

	assert.Zero(t, countRows(t, s, "SELECT count(*) FROM knowledge WHERE source = ?", newerSource))
	assert.Zero(t, countRows(t, s, "SELECT count(*) FROM connectivity_nodes WHERE source = ?", newerSource))
	assert.Equal(t, otherRows, countRows(t, s, "SELECT count(*) FROM knowledge WHERE source = ?", olderSource))
	assert.Equal(t, otherIndex, countRows(t, s, "SELECT count(*) FROM connectivity_nodes WHERE source = ?", olderSource))

	for entity, want := range map[string]bool{
		"ilxtr:neuron-type-aacar-1": false,
		"UBERON:0002726":            false,
		"UBERON:0000948":            true,
	} {
		got := countRows(t, s, "SELECT count(*) FROM knowledge WHERE source IS NULL AND entity = ?", entity)
		assert.Equal(t, want, got == 1, entity)
	}

	sources, err := s.ListSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{olderSource}, sources)
}

func TestStore_PurgeSource_RequiresSource(t *testing.T) {
	s := newTestStore(t)
	_, err := s.PurgeSource(t.Context(), "")
	require.Error(t, err)
	assert.NotEmpty(t, errors.FlattenHints(err))
}

func TestStore_PurgeSource_Atomic(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	s := New(sqlDB, false, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM knowledge WHERE (source = ? OR source IS NULL)")).
		WithArgs(newerSource, knowledge.ModelPrefix+"%", "ilxtr:%").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM knowledge")).
		WithArgs(newerSource, newerSource, newerSource).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = s.PurgeSource(t.Context(), newerSource)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
