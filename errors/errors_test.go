package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(ErrSchemaUpgradeRequired, "open the store writable")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "open the store writable", hints[0])
	assert.True(t, Is(err, ErrSchemaUpgradeRequired))
}

func TestIsReadOnly(t *testing.T) {
	assert.True(t, IsReadOnly(ErrReadOnly))
	assert.True(t, IsReadOnly(Wrap(ErrReadOnly, "put UBERON:0000948")))
	assert.False(t, IsReadOnly(New("disk full")))
	assert.False(t, IsReadOnly(nil))
}

func TestWrapProviderUnavailable(t *testing.T) {
	t.Run("marks and keeps message", func(t *testing.T) {
		cause := New("connection refused")
		err := WrapProviderUnavailable(cause, "scicrunch")

		assert.True(t, IsProviderUnavailable(err))
		assert.True(t, Is(err, cause))
		assert.Contains(t, err.Error(), "scicrunch")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapProviderUnavailable(nil, "npo"))
	})
}

func TestIsOpenError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrMissingStore, true},
		{Wrap(ErrSchemaUpgradeRequired, "open"), true},
		{Wrapf(ErrMigrationFailed, "1.2 to 1.3"), true},
		{ErrUnknownSchemaVersion, true},
		{ErrReadOnly, false},
		{ErrUnknownKnowledgeSource, false},
		{nil, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.err), func(t *testing.T) {
			assert.Equal(t, tt.want, IsOpenError(tt.err))
		})
	}
}

func TestStackTrace(t *testing.T) {
	err := Wrap(ErrMissingStore, "open /tmp/knowledgebase.db")

	assert.NotNil(t, GetStack(err))
	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}
