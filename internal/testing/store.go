package testing

import (
	"path/filepath"
	"testing"

	"github.com/teranos/mapknowledge/store"
)

// StoreFile is the file name CreateTestStore uses inside its directory.
const StoreFile = "knowledgebase.db"

// CreateTestStore creates a fresh, migrated knowledge store in a temporary
// directory. Automatically registers cleanup via t.Cleanup().
func CreateTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), StoreFile), store.Options{Create: true}, nil)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// OpenReadOnly opens an existing store read-only.
// Automatically registers cleanup via t.Cleanup().
func OpenReadOnly(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path, store.Options{ReadOnly: true}, nil)
	if err != nil {
		t.Fatalf("Failed to open %s read-only: %v", path, err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
