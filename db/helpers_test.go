package db

import (
	"crypto/sha256"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	legacyEntity = "UBERON:0000948"
	legacyBlob   = `{"id":"UBERON:0000948","label":"heart"}`
	labelEntity  = "UBERON:0001759"
	labelText    = "vagus nerve"
)

// createHistoricalStore writes a store at path laid out as release version
// left it, holding one knowledge row and one label-only entity.
func createHistoricalStore(t *testing.T, path, version string) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	legacy, err := os.ReadFile("testdata/legacy.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(legacy))
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO knowledge (entity, knowledge) VALUES (?, ?)", legacyEntity, legacyBlob)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO labels (entity, label) VALUES (?, ?), (?, ?)",
		legacyEntity, "heart", labelEntity, labelText)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO publications (entity, publication) VALUES (?, ?)", legacyEntity, "PMID:1")
	require.NoError(t, err)

	for _, step := range Migrations {
		if stored, err := SchemaVersion(db); err == nil && stored == version {
			return
		}
		require.NoError(t, applyStep(db, step))
	}
	stored, err := SchemaVersion(db)
	require.NoError(t, err)
	require.Equal(t, version, stored)
}

func fileDigest(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return sha256.Sum256(data)
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}
