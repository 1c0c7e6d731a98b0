package db

import (
	"context"
	"database/sql"

	"github.com/teranos/mapknowledge/errors"
)

// SchemaVersionKey is the metadata entry holding the schema version.
const SchemaVersionKey = "schema_version"

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Metadata returns the value stored under name. ok is false when there is none.
func Metadata(ctx context.Context, q queryRower, name string) (value string, ok bool, err error) {
	var v sql.NullString
	err = q.QueryRowContext(ctx, "SELECT value FROM metadata WHERE name = ?", name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "read metadata %q", name)
	}
	return v.String, v.Valid, nil
}

// SetMetadata stores value under name, replacing any previous value.
func SetMetadata(ctx context.Context, e execer, name, value string) error {
	_, err := e.ExecContext(ctx, "INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", name, value)
	return errors.Wrapf(err, "write metadata %q", name)
}

// SchemaVersion reads the stored schema version. Stores from before
// versioning have no entry and report "".
func SchemaVersion(q queryRower) (string, error) {
	version, _, err := Metadata(context.Background(), q, SchemaVersionKey)
	if IsNoSuchTable(err) {
		return "", nil
	}
	return version, err
}

func stampVersion(e execer, version string) error {
	return SetMetadata(context.Background(), e, SchemaVersionKey, version)
}
