// Package store provides the persistent knowledge store: knowledge records
// keyed by (source, entity), the connectivity node index and the metadata
// table, all in one SQLite file.
package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/db"
	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
)

// Options control how a store is opened.
type Options = db.OpenOptions

// Store is a knowledge store backed by a single SQLite file.
// A Store is used by one session at a time.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
	logger   *zap.SugaredLogger
}

// Open opens (and if needed creates or migrates) the store file at path.
func Open(path string, opts Options, log *zap.SugaredLogger) (*Store, error) {
	database, err := db.Open(path, opts, log)
	if err != nil {
		return nil, err
	}
	s := New(database, opts.ReadOnly, log)
	s.path = path
	return s, nil
}

// New wraps an already opened and migrated database.
func New(database *sql.DB, readOnly bool, log *zap.SugaredLogger) *Store {
	return &Store{
		db:       database,
		readOnly: readOnly,
		logger:   logger.OrNop(log),
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.Wrap(err, "close knowledge store")
}

// conn returns the open handle, or ErrDatabaseClosed after Close.
func (s *Store) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, errors.WithStack(db.ErrDatabaseClosed)
	}
	return s.db, nil
}

// ReadOnly reports whether mutations are refused.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Path returns the store file, or "" when the store was built with New.
func (s *Store) Path() string {
	return s.path
}

const (
	selectFromSourceQuery = `
		SELECT source, knowledge FROM knowledge
		WHERE source = ? AND entity = ?`

	// NULL sorts first, so DESC prefers any sourced row over shared knowledge.
	selectMostRecentQuery = `
		SELECT source, knowledge FROM knowledge
		WHERE entity = ?
		ORDER BY source DESC
		LIMIT 1`

	listSourcesQuery = `
		SELECT DISTINCT source FROM knowledge
		WHERE source IS NOT NULL
		ORDER BY source DESC`
)

// Get returns the record stored for entity under source, or nil when there
// is none. An empty source returns the most recent record across all sources.
func (s *Store) Get(ctx context.Context, source, entity string) (*knowledge.Record, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	var row *sql.Row
	if source == "" {
		row = conn.QueryRowContext(ctx, selectMostRecentQuery, entity)
	} else {
		row = conn.QueryRowContext(ctx, selectFromSourceQuery, source, entity)
	}

	var stored sql.NullString
	var blob string
	if err := row.Scan(&stored, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get %s", entity)
	}

	rec, err := knowledge.Unmarshal([]byte(blob))
	if err != nil {
		return nil, errors.Wrapf(err, "decode knowledge for %s", entity)
	}
	rec.Source = stored.String
	return rec, nil
}

// Put stores rec for (source, entity), replacing any previous record.
func (s *Store) Put(ctx context.Context, source, entity string, rec *knowledge.Record) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.Put(ctx, source, entity, rec)
	})
}

// PutWithConnectivity stores rec and indexes every distinct node of its
// connectivity under (source, entity), in one transaction.
func (s *Store) PutWithConnectivity(ctx context.Context, source, entity string, rec *knowledge.Record) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Put(ctx, source, entity, rec); err != nil {
			return err
		}
		for _, node := range rec.ConnectivityNodes() {
			if err := tx.IndexConnectivityNode(ctx, source, node, entity); err != nil {
				return err
			}
		}
		return nil
	})
}

// IndexConnectivityNode records that node appears in path for source.
// Indexing the same triple again is a no-op.
func (s *Store) IndexConnectivityNode(ctx context.Context, source string, node knowledge.Node, path string) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.IndexConnectivityNode(ctx, source, node, path)
	})
}

// NodePaths returns the paths in which node appears for source.
func (s *Store) NodePaths(ctx context.Context, source string, node knowledge.Node) ([]string, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		"SELECT path FROM connectivity_nodes WHERE coalesce(source, '') = ? AND node = ? ORDER BY path",
		source, node.Key())
	if err != nil {
		return nil, errors.Wrap(err, "query connectivity nodes")
	}
	return scanStrings(rows)
}

// ListSources returns every source with stored knowledge, most recent first.
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, listSourcesQuery)
	if err != nil {
		return nil, errors.Wrap(err, "list sources")
	}
	return scanStrings(rows)
}

// HasSource reports whether any knowledge is stored under source.
func (s *Store) HasSource(ctx context.Context, source string) (bool, error) {
	conn, err := s.conn()
	if err != nil {
		return false, err
	}
	var exists bool
	err = conn.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM knowledge WHERE source = ?)", source).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "check source %s", source)
	}
	return exists, nil
}

// Records calls fn for every record stored under source, ordered by entity.
// Iteration stops at the first error fn returns.
func (s *Store) Records(ctx context.Context, source string, fn func(entity string, rec *knowledge.Record) error) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	rows, err := conn.QueryContext(ctx,
		"SELECT entity, knowledge FROM knowledge WHERE coalesce(source, '') = ? ORDER BY entity", source)
	if err != nil {
		return errors.Wrap(err, "query records")
	}
	defer rows.Close()

	for rows.Next() {
		var entity, blob string
		if err := rows.Scan(&entity, &blob); err != nil {
			return errors.Wrap(err, "scan record")
		}
		rec, err := knowledge.Unmarshal([]byte(blob))
		if err != nil {
			return errors.Wrapf(err, "decode knowledge for %s", entity)
		}
		rec.Source = source
		if err := fn(entity, rec); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "iterate records")
}

// Metadata returns the metadata value stored under name.
func (s *Store) Metadata(ctx context.Context, name string) (string, bool, error) {
	conn, err := s.conn()
	if err != nil {
		return "", false, err
	}
	return db.Metadata(ctx, conn, name)
}

// SetMetadata stores a metadata value. The write commits immediately.
func (s *Store) SetMetadata(ctx context.Context, name, value string) error {
	if s.readOnly {
		return errors.Wrapf(errors.ErrReadOnly, "set metadata %q", name)
	}
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return db.SetMetadata(ctx, conn, name, value)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		out = append(out, v)
	}
	return out, errors.Wrap(rows.Err(), "iterate rows")
}

func nullable(source string) sql.NullString {
	return sql.NullString{String: source, Valid: source != ""}
}
