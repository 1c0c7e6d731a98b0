package store

import (
	"context"
	"database/sql"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
)

// Tx is a write transaction on the store.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a write transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	if s.readOnly {
		return errors.WithStack(errors.ErrReadOnly)
	}

	conn, err := s.conn()
	if err != nil {
		return err
	}
	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil {
				err = errors.WithSecondaryError(err, rbErr)
			}
			return
		}
		err = errors.Wrap(sqlTx.Commit(), "commit transaction")
	}()

	return fn(&Tx{tx: sqlTx})
}

// Put replaces the record stored for (source, entity).
func (t *Tx) Put(ctx context.Context, source, entity string, rec *knowledge.Record) error {
	blob, err := knowledge.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encode knowledge for %s", entity)
	}
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM knowledge WHERE coalesce(source, '') = ? AND entity = ?", source, entity); err != nil {
		return errors.Wrapf(err, "replace %s", entity)
	}
	if _, err := t.tx.ExecContext(ctx,
		"INSERT INTO knowledge (source, entity, knowledge) VALUES (?, ?, ?)",
		nullable(source), entity, string(blob)); err != nil {
		return errors.Wrapf(err, "insert %s", entity)
	}
	return nil
}

// IndexConnectivityNode adds a (source, node, path) index row unless it exists.
func (t *Tx) IndexConnectivityNode(ctx context.Context, source string, node knowledge.Node, path string) error {
	key := node.Key()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO connectivity_nodes (source, node, path)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM connectivity_nodes
			WHERE coalesce(source, '') = ? AND node = ? AND path = ?
		)`,
		nullable(source), key, path, source, key, path)
	return errors.Wrapf(err, "index node %s of %s", key, path)
}
