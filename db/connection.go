// Package db owns the SQLite file behind the knowledge store: opening it,
// creating the schema, and migrating older layouts forward.
package db

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
)

// SQLiteBusyTimeoutMS is how long a connection waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

// OpenOptions control how a store file is opened.
type OpenOptions struct {
	// ReadOnly opens the file with mode=ro and refuses schema upgrades.
	ReadOnly bool
	// Create allows a missing file to be created with the current schema.
	Create bool
}

// Open opens the knowledge store at path, creating or migrating its schema as
// the options allow. If logger is provided, logs database operations;
// otherwise operates silently.
func Open(path string, opts OpenOptions, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening knowledge store", "path", path, "read_only", opts.ReadOnly)
	}

	created := false
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat %s", path)
		}
		if !opts.Create || opts.ReadOnly {
			return nil, errors.WithHint(
				errors.Wrapf(errors.ErrMissingStore, "%s", path),
				"open the store with create enabled to initialise it")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(err, "create store directory for %s", path)
		}
		created = true
	}

	db, err := sql.Open("sqlite3", dsn(path, opts.ReadOnly))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// One connection: the session is single threaded and every pragma and
	// transaction then applies to the same handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s", path)
	}

	if created {
		if err := createSchema(db); err != nil {
			db.Close()
			os.Remove(path)
			return nil, err
		}
		if logger != nil {
			logger.Infow("Created knowledge store", "path", path, "schema_version", CurrentVersion)
		}
		return db, nil
	}

	if err := checkSchema(db, opts.ReadOnly, logger); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Infow("Knowledge store opened",
			"path", path,
			"read_only", opts.ReadOnly,
			"schema_version", CurrentVersion,
		)
	}
	return db, nil
}

// dsn builds a mattn/go-sqlite3 URI for path.
func dsn(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_busy_timeout", strconv.Itoa(SQLiteBusyTimeoutMS))
	params.Set("_foreign_keys", "1")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		// Enable WAL mode for concurrent readers while this process writes
		params.Set("_journal_mode", "WAL")
		params.Set("_txlock", "immediate")
	}
	return "file:" + path + "?" + params.Encode()
}

// createSchema initialises an empty database with the current layout and
// stamps its version in a single transaction.
func createSchema(db *sql.DB) error {
	script, err := sqlFiles.ReadFile("sqlite/schema.sql")
	if err != nil {
		return errors.Wrap(err, "read schema")
	}

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return errors.Wrap(err, "begin schema creation")
	}
	if _, err := tx.Exec(string(script)); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "create schema")
	}
	if err := stampVersion(tx, CurrentVersion); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit schema creation")
}

// checkSchema compares the stored version with CurrentVersion and migrates
// writable stores.
func checkSchema(db *sql.DB, readOnly bool, logger *zap.SugaredLogger) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if version == CurrentVersion {
		return nil
	}
	if readOnly {
		return errors.WithHintf(
			errors.Wrapf(errors.ErrSchemaUpgradeRequired, "stored version %q, current %q", version, CurrentVersion),
			"open the store writable once to upgrade it to %s", CurrentVersion)
	}
	return Migrate(db, logger)
}
