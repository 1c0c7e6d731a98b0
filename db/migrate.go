package db

import (
	"database/sql"
	"embed"
	"path"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
)

// CurrentVersion is the schema version written by this release.
const CurrentVersion = "1.4"

//go:embed sqlite/schema.sql sqlite/migrations/*.sql
var sqlFiles embed.FS

// Migration upgrades a store from one schema version to the next.
type Migration struct {
	// From is the stored version the step applies to; "" is the unversioned
	// layout of the earliest releases.
	From string
	To   string
	// File names the script under sqlite/migrations.
	File string
}

// Migrations is the upgrade chain, oldest first.
var Migrations = []Migration{
	{From: "", To: "1.1", File: "1.1.sql"},
	{From: "1.1", To: "1.2", File: "1.2.sql"},
	{From: "1.2", To: "1.3", File: "1.3.sql"},
	{From: "1.3", To: "1.4", File: "1.4.sql"},
}

// ValidateChain checks that chain is a single unbroken sequence of steps,
// each strictly increasing the version, ending at current.
func ValidateChain(chain []Migration, current string) error {
	if len(chain) == 0 {
		return errors.Wrap(errors.ErrInvalidMigrationChain, "no migrations registered")
	}

	seen := make(map[string]bool, len(chain))
	for i, step := range chain {
		if seen[step.From] {
			return errors.Wrapf(errors.ErrInvalidMigrationChain, "duplicate step from %q", step.From)
		}
		seen[step.From] = true

		if i > 0 && step.From != chain[i-1].To {
			return errors.Wrapf(errors.ErrInvalidMigrationChain,
				"gap between %q and %q", chain[i-1].To, step.From)
		}

		to, err := semver.NewVersion(step.To)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidMigrationChain, "step to %q: %v", step.To, err)
		}
		if step.From != "" {
			from, err := semver.NewVersion(step.From)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidMigrationChain, "step from %q: %v", step.From, err)
			}
			if !to.GreaterThan(from) {
				return errors.Wrapf(errors.ErrInvalidMigrationChain,
					"step %q to %q does not move forward", step.From, step.To)
			}
		}
	}

	if last := chain[len(chain)-1].To; last != current {
		return errors.Wrapf(errors.ErrInvalidMigrationChain,
			"chain ends at %q, current version is %q", last, current)
	}
	return nil
}

// Migrate upgrades db from its stored schema version to CurrentVersion.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	return MigrateChain(db, Migrations, CurrentVersion, logger)
}

// MigrateChain applies the steps of chain needed to bring db to current.
//
// Each step runs in its own transaction and is committed before the next
// begins, so a failing step leaves the store at the last good version.
func MigrateChain(db *sql.DB, chain []Migration, current string, logger *zap.SugaredLogger) error {
	if err := ValidateChain(chain, current); err != nil {
		return err
	}

	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if version == current {
		return nil
	}

	start := -1
	for i, step := range chain {
		if step.From == version {
			start = i
			break
		}
	}
	if start < 0 {
		return errors.WithHint(
			errors.Wrapf(errors.ErrUnknownSchemaVersion, "no upgrade from version %q", version),
			"the store was written by a newer or foreign release")
	}

	for _, step := range chain[start:] {
		if logger != nil {
			logger.Infow("Upgrading knowledge store schema", "from", step.From, "to", step.To)
		}
		if err := applyStep(db, step); err != nil {
			return err
		}
	}

	if logger != nil {
		logger.Infow("Migrations complete", "from", version, "to", current, "steps", len(chain)-start)
	}
	return nil
}

func applyStep(db *sql.DB, step Migration) error {
	script, err := sqlFiles.ReadFile(path.Join("sqlite/migrations", step.File))
	if err != nil {
		return errors.Wrapf(err, "read %s", step.File)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", step.File)
	}

	if _, err := tx.Exec(string(script)); err != nil {
		tx.Rollback()
		return errors.Mark(
			errors.Wrapf(err, "migrate %q to %q", step.From, step.To),
			errors.ErrMigrationFailed)
	}

	if err := stampVersion(tx, step.To); err != nil {
		tx.Rollback()
		return errors.Mark(err, errors.ErrMigrationFailed)
	}

	if err := tx.Commit(); err != nil {
		return errors.Mark(errors.Wrapf(err, "commit %s", step.File), errors.ErrMigrationFailed)
	}
	return nil
}
