// Package migrate applies the "-- +migrate Up/Down" SQL files tracked in the
// schema_migrations table.
package migrate

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"

	"atelier-be/internal/logger"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const ensureTableSQL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
`

var ErrUnknownMode = errors.New("unknown migration mode")

// Run dispatches to Up or Down by mode.
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, mode string) error {
	switch mode {
	case "up":
		_, err := Up(ctx, db, fsys)
		return err
	case "down":
		_, err := Down(ctx, db, fsys)
		return err
	default:
		return errors.Wrapf(ErrUnknownMode, "%q (use 'up' or 'down')", mode)
	}
}

// Up applies every file not yet recorded and returns the applied versions.
func Up(ctx context.Context, db *sql.DB, fsys fs.FS) ([]string, error) {
	log := logger.FromCtx(ctx).With(zap.String("component", "migrate"))

	files, err := listFiles(ctx, db, fsys)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, version := range files {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&exists)
		if err != nil {
			return applied, errors.Wrap(err, "check migration status")
		}
		if exists {
			log.Debug("migration already applied", zap.String("version", version))
			continue
		}

		content, err := fs.ReadFile(fsys, version)
		if err != nil {
			return applied, errors.Wrapf(err, "read %s", version)
		}

		log.Info("applying migration", zap.String("version", version))
		err = inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, ExtractPart(string(content), "Up")); err != nil {
				return errors.Wrapf(err, "migration failed (%s)", version)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version) VALUES ($1)`, version,
			); err != nil {
				return errors.Wrap(err, "record migration version")
			}
			return nil
		})
		if err != nil {
			return applied, err
		}
		applied = append(applied, version)
	}

	log.Info("migrations up to date", zap.Int("applied", len(applied)))
	return applied, nil
}

// Down rolls back the most recently applied migration. It returns "" when
// nothing was applied.
func Down(ctx context.Context, db *sql.DB, fsys fs.FS) (string, error) {
	log := logger.FromCtx(ctx).With(zap.String("component", "migrate"))

	files, err := listFiles(ctx, db, fsys)
	if err != nil {
		return "", err
	}

	var last string
	err = db.QueryRowContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("no migrations to roll back")
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "get last applied migration")
	}

	idx := sort.SearchStrings(files, last)
	if idx == len(files) || files[idx] != last {
		return "", errors.Errorf("migration file not found for version: %s", last)
	}

	content, err := fs.ReadFile(fsys, last)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", last)
	}

	log.Info("rolling back migration", zap.String("version", last))
	err = inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ExtractPart(string(content), "Down")); err != nil {
			return errors.Wrapf(err, "rollback failed (%s)", last)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM schema_migrations WHERE version = $1`, last,
		); err != nil {
			return errors.Wrap(err, "remove migration record")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return last, nil
}

// inTx runs fn in one transaction, so a file's statements and its
// schema_migrations row commit together.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin migration tx")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit migration")
	}
	return nil
}

// ExtractPart returns the lines between "-- +migrate <section>" and the next
// marker.
func ExtractPart(content, section string) string {
	var part strings.Builder
	inPart := false

	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "-- +migrate "+section) {
			inPart = true
			continue
		}
		if inPart && strings.HasPrefix(line, "-- +migrate") {
			break
		}
		if inPart {
			part.WriteString(line)
			part.WriteByte('\n')
		}
	}
	return part.String()
}

func listFiles(ctx context.Context, db *sql.DB, fsys fs.FS) ([]string, error) {
	if _, err := db.ExecContext(ctx, ensureTableSQL); err != nil {
		return nil, errors.Wrap(err, "ensure schema_migrations table")
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	sort.Strings(files)
	return files, nil
}
