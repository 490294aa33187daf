// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/persistence/migrations"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

const (
	dialectSqlite   = "sqlite3"
	dialectPostgres = "postgres"
)

type Persistence struct {
	db      *sqlx.DB
	dialect string
	l       *logrus.Logger
}

// NewPersistence opens a postgres database for postgres:// URLs and a sqlite
// file otherwise, then migrates it to the newest schema.
func NewPersistence(datasource string) (*Persistence, error) {
	driver, dialect := "sqlite3", dialectSqlite
	if strings.HasPrefix(datasource, "postgres://") || strings.HasPrefix(datasource, "postgresql://") {
		driver, dialect = "pgx", dialectPostgres
	}

	db, err := sqlx.Connect(driver, datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	l := log.Logger(log.LOG_PERSISTENCE)

	if dialect == dialectSqlite {
		db.SetMaxOpenConns(1)

		_, err = db.Exec(`PRAGMA journal_mode=WAL`)
		if err != nil {
			return nil, fmt.Errorf("could not set journal mode: %w", err)
		}
		_, err = db.Exec(`PRAGMA synchronous=normal`)
		if err != nil {
			return nil, fmt.Errorf("could not set synchronous mode: %w", err)
		}
		l.WithField("file", datasource).Info("Connected")
	} else {
		l.WithField("dialect", dialect).Info("Connected")
	}

	migrationSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations.FS,
		Root:       dialect,
	}

	appliedMigrations, err := migrate.Exec(db.DB, dialect, migrationSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Persistence{
		db:      db,
		dialect: dialect,
		l:       l,
	}, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
		return nil
	}

	rollbackErr := tx.Rollback()
	if rollbackErr != nil {
		return fmt.Errorf("%s, could not rollback tx: %w", err.Error(), rollbackErr)
	}

	return err
}
