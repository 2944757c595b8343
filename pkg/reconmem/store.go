package reconmem

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Store owns the database connection and the autoscope rules. Every write
// goes through it.
type Store struct {
	db    *sqlx.DB
	rules *Rules
	log   *slog.Logger
	now   func() time.Time

	onReap func(f Family, key string)
}

// Open opens or creates the database at path and brings its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// sqlite serialises writers, and every :memory: connection is its own database
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &Store{
		db:    db,
		rules: &Rules{},
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:   time.Now,
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.loadRules(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(log.New(io.Discard, "", 0))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection for read-only use by callers that need the
// generic table operations directly.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// SetLogger routes the store's debug output to l.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// Rules returns the live autoscope rule set.
func (s *Store) Rules() *Rules {
	return s.rules
}

// tx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) tx(fn func(q Queryer) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
