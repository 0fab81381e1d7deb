// Package sqlite persists the project state. It is a plain relational
// mirror of the bounded contexts' current state plus a snapshot table
// fed by the debounced batch listener. Pure Go driver, no CGo.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/kodexlab/kodex/pkg/sqlite/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// config holds internal configuration for the project store.
type config struct {
	dsn          string
	maxOpenConns int
	maxIdleConns int
	walMode      bool
	autoMigrate  bool
}

func defaultConfig() config {
	return config{
		dsn:          "kodex.db",
		maxOpenConns: 25,
		maxIdleConns: 5,
		walMode:      true,
		autoMigrate:  true,
	}
}

// Option configures a ProjectStore.
type Option func(*config)

// WithDSN sets the data source name (file path or ":memory:").
func WithDSN(dsn string) Option {
	return func(c *config) { c.dsn = dsn }
}

// WithMemoryDatabase uses an in-memory database, typically for tests.
func WithMemoryDatabase() Option {
	return func(c *config) { c.dsn = ":memory:" }
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(c *config) { c.maxOpenConns = n }
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(c *config) { c.maxIdleConns = n }
}

// WithWALMode toggles write-ahead logging. Not applicable to :memory:.
func WithWALMode(enabled bool) Option {
	return func(c *config) { c.walMode = enabled }
}

// WithAutoMigrate toggles running pending migrations on open.
func WithAutoMigrate(enabled bool) Option {
	return func(c *config) { c.autoMigrate = enabled }
}

// ProjectStore owns the database handle and hands out per-context
// repositories sharing it.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore opens the database and prepares the schema.
//
//	store, err := sqlite.NewProjectStore(sqlite.WithMemoryDatabase())
func NewProjectStore(opts ...Option) (*ProjectStore, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite", cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A :memory: database exists per connection; the pool must stay at
	// one connection or each query could see a different database.
	if cfg.dsn == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.maxOpenConns)
		db.SetMaxIdleConns(cfg.maxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	store := &ProjectStore{db: db}

	if cfg.walMode && cfg.dsn != ":memory:" {
		if _, err := db.Exec(`
			PRAGMA journal_mode = WAL;
			PRAGMA synchronous = NORMAL;
			PRAGMA foreign_keys = ON;
		`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	if cfg.autoMigrate {
		m := migrate.New(db, "schema_migrations")
		if err := m.LoadFromFS(migrationsFS, "migrations"); err != nil {
			db.Close()
			return nil, fmt.Errorf("load migrations: %w", err)
		}
		if err := m.Up(); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return store, nil
}

// Close closes the database handle.
func (s *ProjectStore) Close() error {
	return s.db.Close()
}

// Coding returns the repository backing the coding context.
func (s *ProjectStore) Coding() *CodingRepository {
	return &CodingRepository{db: s.db}
}

// Sources returns the repository backing the sources context.
func (s *ProjectStore) Sources() *SourcesRepository {
	return &SourcesRepository{db: s.db}
}

// Cases returns the repository backing the cases context.
func (s *ProjectStore) Cases() *CasesRepository {
	return &CasesRepository{db: s.db}
}
