package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(dialect(driver)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// dialect maps a database/sql driver name onto the goose dialect.
func dialect(driver string) string {
	switch driver {
	case "sqlite3":
		return "sqlite3"
	case "postgres", "pgx":
		return "postgres"
	}
	return driver
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type kvEntry struct {
	Key       string    `db:"kv_key"`
	Value     string    `db:"kv_value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var entry kvEntry
	err := s.db.GetContext(ctx, &entry,
		`SELECT kv_key, kv_value, updated_at FROM kv_entries WHERE kv_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(entry.Value), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (kv_key, kv_value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (kv_key) DO UPDATE SET kv_value = excluded.kv_value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC())
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE kv_key = $1`, key)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
