package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/planboard/core/internal/ports"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLStateStore implements ports.StateStore on the local SQLite state
// database. Values are stored as JSON so any serializable Go value can
// live under a key.
type SQLStateStore struct {
	db *sqlx.DB
}

// NewSQLStateStore runs the schema migrations and returns a store over db.
func NewSQLStateStore(db *sqlx.DB) (*SQLStateStore, error) {
	if err := migrateSchema(db); err != nil {
		return nil, fmt.Errorf("migrate state schema: %w", err)
	}
	return &SQLStateStore{db: db}, nil
}

func migrateSchema(db *sqlx.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *SQLStateStore) Get(ctx context.Context, key string, dest any) error {
	query := `SELECT value FROM app_state WHERE key = ?`

	var raw []byte
	err := s.db.GetContext(ctx, &raw, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrStateKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("get state key %q: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode state key %q: %w", key, err)
	}
	return nil
}

func (s *SQLStateStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode state key %q: %w", key, err)
	}

	query := `
		INSERT INTO app_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, key, raw); err != nil {
		return fmt.Errorf("set state key %q: %w", key, err)
	}
	return nil
}

func (s *SQLStateStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM app_state WHERE key = ?`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete state key %q: %w", key, err)
	}
	return nil
}

func (s *SQLStateStore) Close() error {
	return s.db.Close()
}
