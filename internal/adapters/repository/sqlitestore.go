package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pressly/goose/v3"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	sqliteMaxOpenConns = 1
	sqliteConnLifetime = time.Hour
)

// OpenSQLite opens the database at path, tunes it and applies the embedded
// migrations. Both ladders share one database.
func OpenSQLite(ctx context.Context, path string, log logger.Logger) (*sql.DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	log.Info(ctx, "opening sqlite database", logger.String("path", path))

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single writer connection serializes transactions across ladders.
	db.SetMaxOpenConns(sqliteMaxOpenConns)
	db.SetConnMaxLifetime(sqliteConnLifetime)

	if err := tuneSQLite(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info(ctx, "sqlite database ready")
	return db, nil
}

func tuneSQLite(ctx context.Context, db *sql.DB, log logger.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set PRAGMA %s: %w", p.name, err)
		}
		log.Debug(ctx, "sqlite pragma set", logger.String("pragma", p.name), logger.String("value", p.value))
	}
	return nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// SQLiteStore keeps one row per player, keyed by ladder and id.
type SQLiteStore struct {
	base
	db *sql.DB
}

// NewSQLiteStore returns a store for ladder on an opened database.
func NewSQLiteStore(db *sql.DB, ladder model.Ladder, opts ...Option) *SQLiteStore {
	return &SQLiteStore{base: newBase("sqlite", ladder, opts), db: db}
}

// Load reads every row of the ladder.
func (s *SQLiteStore) Load(ctx context.Context) (roster model.Roster, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "load", start, len(roster), err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, record FROM players WHERE ladder = ?`, s.ladder.String())
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrLoad, err)
	}
	defer rows.Close()

	roster = make(model.Roster)
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrLoad, err)
		}
		p, err := unmarshalPlayer(id, blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
		roster[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrLoad, err)
	}
	return roster, nil
}

// Save replaces the ladder's rows in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, roster model.Roster) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "save", start, len(roster), err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrSave, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck // the original error wins
		}
	}()

	ladder := s.ladder.String()
	if _, err = tx.ExecContext(ctx, `DELETE FROM players WHERE ladder = ?`, ladder); err != nil {
		return fmt.Errorf("%w: clear: %w", ErrSave, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO players (ladder, player_id, record, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrSave, err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, id := range roster.IDs() {
		blob, encErr := marshalPlayer(roster[id])
		if encErr != nil {
			err = fmt.Errorf("%w: encode %s: %w", ErrSave, id, encErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, ladder, id, blob, now); err != nil {
			return fmt.Errorf("%w: insert %s: %w", ErrSave, id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrSave, err)
	}
	return nil
}
