package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/jwebster45206/saga-engine/pkg/storage"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS worlds (
	store_id   TEXT NOT NULL,
	id         TEXT NOT NULL,
	position   INTEGER NOT NULL,
	doc        TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (store_id, id)
);`

// SQLiteStorage stores one row per world. A save replaces the whole set for
// the store id inside one transaction.
type SQLiteStorage struct {
	db      *sql.DB
	logger  *slog.Logger
	storeID string
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// OpenSQLite opens (and creates if missing) the SQLite database at the provided path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// NewSQLiteStorage opens the database at path and applies the schema
func NewSQLiteStorage(ctx context.Context, path, storeID string, logger *slog.Logger) (*SQLiteStorage, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers, which sqlite requires anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	if storeID == "" {
		storeID = "default"
	}
	return &SQLiteStorage{db: db, logger: logger, storeID: storeID}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) LoadAllWorlds(ctx context.Context) ([]world.World, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM worlds WHERE store_id = ? ORDER BY position`, s.storeID)
	if err != nil {
		return nil, fmt.Errorf("query worlds: %w", err)
	}
	defer rows.Close()

	worlds := []world.World{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan world: %w", err)
		}
		var w world.World
		if err := json.Unmarshal([]byte(doc), &w); err != nil {
			return nil, fmt.Errorf("failed to unmarshal world: %w", err)
		}
		worlds = append(worlds, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worlds: %w", err)
	}
	return worlds, nil
}

func (s *SQLiteStorage) SaveAllWorlds(ctx context.Context, worlds []world.World) error {
	docs := make([]string, len(worlds))
	for i := range worlds {
		data, err := json.Marshal(&worlds[i])
		if err != nil {
			return fmt.Errorf("failed to marshal world %s: %w", worlds[i].ID, err)
		}
		docs[i] = string(data)
	}

	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM worlds WHERE store_id = ?`, s.storeID); err != nil {
			return fmt.Errorf("clear worlds: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO worlds (store_id, id, position, doc) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for i, doc := range docs {
			if _, err := stmt.ExecContext(ctx, s.storeID, worlds[i].ID, i, doc); err != nil {
				return fmt.Errorf("insert world %s: %w", worlds[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to save worlds", "store_id", s.storeID, "error", err)
		return err
	}
	s.logger.Debug("Worlds saved", "store_id", s.storeID, "count", len(worlds))
	return nil
}
