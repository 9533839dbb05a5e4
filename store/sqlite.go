package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps pipes as JSON documents in a single table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pipes (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pipes_created
		ON pipes(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Store(ctx context.Context, data *cryptii.PipeData) (uuid.UUID, error) {
	if err := data.Validate(); err != nil {
		return uuid.Nil, err
	}
	doc, err := json.Marshal(data)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	query := `INSERT INTO pipes (id, url, document, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id.String(), data.URL, string(doc), time.Now().UnixNano()); err != nil {
		return uuid.Nil, fmt.Errorf("storing pipe: %w", err)
	}
	return id, nil
}

func (s *SQLite) Load(ctx context.Context, id uuid.UUID) (*cryptii.PipeData, error) {
	query := `SELECT document FROM pipes WHERE id = ?`
	var doc string
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return cryptii.ParsePipeData([]byte(doc))
}

func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	query := `SELECT id, document, created_at FROM pipes ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rawID, doc string
		var created int64
		if err := rows.Scan(&rawID, &doc, &created); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("pipe id %q: %w", rawID, err)
		}
		var data cryptii.PipeData
		if err := json.Unmarshal([]byte(doc), &data); err != nil {
			return nil, fmt.Errorf("pipe %s: %w", id, err)
		}
		records = append(records, recordOf(id, &data, time.Unix(0, created)))
	}
	return records, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM pipes WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
