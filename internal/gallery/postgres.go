package gallery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS generated_images (
	id           UUID PRIMARY KEY,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	prompt       TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	storage_path TEXT,
	source_url   TEXT,
	meta         JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS generated_images_user_created_idx
	ON generated_images (user_id, created_at DESC);
`

type PostgresIndex struct {
	db *sql.DB
}

// OpenPostgres opens a pooled connection and verifies it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresIndex(db *sql.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

// Migrate creates the table when missing.
func (p *PostgresIndex) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create generated_images: %w", err)
	}
	return nil
}

func (p *PostgresIndex) Insert(ctx context.Context, rec Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO generated_images (id, user_id, title, prompt, image_url, storage_path, source_url, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.UserID, rec.Title, rec.Prompt, rec.ImageURL,
		nullString(rec.StoragePath), nullString(rec.SourceURL), meta, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert generated image: %w", err)
	}
	return nil
}

func (p *PostgresIndex) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, title, prompt, image_url, storage_path, source_url, meta, created_at
		FROM generated_images
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query generated images: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec         Record
			storagePath sql.NullString
			sourceURL   sql.NullString
			meta        []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Prompt, &rec.ImageURL,
			&storagePath, &sourceURL, &meta, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generated image: %w", err)
		}
		rec.StoragePath = storagePath.String
		rec.SourceURL = sourceURL.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode meta: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
