package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// ContentRepositoryPG implements domain.ContentRepository on PostgreSQL.
// Scenes and settings are embedded as JSONB documents so every save replaces
// the record atomically; readers never see a partially applied update.
type ContentRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewContentRepository creates a content repository backed by PostgreSQL.
func NewContentRepository(pool *pgxpool.Pool) *ContentRepositoryPG {
	return &ContentRepositoryPG{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS generated_content (
    id             UUID PRIMARY KEY,
    owner_id       TEXT NOT NULL,
    prompt         TEXT NOT NULL,
    settings       JSONB NOT NULL,
    scenes         JSONB NOT NULL DEFAULT '[]'::jsonb,
    overall_status TEXT NOT NULL DEFAULT 'processing',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_generated_content_owner_created
    ON generated_content (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_generated_content_status
    ON generated_content (overall_status);
`

// EnsureSchema creates the content table and its secondary indexes if they do
// not exist yet. The owner/created index backs the admission-control count and
// owner listings; the status index backs the stuck-job scan.
func (r *ContentRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create inserts a new content record.
func (r *ContentRepositoryPG) Create(ctx context.Context, content *domain.Content) error {
	settings, scenes, err := marshalDocs(content)
	if err != nil {
		return err
	}
	query := `
INSERT INTO generated_content (id, owner_id, prompt, settings, scenes, overall_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err = r.pool.Exec(ctx, query,
		content.ID,
		content.OwnerID,
		content.Prompt,
		settings,
		scenes,
		content.OverallStatus,
		content.CreatedAt,
		content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

// Save replaces the mutable portion of a record (scenes, overall status,
// updated_at) in a single statement.
func (r *ContentRepositoryPG) Save(ctx context.Context, content *domain.Content) error {
	_, scenes, err := marshalDocs(content)
	if err != nil {
		return err
	}
	query := `
UPDATE generated_content
SET scenes = $2,
    overall_status = $3,
    updated_at = $4
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, content.ID, scenes, content.OverallStatus, content.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a content record by its identifier.
func (r *ContentRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	query := `
SELECT id, owner_id, prompt, settings, scenes, overall_status, created_at, updated_at
FROM generated_content
WHERE id = $1;
`
	content, err := scanContent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return content, nil
}

// CountProcessingByOwner backs the per-owner admission check. The check and
// the subsequent insert are not atomic; a concurrent burst from one owner can
// briefly exceed the cap, which is accepted as best effort.
func (r *ContentRepositoryPG) CountProcessingByOwner(ctx context.Context, ownerID string) (int, error) {
	query := `
SELECT COUNT(*)
FROM generated_content
WHERE owner_id = $1 AND overall_status = 'processing';
`
	var count int
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count processing: %w", err)
	}
	return count, nil
}

// ListByOwner returns the owner's most recent records.
func (r *ContentRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Content, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
SELECT id, owner_id, prompt, settings, scenes, overall_status, created_at, updated_at
FROM generated_content
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()
	return collectContents(rows)
}

// ListProcessingOlderThan returns records still in processing whose last
// update is older than the given age. Used by operational tooling to find
// jobs whose pipeline died without reaching a terminal status.
func (r *ContentRepositoryPG) ListProcessingOlderThan(ctx context.Context, age time.Duration) ([]domain.Content, error) {
	query := `
SELECT id, owner_id, prompt, settings, scenes, overall_status, created_at, updated_at
FROM generated_content
WHERE overall_status = 'processing' AND updated_at < $1
ORDER BY updated_at ASC;
`
	rows, err := r.pool.Query(ctx, query, time.Now().UTC().Add(-age))
	if err != nil {
		return nil, fmt.Errorf("list processing: %w", err)
	}
	defer rows.Close()
	return collectContents(rows)
}

func collectContents(rows pgx.Rows) ([]domain.Content, error) {
	var items []domain.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *content)
	}
	return items, rows.Err()
}

func scanContent(row pgx.Row) (*domain.Content, error) {
	var content domain.Content
	var settings, scenes []byte
	if err := row.Scan(
		&content.ID,
		&content.OwnerID,
		&content.Prompt,
		&settings,
		&scenes,
		&content.OverallStatus,
		&content.CreatedAt,
		&content.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settings, &content.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := json.Unmarshal(scenes, &content.Scenes); err != nil {
		return nil, fmt.Errorf("decode scenes: %w", err)
	}
	return &content, nil
}

func marshalDocs(content *domain.Content) (settings, scenes []byte, err error) {
	settings, err = json.Marshal(content.Settings)
	if err != nil {
		return nil, nil, fmt.Errorf("encode settings: %w", err)
	}
	if content.Scenes == nil {
		scenes = []byte("[]")
		return settings, scenes, nil
	}
	scenes, err = json.Marshal(content.Scenes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode scenes: %w", err)
	}
	return settings, scenes, nil
}
