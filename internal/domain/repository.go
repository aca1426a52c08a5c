package domain

import (
	"context"
	"time"
)

// ContentRepository defines persistence for content records. Every write
// persists the whole record so concurrent readers never observe a state
// mixing fields from two different updates.
type ContentRepository interface {
	Create(ctx context.Context, content *Content) error
	GetByID(ctx context.Context, id string) (*Content, error)
	Save(ctx context.Context, content *Content) error
	CountProcessingByOwner(ctx context.Context, ownerID string) (int, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Content, error)
	ListProcessingOlderThan(ctx context.Context, age time.Duration) ([]Content, error)
}
