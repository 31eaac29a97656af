package calllog

import (
	"context"

	"github.com/pitabwire/frame/datastore/pool"
	"gorm.io/gorm"
)

// Repository stores entries in the database.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a call-log repository.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Migrate creates or updates the conversation_logs table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db(ctx, false).AutoMigrate(&Entry{})
}

// Create persists an entry.
func (r *Repository) Create(ctx context.Context, e *Entry) error {
	return r.db(ctx, false).Create(e).Error
}

// ListByPhone returns the entries for a phone, newest first.
func (r *Repository) ListByPhone(ctx context.Context, phone string, limit int) ([]Entry, error) {
	var entries []Entry
	q := r.db(ctx, true).Where("phone = ?", phone).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}
