package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitabwire/frame/datastore/pool"
	"gorm.io/gorm"
)

// Store persists bookings.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	ByReference(ctx context.Context, ref string) (*Booking, error)
	LatestByPhone(ctx context.Context, phone string) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
}

// Repository is the database Store.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a booking repository.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Migrate creates or updates the bookings table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db(ctx, false).AutoMigrate(&Booking{})
}

// Create persists a new booking.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	return r.db(ctx, false).Create(b).Error
}

// ByReference returns the booking with the given reference.
func (r *Repository) ByReference(ctx context.Context, ref string) (*Booking, error) {
	var b Booking
	err := r.db(ctx, true).Where("reference = ?", ref).First(&b).Error
	if err != nil {
		return nil, notFound(err, "reference "+ref)
	}
	return &b, nil
}

// LatestByPhone returns the most recently created booking for a phone.
func (r *Repository) LatestByPhone(ctx context.Context, phone string) (*Booking, error) {
	var b Booking
	err := r.db(ctx, true).Where("phone = ?", phone).Order("created_at DESC").First(&b).Error
	if err != nil {
		return nil, notFound(err, "phone "+phone)
	}
	return &b, nil
}

// Save persists changes to a booking.
func (r *Repository) Save(ctx context.Context, b *Booking) error {
	return r.db(ctx, false).Save(b).Error
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("booking with %s: %w", what, ErrNotFound)
	}
	return err
}
