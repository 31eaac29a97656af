package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
)

// MemoryStore is an in-process Store for tests and local runs without a
// database.
type MemoryStore struct {
	mu    sync.Mutex
	byRef map[string]Booking
	order []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byRef: make(map[string]Booking)}
}

func (m *MemoryStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byRef[b.Reference]; ok {
		return fmt.Errorf("booking %s already exists", b.Reference)
	}
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = xid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.ModifiedAt = now
	m.byRef[b.Reference] = *b
	m.order = append(m.order, b.Reference)
	return nil
}

func (m *MemoryStore) ByReference(_ context.Context, ref string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("booking with reference %s: %w", ref, ErrNotFound)
	}
	return &b, nil
}

// LatestByPhone returns the last booking created for phone.
func (m *MemoryStore) LatestByPhone(_ context.Context, phone string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.order) - 1; i >= 0; i-- {
		if b := m.byRef[m.order[i]]; b.Phone == phone {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("booking with phone %s: %w", phone, ErrNotFound)
}

func (m *MemoryStore) Save(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byRef[b.Reference]; !ok {
		return fmt.Errorf("booking with reference %s: %w", b.Reference, ErrNotFound)
	}
	b.ModifiedAt = time.Now().UTC()
	m.byRef[b.Reference] = *b
	return nil
}
