// Package booking creates, finds, updates and cancels table reservations.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grillbook/grillbook/pkg/analysis"
	"github.com/grillbook/grillbook/pkg/events"
	"github.com/grillbook/grillbook/pkg/knowledge"
	"github.com/grillbook/grillbook/pkg/metrics"
)

var (
	// ErrNotFound is returned when no booking matches.
	ErrNotFound = errors.New("booking not found")
	// ErrInvalidInput is returned for missing or malformed fields.
	ErrInvalidInput = errors.New("invalid booking input")
)

// DefaultOutletName is used when an outlet id is not in the corpus.
const DefaultOutletName = "Barbeque Nation"

// CreateRequest holds the fields of a new booking.
type CreateRequest struct {
	OutletID        string `json:"outlet_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Guests          int    `json:"guests"`
	CustomerName    string `json:"customer_name"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// Update is a partial update. Absent or empty values leave the field as is.
type Update struct {
	OutletID        *string
	Date            *string
	Time            *string
	Guests          *int
	CustomerName    *string
	Phone           *string
	Status          *Status
	SpecialRequests *string
}

// Service applies booking rules on top of a Store.
type Service struct {
	store   Store
	outlets *knowledge.Base
	events  events.Emitter
}

// NewService creates a booking service. A nil corpus selects the embedded
// one and a nil emitter discards events.
func NewService(store Store, outlets *knowledge.Base, emitter events.Emitter) *Service {
	if outlets == nil {
		outlets = knowledge.Default()
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Service{store: store, outlets: outlets, events: emitter}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validDate(s string) error {
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return invalid("date %q is not YYYY-MM-DD", s)
	}
	return nil
}

func validTime(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return invalid("time %q is not HH:MM", s)
	}
	return nil
}

// NewReference returns a fresh booking reference such as BBQ-1A2B3C4D.
func NewReference() string {
	return "BBQ-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *Service) resolveOutlet(ref string) (id, name string) {
	if o, ok := s.outlets.Outlet(ref); ok {
		return o.ID, o.Name
	}
	return ref, DefaultOutletName
}

// Create validates and stores a new confirmed booking.
func (s *Service) Create(ctx context.Context, req CreateRequest) (b *Booking, err error) {
	defer func() { metrics.BookingOpsTotal.WithLabelValues("create", metrics.Outcome(err)).Inc() }()

	var missing []string
	for _, f := range []struct {
		name  string
		empty bool
	}{
		{"outlet_id", req.OutletID == ""},
		{"date", req.Date == ""},
		{"time", req.Time == ""},
		{"guests", req.Guests == 0},
		{"customer_name", strings.TrimSpace(req.CustomerName) == ""},
		{"phone", req.Phone == ""},
	} {
		if f.empty {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, invalid("missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := errors.Join(validDate(req.Date), validTime(req.Time)); err != nil {
		return nil, err
	}
	if req.Guests < 0 {
		return nil, invalid("guests must be positive")
	}
	phone, err := analysis.ValidatePhone(req.Phone)
	if err != nil {
		return nil, invalid("phone %q: %v", req.Phone, err)
	}

	outletID, outletName := s.resolveOutlet(req.OutletID)
	b = &Booking{
		Reference:       NewReference(),
		OutletID:        outletID,
		OutletName:      outletName,
		Date:            req.Date,
		Time:            req.Time,
		Guests:          req.Guests,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		Phone:           phone,
		Status:          StatusConfirmed,
		SpecialRequests: req.SpecialRequests,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.emit(ctx, events.BookingCreated, b, nil)
	slog.InfoContext(ctx, "booking created",
		slog.String("booking_id", b.Reference), slog.String("outlet_id", b.OutletID))
	return b, nil
}

// Find returns a booking by reference, or the latest one for a phone.
func (s *Service) Find(ctx context.Context, ref, phone string) (*Booking, error) {
	switch {
	case ref != "":
		return s.store.ByReference(ctx, ref)
	case phone != "":
		if normalised, err := analysis.ValidatePhone(phone); err == nil {
			phone = normalised
		}
		return s.store.LatestByPhone(ctx, phone)
	}
	return nil, invalid("either booking id or phone number is required")
}

// Update applies a partial update and reports which fields changed.
func (s *Service) Update(ctx context.Context, ref string, u Update) (b *Booking, updated []string, err error) {
	defer func() { metrics.BookingOpsTotal.WithLabelValues("update", metrics.Outcome(err)).Inc() }()

	if ref == "" {
		return nil, nil, invalid("booking id is required")
	}
	b, err = s.store.ByReference(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	if v, ok := nonEmpty(u.OutletID); ok {
		b.OutletID, b.OutletName = s.resolveOutlet(v)
		updated = append(updated, "outlet")
	}
	if v, ok := nonEmpty(u.Date); ok {
		if err := validDate(v); err != nil {
			return nil, nil, err
		}
		b.Date = v
		updated = append(updated, "date")
	}
	if v, ok := nonEmpty(u.Time); ok {
		if err := validTime(v); err != nil {
			return nil, nil, err
		}
		b.Time = v
		updated = append(updated, "time")
	}
	if v := deref(u.Guests); v != 0 {
		if v < 0 {
			return nil, nil, invalid("guests must be positive")
		}
		b.Guests = v
		updated = append(updated, "guest count")
	}
	if v, ok := nonEmpty(u.CustomerName); ok {
		b.CustomerName = strings.TrimSpace(v)
		updated = append(updated, "customer name")
	}
	if v, ok := nonEmpty(u.Phone); ok {
		phone, err := analysis.ValidatePhone(v)
		if err != nil {
			return nil, nil, invalid("phone %q: %v", v, err)
		}
		b.Phone = phone
		updated = append(updated, "phone")
	}
	if v := deref(u.Status); v != "" {
		if !v.Valid() {
			return nil, nil, invalid("unknown status %q", v)
		}
		b.Status = v
		updated = append(updated, "status")
	}
	if v, ok := nonEmpty(u.SpecialRequests); ok {
		b.SpecialRequests = v
		updated = append(updated, "special requests")
	}

	if err := s.store.Save(ctx, b); err != nil {
		return nil, nil, fmt.Errorf("update booking %s: %w", ref, err)
	}
	s.emit(ctx, events.BookingUpdated, b, updated)
	return b, updated, nil
}

// Cancel cancels a booking by reference, or the latest one for a phone.
func (s *Service) Cancel(ctx context.Context, ref, phone string) (b *Booking, err error) {
	defer func() { metrics.BookingOpsTotal.WithLabelValues("cancel", metrics.Outcome(err)).Inc() }()

	b, err = s.Find(ctx, ref, phone)
	if err != nil {
		return nil, err
	}
	b.Status = StatusCancelled
	if err := s.store.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", b.Reference, err)
	}
	s.emit(ctx, events.BookingCancelled, b, nil)
	slog.InfoContext(ctx, "booking cancelled", slog.String("booking_id", b.Reference))
	return b, nil
}

func (s *Service) emit(ctx context.Context, et events.EventType, b *Booking, updated []string) {
	err := s.events.Emit(ctx, et, "", events.BookingData{
		BookingID:     b.Reference,
		OutletID:      b.OutletID,
		Status:        string(b.Status),
		UpdatedFields: updated,
	})
	if err != nil {
		slog.WarnContext(ctx, "booking event not published",
			slog.String("event_type", string(et)), slog.String("error", err.Error()))
	}
}

func nonEmpty(v *string) (string, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
