package api

import (
	"net/http"

	"github.com/grillbook/grillbook/pkg/booking"
)

func (h *Handler) bookingView(b *booking.Booking) any {
	return h.Budget.Optimize(b.Record(), booking.ImportantFields...)
}

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.Bookings.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, BookingResponse{Message: "booking confirmed", Booking: h.bookingView(b)})
}

// FindBooking handles GET /api/bookings?booking_id=&phone=
func (h *Handler) FindBooking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := h.Bookings.Find(r.Context(), q.Get("booking_id"), q.Get("phone"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingResponse{Booking: h.bookingView(b)})
}

// UpdateBooking handles PATCH /api/bookings/{id}
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookingRequest
	if !decode(w, r, &req) {
		return
	}
	b, updated, err := h.Bookings.Update(r.Context(), r.PathValue("id"), req.toUpdate())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingResponse{
		Message:       "booking updated",
		Booking:       h.bookingView(b),
		UpdatedFields: updated,
	})
}

// CancelBooking handles POST /api/bookings/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req CancelBookingRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.Bookings.Cancel(r.Context(), req.BookingID, req.Phone)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingResponse{Message: "booking cancelled", Booking: h.bookingView(b)})
}
