package booking

import (
	"time"

	"github.com/pitabwire/frame/data"

	"github.com/grillbook/grillbook/pkg/budget"
)

// Status of a booking.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Booking is a table reservation at one outlet.
type Booking struct {
	data.BaseModel

	Reference       string `gorm:"type:varchar(20);uniqueIndex;not null" json:"booking_id"`
	OutletID        string `gorm:"type:varchar(20);not null"             json:"outlet_id"`
	OutletName      string `gorm:"type:varchar(255)"                     json:"outlet_name"`
	Date            string `gorm:"type:varchar(10);not null"             json:"booking_date"`
	Time            string `gorm:"type:varchar(5);not null"              json:"booking_time"`
	Guests          int    `gorm:"not null"                              json:"guests"`
	CustomerName    string `gorm:"type:varchar(100);not null"            json:"customer_name"`
	Phone           string `gorm:"type:varchar(15);not null;index"       json:"phone"`
	Status          Status `gorm:"type:varchar(20);default:'confirmed'"  json:"status"`
	SpecialRequests string `gorm:"type:text"                             json:"special_requests,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

// ImportantFields survive reply budgeting.
var ImportantFields = []string{"booking_id", "outlet_name", "booking_date", "booking_time", "guests", "status"}

// Record renders the booking for a reply.
func (b *Booking) Record() budget.Record {
	r := budget.Record{
		{Key: "booking_id", Value: b.Reference},
		{Key: "outlet_name", Value: b.OutletName},
		{Key: "booking_date", Value: b.Date},
		{Key: "booking_time", Value: b.Time},
		{Key: "guests", Value: b.Guests},
		{Key: "status", Value: string(b.Status)},
		{Key: "customer_name", Value: b.CustomerName},
		{Key: "phone", Value: b.Phone},
		{Key: "outlet_id", Value: b.OutletID},
	}
	if b.SpecialRequests != "" {
		r = r.With("special_requests", b.SpecialRequests)
	}
	if !b.CreatedAt.IsZero() {
		r = r.With("created_at", b.CreatedAt.UTC().Format(time.RFC3339))
	}
	return r
}
