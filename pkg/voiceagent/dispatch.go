package voiceagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/grillbook/grillbook/pkg/booking"
	"github.com/grillbook/grillbook/pkg/budget"
	"github.com/grillbook/grillbook/pkg/knowledge"
	"github.com/grillbook/grillbook/pkg/metrics"
)

// Messages spoken when a function cannot be completed.
const (
	MsgKnowledgeUnavailable = "I'm unable to retrieve that information at the moment. " +
		"Could you please try a different question or rephrase your query?"
	MsgCreateFailed = "I'm unable to complete your booking at the moment. " +
		"Please check the information provided and try again."
	MsgUpdateFailed = "I'm unable to update your booking at the moment. " +
		"Please check the booking ID and try again."
	MsgCancelFailed = "I'm unable to cancel your booking at the moment. " +
		"Please check the booking ID and try again."
	MsgCancelNeedsID = "I need your booking ID to cancel your reservation. Could you please provide it?"
	MsgCancelled     = "Your booking has been successfully cancelled."
	MsgSystemError   = "I encountered a problem with our booking system. " +
		"Please try again later or contact us directly by phone."
	MsgUnknownFunction = "I'm not sure how to help with that specific request. I can provide information " +
		"about our outlets, menu, answer FAQs, or help with bookings. How can I assist you today?"
)

// ErrMissingFunction is returned for a call without a function name.
var ErrMissingFunction = errors.New("function name is required")

// Call is a function invocation from the voice platform.
type Call struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Dispatcher runs function calls against the knowledge base and the
// booking service.
type Dispatcher struct {
	knowledge *knowledge.Base
	bookings  *booking.Service
	budget    *budget.Budgeter
}

// NewDispatcher creates a dispatcher. A nil corpus selects the embedded one
// and a nil budgeter the default budget.
func NewDispatcher(kb *knowledge.Base, bookings *booking.Service, b *budget.Budgeter) *Dispatcher {
	if kb == nil {
		kb = knowledge.Default()
	}
	if b == nil {
		b = budget.New(nil, 0)
	}
	return &Dispatcher{knowledge: kb, bookings: bookings, budget: b}
}

// Dispatch runs call and returns the reply to speak. Failures of the
// function itself are turned into an error reply; only a call without a
// name is rejected.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (budget.Record, error) {
	if call.Name == "" {
		return nil, ErrMissingFunction
	}
	start := time.Now()
	defer func() {
		metrics.FunctionCallDuration.WithLabelValues(functionLabel(call.Name)).Observe(time.Since(start).Seconds())
	}()
	slog.InfoContext(ctx, "function call", slog.String("function", call.Name))

	switch call.Name {
	case FnQueryKnowledge:
		return d.queryKnowledge(ctx, call.Arguments), nil
	case FnCreateBooking, FnUpdateBooking, FnCancelBooking:
		if d.bookings == nil {
			return failure(ctx, call.Name, errNoBookings, MsgSystemError), nil
		}
	}

	switch call.Name {
	case FnCreateBooking:
		return d.createBooking(ctx, call.Arguments), nil
	case FnUpdateBooking:
		return d.updateBooking(ctx, call.Arguments), nil
	case FnCancelBooking:
		return d.cancelBooking(ctx, call.Arguments), nil
	}
	slog.WarnContext(ctx, "unknown function called", slog.String("function", call.Name))
	return reply("general", MsgUnknownFunction), nil
}

var errNoBookings = errors.New("booking service not configured")

// functionLabel bounds the metric label to the known function names.
func functionLabel(name string) string {
	switch name {
	case FnQueryKnowledge, FnCreateBooking, FnUpdateBooking, FnCancelBooking:
		return name
	}
	return "unknown"
}

func reply(kind, message string) budget.Record {
	return budget.Record{{Key: "type", Value: kind}, {Key: "message", Value: message}}
}

func failure(ctx context.Context, fn string, err error, message string) budget.Record {
	slog.WarnContext(ctx, "function call failed",
		slog.String("function", fn), slog.String("error", err.Error()))
	return reply("error", message)
}

// decode reads arguments; an absent argument object decodes as empty.
func decode(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	// Some platforms send the arguments as a JSON-encoded string.
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = json.RawMessage(s)
	}
	return json.Unmarshal(raw, v)
}

func (d *Dispatcher) queryKnowledge(ctx context.Context, raw json.RawMessage) budget.Record {
	var args struct {
		Query string `json:"query"`
	}
	if err := decode(raw, &args); err != nil {
		return failure(ctx, FnQueryKnowledge, err, MsgKnowledgeUnavailable)
	}
	if strings.TrimSpace(args.Query) == "" {
		return reply("general", knowledge.GeneralHelp)
	}
	return d.knowledge.Query(args.Query).Payload(d.budget)
}

type bookingArgs struct {
	BookingID    string `json:"booking_id"`
	OutletID     string `json:"outlet_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Guests       count  `json:"guests"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
}

func (d *Dispatcher) bookingReply(kind string, b *booking.Booking) budget.Record {
	return budget.Record{
		{Key: "type", Value: kind},
		{Key: "booking", Value: d.budget.Optimize(b.Record(), booking.ImportantFields...)},
	}
}

func (d *Dispatcher) createBooking(ctx context.Context, raw json.RawMessage) budget.Record {
	var args bookingArgs
	if err := decode(raw, &args); err != nil {
		return failure(ctx, FnCreateBooking, err, MsgCreateFailed)
	}
	b, err := d.bookings.Create(ctx, booking.CreateRequest{
		OutletID:     args.OutletID,
		Date:         args.Date,
		Time:         args.Time,
		Guests:       int(args.Guests),
		CustomerName: args.CustomerName,
		Phone:        args.Phone,
	})
	if err != nil {
		return failure(ctx, FnCreateBooking, err, userMessage(err, MsgCreateFailed))
	}
	return d.bookingReply("booking_created", b)
}

func (d *Dispatcher) updateBooking(ctx context.Context, raw json.RawMessage) budget.Record {
	var args bookingArgs
	if err := decode(raw, &args); err != nil {
		return failure(ctx, FnUpdateBooking, err, MsgUpdateFailed)
	}
	if args.BookingID == "" {
		return reply("error", MsgUpdateFailed)
	}

	u := booking.Update{
		OutletID: nonEmpty(args.OutletID),
		Date:     nonEmpty(args.Date),
		Time:     nonEmpty(args.Time),
	}
	if args.Guests > 0 {
		guests := int(args.Guests)
		u.Guests = &guests
	}
	b, _, err := d.bookings.Update(ctx, args.BookingID, u)
	if err != nil {
		return failure(ctx, FnUpdateBooking, err, userMessage(err, MsgUpdateFailed))
	}
	return d.bookingReply("booking_updated", b)
}

func (d *Dispatcher) cancelBooking(ctx context.Context, raw json.RawMessage) budget.Record {
	var args bookingArgs
	if err := decode(raw, &args); err != nil {
		return failure(ctx, FnCancelBooking, err, MsgCancelFailed)
	}
	if args.BookingID == "" {
		return reply("error", MsgCancelNeedsID)
	}
	if _, err := d.bookings.Cancel(ctx, args.BookingID, ""); err != nil {
		return failure(ctx, FnCancelBooking, err, userMessage(err, MsgCancelFailed))
	}
	return reply("booking_cancelled", MsgCancelled)
}

// userMessage picks the caller-facing message for a booking error. Input
// and lookup problems get the specific message, anything else the
// system one.
func userMessage(err error, specific string) string {
	if errors.Is(err, booking.ErrInvalidInput) || errors.Is(err, booking.ErrNotFound) {
		return specific
	}
	return MsgSystemError
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// count accepts a number or a numeric string.
type count int

func (c *count) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("guests: %q is not a number", s)
		}
		n = int(f)
	}
	*c = count(n)
	return nil
}
