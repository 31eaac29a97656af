package dialog

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Slot names one piece of information collected during a conversation.
type Slot uint8

const (
	SlotOutlet Slot = iota
	SlotBookingDate
	SlotBookingTime
	SlotGuests
	SlotCustomerName
	SlotPhone
	SlotBookingID
	SlotModificationType
	SlotQueryTopic
	SlotNewOutlet
	SlotNewBookingDate
	SlotNewBookingTime
	SlotNewGuests
	SlotNewCustomerName
	SlotNewPhone

	slotCount
)

var slotNames = [slotCount]string{
	SlotOutlet:           "outlet",
	SlotBookingDate:      "booking_date",
	SlotBookingTime:      "booking_time",
	SlotGuests:           "guests",
	SlotCustomerName:     "customer_name",
	SlotPhone:            "phone",
	SlotBookingID:        "booking_id",
	SlotModificationType: "modification_type",
	SlotQueryTopic:       "query_topic",
	SlotNewOutlet:        "new_outlet",
	SlotNewBookingDate:   "new_booking_date",
	SlotNewBookingTime:   "new_booking_time",
	SlotNewGuests:        "new_guests",
	SlotNewCustomerName:  "new_customer_name",
	SlotNewPhone:         "new_phone",
}

var slotsByName = func() map[string]Slot {
	m := make(map[string]Slot, slotCount)
	for i, name := range slotNames {
		m[name] = Slot(i)
	}
	return m
}()

func (s Slot) String() string {
	if s < slotCount {
		return slotNames[s]
	}
	return fmt.Sprintf("Slot(%d)", uint8(s))
}

// ParseSlot resolves a wire name such as "booking_date".
func ParseSlot(name string) (Slot, bool) {
	s, ok := slotsByName[name]
	return s, ok
}

// Modification types recorded in SlotModificationType.
const (
	ModificationCancel = "cancel"
	ModificationUpdate = "update"
)

// bookingSlots groups the slots filled by booking-detail extraction.
// A new booking uses the plain slots; a modification writes the new_ variants.
type bookingSlots struct {
	date, time, guests, name, phone, outlet Slot
}

var (
	primaryBookingSlots = bookingSlots{
		date:   SlotBookingDate,
		time:   SlotBookingTime,
		guests: SlotGuests,
		name:   SlotCustomerName,
		phone:  SlotPhone,
		outlet: SlotOutlet,
	}
	modifiedBookingSlots = bookingSlots{
		date:   SlotNewBookingDate,
		time:   SlotNewBookingTime,
		guests: SlotNewGuests,
		name:   SlotNewCustomerName,
		phone:  SlotNewPhone,
		outlet: SlotNewOutlet,
	}
)

// requiredBookingSlots must all be filled before a booking can be confirmed.
var requiredBookingSlots = []Slot{
	SlotOutlet, SlotBookingDate, SlotBookingTime, SlotGuests, SlotCustomerName, SlotPhone,
}

// Context is the set of slots accumulated over one conversation.
//
// A slot that has been set is never overwritten: SetIfAbsent is the only
// mutator. Keys that do not name a known slot are carried through untouched
// so that a caller's context is never shrunk by a round trip.
type Context struct {
	slots [slotCount]string
	set   [slotCount]bool
	extra map[string]string
}

// NewContext returns an empty context.
func NewContext() Context {
	return Context{}
}

// ContextFromMap builds a context from wire key/value pairs.
func ContextFromMap(m map[string]string) Context {
	var c Context
	for k, v := range m {
		c.setKey(k, v)
	}
	return c
}

func (c *Context) setKey(key, value string) {
	if s, ok := ParseSlot(key); ok {
		c.SetIfAbsent(s, value)
		return
	}
	if c.extra == nil {
		c.extra = make(map[string]string)
	}
	if _, exists := c.extra[key]; !exists {
		c.extra[key] = value
	}
}

// Get returns the slot value and whether it has been set.
func (c Context) Get(s Slot) (string, bool) {
	if s >= slotCount {
		return "", false
	}
	return c.slots[s], c.set[s]
}

// Value returns the slot value or the empty string.
func (c Context) Value(s Slot) string {
	v, _ := c.Get(s)
	return v
}

// Has reports whether the slot has been set, even to an empty value.
func (c Context) Has(s Slot) bool {
	return s < slotCount && c.set[s]
}

// Filled reports whether the slot is set to a non-empty value.
func (c Context) Filled(s Slot) bool {
	return c.Value(s) != ""
}

// SetIfAbsent stores value when the slot has not been set yet and reports
// whether it did.
func (c *Context) SetIfAbsent(s Slot, value string) bool {
	if s >= slotCount || c.set[s] {
		return false
	}
	c.slots[s] = value
	c.set[s] = true
	return true
}

// Clone returns an independent copy.
func (c Context) Clone() Context {
	out := c
	if c.extra != nil {
		out.extra = maps.Clone(c.extra)
	}
	return out
}

// Len returns the number of keys, known slots and pass-through keys alike.
func (c Context) Len() int {
	n := len(c.extra)
	for _, ok := range c.set {
		if ok {
			n++
		}
	}
	return n
}

// Values flattens the context into wire key/value pairs.
func (c Context) Values() map[string]string {
	out := make(map[string]string, c.Len())
	for k, v := range c.extra {
		out[k] = v
	}
	for i, ok := range c.set {
		if ok {
			out[slotNames[i]] = c.slots[i]
		}
	}
	return out
}

func (c Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Values())
}

// UnmarshalJSON accepts a flat object. Non-string scalars are kept in their
// JSON text form; nulls are treated as absent.
func (c *Context) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode context: %w", err)
	}
	*c = Context{}
	for k, v := range raw {
		if string(v) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		c.setKey(k, s)
	}
	return nil
}
