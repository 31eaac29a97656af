package dialog

import (
	"regexp"
	"strings"
)

var (
	datePattern   = regexp.MustCompile(`(?:date|on|for|)\s*:?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}-\d{2}-\d{2})`)
	timePattern   = regexp.MustCompile(`(?i)(?:time|at)\s*:?\s*(\d{1,2}:\d{2}(?:\s*(?:am|pm))?|\d{1,2}\s*(?:am|pm))`)
	guestsPattern = regexp.MustCompile(`(?i)(?:for|with|)\s*(\d+)\s*(?:people|persons|guests|pax)`)
	namePattern   = regexp.MustCompile(`(?:name|this is|I am|I'm)\s+(?:is\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`)
	phonePattern  = regexp.MustCompile(`(?:phone|number|contact|call|)\s*(?:is|at|:)?\s*((?:\+91|0)?[6-9][0-9]{9})`)

	// Booking references are upper-case alphanumerics, optionally hyphenated
	// as in BBQ-1A2B3C4D.
	bookingIDPattern = regexp.MustCompile(`booking (?:id|ID|number|#)?\s*:?\s*([A-Z0-9]+(?:-[A-Z0-9]+)*)`)
)

type vocabEntry struct {
	match string
	value string
}

// outletTable maps a locality mentioned by the caller to the canonical
// outlet name. Order matters: the first entry found in the text wins.
var outletTable = []vocabEntry{
	{"delhi", "Barbeque Nation Delhi"},
	{"connaught", "Barbeque Nation Connaught Place"},
	{"nehru", "Barbeque Nation Nehru Place"},
	{"vasant", "Barbeque Nation Vasant Kunj"},
	{"bangalore", "Barbeque Nation Bangalore"},
	{"koramangala", "Barbeque Nation Koramangala"},
	{"indiranagar", "Barbeque Nation Indiranagar"},
	{"whitefield", "Barbeque Nation Whitefield"},
}

var queryTopics = []string{"menu", "price", "location", "hours", "special", "offer"}

var outletNames = []string{
	"Delhi", "Bangalore", "Connaught Place", "Nehru Place", "Vasant Kunj",
	"Koramangala", "Indiranagar", "Whitefield",
}

var updateWords = []string{"change", "modify", "update"}

// updateContext applies the extraction that belongs to the from → to edge.
// The input context is never modified.
func updateContext(from, to State, input string, c Context) Context {
	out := c.Clone()
	lower := strings.ToLower(input)

	switch {
	case from == Greeting && to == FAQEnquiry:
		if topic, ok := firstContained(lower, queryTopics); ok {
			out.SetIfAbsent(SlotQueryTopic, topic)
		}
		if outlet, ok := firstContained(lower, outletNames); ok {
			out.SetIfAbsent(SlotOutlet, outlet)
		}

	case from == Greeting && to == BookingEnquiry,
		from == BookingEnquiry && to == BookingEnquiry:
		extractBookingDetails(input, &out, primaryBookingSlots)

	case from == Greeting && to == BookingModification:
		extractModification(input, lower, &out)

	case from == BookingModification && to == BookingModification:
		extractModification(input, lower, &out)
		if out.Value(SlotModificationType) == ModificationUpdate {
			extractBookingDetails(input, &out, modifiedBookingSlots)
		}
	}

	return out
}

func extractModification(input, lower string, c *Context) {
	if m := bookingIDPattern.FindStringSubmatch(input); m != nil {
		c.SetIfAbsent(SlotBookingID, m[1])
	}
	switch {
	case strings.Contains(lower, "cancel"):
		c.SetIfAbsent(SlotModificationType, ModificationCancel)
	case containsAny(lower, updateWords):
		c.SetIfAbsent(SlotModificationType, ModificationUpdate)
	}
}

// ExtractBookingDetails fills the booking slots found in text. Slots already
// present in c are left alone.
func ExtractBookingDetails(text string, c Context) Context {
	out := c.Clone()
	extractBookingDetails(text, &out, primaryBookingSlots)
	return out
}

func extractBookingDetails(text string, c *Context, slots bookingSlots) {
	for _, p := range []struct {
		re   *regexp.Regexp
		slot Slot
	}{
		{datePattern, slots.date},
		{timePattern, slots.time},
		{guestsPattern, slots.guests},
		{namePattern, slots.name},
		{phonePattern, slots.phone},
	} {
		if m := p.re.FindStringSubmatch(text); m != nil {
			c.SetIfAbsent(p.slot, m[1])
		}
	}

	if outlet, ok := MatchOutlet(text); ok {
		c.SetIfAbsent(slots.outlet, outlet)
	}
}

// MatchOutlet returns the canonical outlet for the first locality mentioned
// in text, in table order.
func MatchOutlet(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, e := range outletTable {
		if strings.Contains(lower, e.match) {
			return e.value, true
		}
	}
	return "", false
}

func firstContained(lower string, words []string) (string, bool) {
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

func containsAny(lower string, words []string) bool {
	_, ok := firstContained(lower, words)
	return ok
}
