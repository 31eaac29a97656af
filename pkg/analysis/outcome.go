package analysis

import (
	"regexp"
	"strings"
)

// Outcome classifies what a conversation was about.
type Outcome string

const (
	OutcomeAvailability Outcome = "Availability"
	OutcomePostBooking  Outcome = "Post-Booking"
	OutcomeEnquiry      Outcome = "Enquiry"
	OutcomeMisc         Outcome = "Misc"
)

var (
	bookingWords      = regexp.MustCompile(`(?i)book|reserve|table|reservation`)
	modificationWords = regexp.MustCompile(`(?i)modify|change|update|cancel|reschedule`)
	enquiryWords      = regexp.MustCompile(`(?i)question|faq|ask|tell me|how|what|when|where|why`)
)

// ClassifyOutcome assigns an outcome from the words used in a transcript.
// Booking talk that also mentions changes counts as post-booking.
func ClassifyOutcome(text string) Outcome {
	switch {
	case bookingWords.MatchString(text):
		if modificationWords.MatchString(text) {
			return OutcomePostBooking
		}
		return OutcomeAvailability
	case enquiryWords.MatchString(text):
		return OutcomeEnquiry
	default:
		return OutcomeMisc
	}
}

// Summarize writes a one-paragraph summary of a transcript.
func Summarize(text string) string {
	switch ClassifyOutcome(text) {
	case OutcomeAvailability:
		return availabilitySummary(ExtractEntities(text))
	case OutcomePostBooking:
		return "The customer contacted regarding an existing booking. " +
			"They were assisted with modifications or cancellation requests for their reservation."
	case OutcomeEnquiry:
		return "The customer had general enquiries about Barbeque Nation. " +
			"Information was provided regarding menu, pricing, location, or other details."
	default:
		return "The customer contacted for miscellaneous reasons. " +
			"The conversation did not result in a specific booking or enquiry resolution."
	}
}

func availabilitySummary(e Entities) string {
	var b strings.Builder
	name := e.Name
	if name == NA {
		name = "The customer"
	}
	b.WriteString(name)
	b.WriteString(" enquired about booking a table")
	if e.Guests != NA {
		b.WriteString(" for " + e.Guests + " guests")
	}
	if e.Outlet != NA {
		b.WriteString(" at " + e.Outlet)
	}
	if e.Date != NA {
		b.WriteString(" on " + e.Date)
	}
	if e.Time != NA {
		b.WriteString(" at " + e.Time)
	}
	b.WriteString(". The customer was informed about availability and booking process.")
	return b.String()
}

// Analysis is the post-call view of a transcript.
type Analysis struct {
	Outcome Outcome `json:"call_outcome"`
	Entities
	Summary string `json:"call_summary"`
}

// Analyze classifies, extracts and summarises a transcript.
func Analyze(text string) Analysis {
	return Analysis{
		Outcome:  ClassifyOutcome(text),
		Entities: ExtractEntities(text),
		Summary:  Summarize(text),
	}
}
