package analysis

import (
	"regexp"
	"strconv"

	"github.com/grillbook/grillbook/pkg/dialog"
)

var (
	phoneMention  = regexp.MustCompile(`(?:\+91|0)?[6-9][0-9]{9}`)
	dateMention   = regexp.MustCompile(`(?i)\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4}`)
	timeMention   = regexp.MustCompile(`(?i)\d{1,2}:\d{2}(?::\d{2})?\s*(?:am|pm)?|\d{1,2}\s*(?:am|pm)`)
	guestsMention = regexp.MustCompile(`(?i)(\d+)\s+(?:guest|people|person|adult|customer)`)
	nameMention   = regexp.MustCompile(`(?:my name is|this is|I am|I'm)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`)
)

// Entities are the caller and booking details found in a transcript. Fields
// that were not found hold NA, except Phone which is empty.
type Entities struct {
	Outlet string `json:"outlet_name"`
	Date   string `json:"booking_date"`
	Time   string `json:"booking_time"`
	Guests string `json:"guests"`
	Name   string `json:"customer_name"`
	Phone  string `json:"phone_number,omitempty"`
}

// ExtractEntities scans a transcript for the first mention of each entity.
func ExtractEntities(text string) Entities {
	e := Entities{Outlet: NA, Date: NA, Time: NA, Guests: NA, Name: NA}

	if outlet, ok := dialog.MatchOutlet(text); ok {
		e.Outlet = outlet
	}
	if m := phoneMention.FindString(text); m != "" {
		if phone, err := ValidatePhone(m); err == nil {
			e.Phone = phone
		}
	}
	if m := dateMention.FindString(text); m != "" {
		e.Date = FormatDate(m)
	}
	if m := timeMention.FindString(text); m != "" {
		e.Time = FormatTime(m)
	}
	if m := guestsMention.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			e.Guests = strconv.Itoa(n)
		}
	}
	if m := nameMention.FindStringSubmatch(text); m != nil {
		e.Name = m[1]
	}
	return e
}
