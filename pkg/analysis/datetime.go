package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
	"2006/1/2",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var timeLayouts = []string{
	"15:04",
	"3:04 PM",
	"3:04PM",
	"15:04:05",
	"3:04:05 PM",
	"3 PM",
	"3PM",
}

var (
	looseDatePattern = regexp.MustCompile(`(\d{1,2})[-/\s]?(\d{1,2}|[A-Za-z]+)[-/\s]?(\d{2,4})`)
	looseTimePattern = regexp.MustCompile(`(?i)(\d{1,2})[:.]?(\d{2})(?:\s*(am|pm))?`)
)

// FormatDate normalises a date to YYYY-MM-DD. Anything unparseable, or an
// impossible calendar date, yields NA.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NA) {
		return NA
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}

	m := looseDatePattern.FindStringSubmatch(s)
	if m == nil {
		return NA
	}
	t, err := looseDate(m[1], m[2], m[3])
	if err != nil {
		return NA
	}
	return t.Format(time.DateOnly)
}

func looseDate(dayStr, monthStr, yearStr string) (time.Time, error) {
	day, _ := strconv.Atoi(dayStr)
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		mt, perr := parseMonth(monthStr)
		if perr != nil {
			return time.Time{}, perr
		}
		month = int(mt)
	}
	year, _ := strconv.Atoi(yearStr)
	if len(yearStr) == 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("no such date %d-%d-%d", year, month, day)
	}
	return t, nil
}

func parseMonth(name string) (time.Month, error) {
	// Month names match case-insensitively.
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, name); err == nil {
			return t.Month(), nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", name)
}

// FormatTime normalises a time of day to 24-hour HH:MM. Anything
// unparseable yields NA.
func FormatTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NA) {
		return NA
	}
	upper := strings.ToUpper(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Format("15:04")
		}
	}

	m := looseTimePattern.FindStringSubmatch(s)
	if m == nil {
		return NA
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return NA
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
