// Package analysis turns a finished conversation transcript into the fields
// of a call-log entry: caller details, booking details, outcome and summary.
package analysis

import (
	"errors"
	"strings"
	"time"
)

// NA marks a field that could not be determined.
const NA = "NA"

// ErrInvalidPhone is returned for numbers that are not Indian mobile numbers.
var ErrInvalidPhone = errors.New("invalid phone number")

// ValidatePhone normalises an Indian mobile number to its 10 digits. Any
// non-digit characters are ignored. A leading trunk 0 or country code 91
// is accepted.
func ValidatePhone(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	switch {
	case len(digits) == 11 && digits[0] == '0':
		digits = digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	}
	if len(digits) != 10 || !strings.ContainsRune("6789", rune(digits[0])) {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// IST is Indian Standard Time. India observes no daylight saving, so a
// fixed zone avoids depending on the host tz database.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// CallTimeLayout is the layout of call times in the log.
const CallTimeLayout = "2006-01-02 15:04:05"

// CallTime formats t in IST.
func CallTime(t time.Time) string {
	return t.In(IST).Format(CallTimeLayout)
}
