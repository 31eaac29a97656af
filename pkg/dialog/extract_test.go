package dialog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractBookingDetails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "iso date and bare pm time",
			text: "for 2024-03-15 at 8pm",
			want: map[string]string{"booking_date": "2024-03-15", "booking_time": "8pm"},
		},
		{
			name: "labelled time",
			text: "time: 19:45",
			want: map[string]string{"booking_time": "19:45"},
		},
		{
			name: "guests with pax",
			text: "we are 12 PAX",
			want: map[string]string{"guests": "12"},
		},
		{
			name: "name via I'm",
			text: "I'm Anita Rao Kumar Singh",
			want: map[string]string{"customer_name": "Anita Rao Kumar"},
		},
		{
			name: "phone with country code",
			text: "contact +919123456789",
			want: map[string]string{"phone": "+919123456789"},
		},
		{
			name: "first outlet in table order",
			text: "Whitefield or maybe Delhi",
			want: map[string]string{"outlet": "Barbeque Nation Delhi"},
		},
		{
			name: "lower-case name is ignored",
			text: "my name is rahul",
			want: map[string]string{},
		},
		{
			name: "nothing recognised",
			text: "just browsing",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBookingDetails(tt.text, NewContext()).Values()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractBookingDetailsKeepsExisting(t *testing.T) {
	c := ContextFromMap(map[string]string{"guests": "2"})
	got := ExtractBookingDetails("for 6 people", c)
	if v := got.Value(SlotGuests); v != "2" {
		t.Errorf("guests = %q, want %q", v, "2")
	}
}

func TestMatchOutlet(t *testing.T) {
	if got, ok := MatchOutlet("near INDIRANAGAR metro"); !ok || got != "Barbeque Nation Indiranagar" {
		t.Errorf("MatchOutlet = %q, %v", got, ok)
	}
	if _, ok := MatchOutlet("Mumbai"); ok {
		t.Error("unexpected match for Mumbai")
	}
}
