package knowledge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/grillbook/grillbook/pkg/budget"
)

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

func outletIDs(o []Outlet) []string { return ids(o, func(o Outlet) string { return o.ID }) }
func menuIDs(m []MenuItem) []string { return ids(m, func(m MenuItem) string { return m.ID }) }

func TestDefaultCorpus(t *testing.T) {
	b := Default()
	if n := len(b.Outlets(OutletFilter{})); n != 6 {
		t.Errorf("outlets = %d, want 6", n)
	}
	if n := len(b.FAQs(FAQFilter{})); n != 20 {
		t.Errorf("faqs = %d, want 20", n)
	}
	if n := len(b.Menu(MenuFilter{})); n != 20 {
		t.Errorf("menu = %d, want 20", n)
	}
}

func TestLoadRejectsInvalidCorpus(t *testing.T) {
	tests := map[string]string{
		"bad yaml":           "outlets: [",
		"missing city":       "outlets:\n  - id: X1\n    name: Somewhere\n",
		"duplicate id":       "outlets:\n  - {id: X1, name: A, city: Pune}\n  - {id: X1, name: B, city: Pune}\n",
		"empty answer":       "faqs:\n  - {id: F1, question: Why?}\n",
		"menu uncategorised": "menu:\n  - {id: M1, name: Tea}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOutletsFilter(t *testing.T) {
	b := Default()
	tests := []struct {
		name   string
		filter OutletFilter
		want   []string
	}{
		{"city", OutletFilter{City: "bangalore"}, []string{"BBQB001", "BBQB002", "BBQB003"}},
		{"city case", OutletFilter{City: "DELHI"}, []string{"BBQD001", "BBQD002", "BBQD003"}},
		{"id", OutletFilter{ID: "BBQB003"}, []string{"BBQB003"}},
		{"city and id mismatch", OutletFilter{City: "Delhi", ID: "BBQB003"}, []string{}},
		{"unknown city", OutletFilter{City: "Mumbai"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, outletIDs(b.Outlets(tt.filter))); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestFAQsFilter(t *testing.T) {
	b := Default()
	got := ids(b.FAQs(FAQFilter{Category: "Pricing"}), func(f FAQ) string { return f.ID })
	if diff := cmp.Diff([]string{"FAQ008", "FAQ009", "FAQ010"}, got); diff != "" {
		t.Errorf("category (-want +got):\n%s", diff)
	}
	got = ids(b.FAQs(FAQFilter{Query: "Cake"}), func(f FAQ) string { return f.ID })
	if diff := cmp.Diff([]string{"FAQ014", "FAQ015"}, got); diff != "" {
		t.Errorf("query (-want +got):\n%s", diff)
	}
}

func TestMenuFilter(t *testing.T) {
	veg, nonVeg := true, false
	b := Default()
	tests := []struct {
		name   string
		filter MenuFilter
		want   int
	}{
		{"category", MenuFilter{Category: "Desserts"}, 3},
		{"name", MenuFilter{Name: "tikka"}, 4},
		{"non vegetarian", MenuFilter{Vegetarian: &nonVeg}, 7},
		{"vegetarian starters", MenuFilter{Category: "starters", Vegetarian: &veg}, 4},
		{"no match", MenuFilter{Name: "pizza"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(b.Menu(tt.filter)); got != tt.want {
				t.Errorf("items = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOutletLookup(t *testing.T) {
	b := Default()
	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"bbqd001", "BBQD001", true},
		{"Barbeque Nation - Nehru Place", "BBQD002", true},
		{"Barbeque Nation Whitefield", "BBQB003", true},
		{"Mumbai", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			o, ok := b.Outlet(tt.ref)
			if ok != tt.wantOK || o.ID != tt.want {
				t.Errorf("Outlet(%q) = %q, %v; want %q, %v", tt.ref, o.ID, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	b := Default()

	t.Run("outlets in a city", func(t *testing.T) {
		a := b.Query("Where is your outlet in Delhi?")
		if a.Kind != KindOutlets {
			t.Fatalf("kind = %q", a.Kind)
		}
		if diff := cmp.Diff([]string{"BBQD001", "BBQD002", "BBQD003"}, outletIDs(a.Outlets)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("outlets anywhere", func(t *testing.T) {
		if a := b.Query("what are your locations"); a.Kind != KindOutlets || len(a.Outlets) != 6 {
			t.Errorf("answer = %q with %d outlets", a.Kind, len(a.Outlets))
		}
	})

	t.Run("menu category", func(t *testing.T) {
		a := b.Query("show me desserts on the menu")
		if diff := cmp.Diff([]string{"MENUDS001", "MENUDS002", "MENUDS003"}, menuIDs(a.Menu)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("menu term", func(t *testing.T) {
		a := b.Query("how much does paneer cost")
		if diff := cmp.Diff([]string{"MENUSV001", "MENUMCV001"}, menuIDs(a.Menu)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("menu sample", func(t *testing.T) {
		if a := b.Query("food please"); len(a.Menu) != sampleMenuSize {
			t.Errorf("items = %d, want %d", len(a.Menu), sampleMenuSize)
		}
	})

	t.Run("booking", func(t *testing.T) {
		a := b.Query("I want to book a table")
		if a.Kind != KindBooking || a.Message != BookingGuidance {
			t.Errorf("answer = %+v", a)
		}
	})

	t.Run("faq ranking", func(t *testing.T) {
		a := b.Query("are pets allowed")
		if a.Kind != KindFAQ || len(a.FAQs) == 0 {
			t.Fatalf("answer = %+v", a)
		}
		if a.FAQs[0].ID != "FAQ020" {
			t.Errorf("top faq = %s, want FAQ020", a.FAQs[0].ID)
		}
		for i := 1; i < len(a.FAQs); i++ {
			if a.FAQs[i].Score > a.FAQs[i-1].Score {
				t.Fatalf("faqs not sorted by score at %d", i)
			}
		}
	})

	t.Run("general", func(t *testing.T) {
		a := b.Query("hello")
		if a.Kind != KindGeneral || a.Message != GeneralHelp {
			t.Errorf("answer = %+v", a)
		}
	})
}

func TestAnswerRows(t *testing.T) {
	a := Default().Query("show me desserts on the menu")
	rows, important := a.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if diff := cmp.Diff(MenuFields, important); diff != "" {
		t.Errorf("important (-want +got):\n%s", diff)
	}
	if v, _ := rows[0].Get("name"); v != "Gulab Jamun" {
		t.Errorf("first row name = %v", v)
	}
}

func TestAnswerPayload(t *testing.T) {
	b := budget.New(nil, 800)

	booking := Default().Query("I want to book a table").Payload(b)
	if v, _ := booking.Get("message"); v != BookingGuidance {
		t.Errorf("booking message = %v", v)
	}
	if booking.Has("data") {
		t.Error("booking payload should not carry data")
	}

	menu := Default().Query("show me desserts on the menu").Payload(b)
	if v, _ := menu.Get("type"); v != "menu" {
		t.Errorf("type = %v", v)
	}
	data, _ := menu.Get("data")
	rows, ok := data.([]budget.Record)
	if !ok || len(rows) != 3 {
		t.Fatalf("data = %#v", data)
	}
}
