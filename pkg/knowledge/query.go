package knowledge

import (
	"cmp"
	"slices"
	"strings"

	"github.com/grillbook/grillbook/pkg/budget"
)

// AnswerKind says which part of the corpus answered a query.
type AnswerKind string

const (
	KindOutlets AnswerKind = "outlets"
	KindMenu    AnswerKind = "menu"
	KindBooking AnswerKind = "booking"
	KindFAQ     AnswerKind = "faq"
	KindGeneral AnswerKind = "general"
)

const (
	BookingGuidance = "To make a reservation at Barbeque Nation, I'll need the following details: " +
		"date, time, number of guests, your name, and contact number. Would you like to proceed with a booking?"
	GeneralHelp = "I'm here to help you with information about Barbeque Nation, including our outlets " +
		"in Delhi and Bangalore, menu options, and booking assistance. Please let me know what you'd like to know."
)

// sampleMenuSize is how many items answer a menu question that names
// nothing in particular.
const sampleMenuSize = 5

var (
	locationWords  = []string{"location", "outlet", "address", "branch", "where"}
	menuWords      = []string{"menu", "food", "dish", "item", "price", "cost"}
	bookingWords   = []string{"book", "reservation", "table", "reserve"}
	menuCategories = []string{"starters", "main course", "desserts", "beverages"}
)

// ScoredFAQ is an FAQ with its relevance to a query.
type ScoredFAQ struct {
	FAQ
	Score int `json:"relevance_score"`
}

func (s ScoredFAQ) Record() budget.Record {
	return s.FAQ.Record().With("relevance_score", s.Score)
}

// Answer is the reply to a free-text query. Exactly one of the slices is
// set for the outlets, menu and faq kinds; booking and general answers
// carry a message.
type Answer struct {
	Kind    AnswerKind  `json:"type"`
	Message string      `json:"message,omitempty"`
	Outlets []Outlet    `json:"-"`
	Menu    []MenuItem  `json:"-"`
	FAQs    []ScoredFAQ `json:"-"`
}

// Rows returns the answer's entries for budgeting and the fields to keep.
func (a Answer) Rows() ([]budget.Record, []string) {
	switch a.Kind {
	case KindOutlets:
		return Records(a.Outlets), OutletFields
	case KindMenu:
		return Records(a.Menu), MenuFields
	case KindFAQ:
		return Records(a.FAQs), FAQFields
	}
	return nil, nil
}

// Query routes a free-text question to the outlets, the menu, booking
// guidance or the FAQs, checked in that order by keyword.
func (b *Base) Query(text string) Answer {
	q := fold(text)
	switch {
	case containsAny(q, locationWords):
		return Answer{Kind: KindOutlets, Outlets: b.outletsMentioned(q)}
	case containsAny(q, menuWords):
		return Answer{Kind: KindMenu, Menu: b.menuMentioned(q)}
	case containsAny(q, bookingWords):
		return Answer{Kind: KindBooking, Message: BookingGuidance}
	}

	if faqs := b.rankFAQs(q); len(faqs) > 0 {
		return Answer{Kind: KindFAQ, FAQs: faqs}
	}
	return Answer{Kind: KindGeneral, Message: GeneralHelp}
}

func (b *Base) outletsMentioned(q string) []Outlet {
	var out []Outlet
	for _, o := range b.outlets {
		if strings.Contains(q, fold(o.City)) {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return slices.Clone(b.outlets)
	}
	return out
}

func (b *Base) menuMentioned(q string) []MenuItem {
	var out []MenuItem
	var categories []string
	for _, c := range menuCategories {
		if strings.Contains(q, c) {
			categories = append(categories, c)
		}
	}

	if len(categories) > 0 {
		for _, m := range b.menu {
			if slices.Contains(categories, fold(m.Category)) {
				out = append(out, m)
			}
		}
	} else {
		terms := significantTerms(q)
		for _, m := range b.menu {
			name, desc := fold(m.Name), fold(m.Description)
			if slices.ContainsFunc(terms, func(t string) bool {
				return strings.Contains(name, t) || strings.Contains(desc, t)
			}) {
				out = append(out, m)
			}
		}
	}

	if len(out) == 0 {
		return slices.Clone(b.menu[:min(sampleMenuSize, len(b.menu))])
	}
	return out
}

// significantTerms drops words too short to identify a dish.
func significantTerms(q string) []string {
	var out []string
	for _, w := range strings.Fields(q) {
		w = strings.Trim(w, ".,!?;:'\"")
		if len([]rune(w)) >= 3 {
			out = append(out, w)
		}
	}
	return out
}

// rankFAQs scores each FAQ by word overlap with the query, counting
// question words twice, and returns the matches best first.
func (b *Base) rankFAQs(q string) []ScoredFAQ {
	query := wordSet(q)
	var out []ScoredFAQ
	for _, f := range b.faqs {
		score := 2*overlap(query, wordSet(fold(f.Question))) + overlap(query, wordSet(fold(f.Answer)))
		if score > 0 {
			out = append(out, ScoredFAQ{FAQ: f, Score: score})
		}
	}
	slices.SortStableFunc(out, func(a, b ScoredFAQ) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func containsAny(s string, words []string) bool {
	return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(s, w) })
}

// Payload renders the answer as a reply, budgeting any rows down to the
// answer's important fields.
func (a Answer) Payload(b *budget.Budgeter) budget.Record {
	out := budget.Record{{Key: "type", Value: string(a.Kind)}}
	rows, important := a.Rows()
	if rows == nil {
		return out.With("message", a.Message)
	}
	return out.With("data", b.Optimize(rows, important...))
}
