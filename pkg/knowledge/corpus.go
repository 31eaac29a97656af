// Package knowledge serves the restaurant's read-only corpus: outlets,
// frequently asked questions and the menu.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/grillbook/grillbook/pkg/budget"
)

//go:embed corpus.yaml
var corpusYAML []byte

// Fields kept when a reply has to be shortened.
var (
	OutletFields = []string{"id", "name", "address", "city", "phone", "opening_hours"}
	FAQFields    = []string{"question", "answer", "category"}
	MenuFields   = []string{"name", "description", "price", "category", "is_vegetarian"}
)

// Coordinates locate an outlet.
type Coordinates struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Outlet is one restaurant.
type Outlet struct {
	ID                string      `yaml:"id" json:"id"`
	Name              string      `yaml:"name" json:"name"`
	Address           string      `yaml:"address" json:"address"`
	City              string      `yaml:"city" json:"city"`
	Phone             string      `yaml:"phone" json:"phone"`
	OpeningHours      string      `yaml:"opening_hours" json:"opening_hours"`
	Cuisine           string      `yaml:"cuisine" json:"cuisine"`
	PriceRange        string      `yaml:"price_range" json:"price_range"`
	Capacity          int         `yaml:"capacity" json:"capacity"`
	Features          []string    `yaml:"features" json:"features"`
	Parking           string      `yaml:"parking" json:"parking"`
	ReservationPolicy string      `yaml:"reservation_policy" json:"reservation_policy"`
	Rating            float64     `yaml:"rating" json:"rating"`
	Location          Coordinates `yaml:"location" json:"location_coordinates"`
}

// Locality is the part of the outlet name after the brand.
func (o Outlet) Locality() string {
	if _, after, ok := strings.Cut(o.Name, " - "); ok {
		return after
	}
	return o.Name
}

// Record renders the outlet for budgeting, important fields first.
func (o Outlet) Record() budget.Record {
	return budget.Record{
		{Key: "id", Value: o.ID},
		{Key: "name", Value: o.Name},
		{Key: "address", Value: o.Address},
		{Key: "city", Value: o.City},
		{Key: "phone", Value: o.Phone},
		{Key: "opening_hours", Value: o.OpeningHours},
		{Key: "cuisine", Value: o.Cuisine},
		{Key: "price_range", Value: o.PriceRange},
		{Key: "capacity", Value: o.Capacity},
		{Key: "features", Value: o.Features},
		{Key: "parking", Value: o.Parking},
		{Key: "reservation_policy", Value: o.ReservationPolicy},
		{Key: "rating", Value: o.Rating},
		{Key: "location_coordinates", Value: o.Location},
	}
}

// FAQ is a question with its canned answer.
type FAQ struct {
	ID       string `yaml:"id" json:"id"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
	Category string `yaml:"category" json:"category"`
}

func (f FAQ) Record() budget.Record {
	return budget.Record{
		{Key: "id", Value: f.ID},
		{Key: "question", Value: f.Question},
		{Key: "answer", Value: f.Answer},
		{Key: "category", Value: f.Category},
	}
}

// MenuItem is one dish or drink.
type MenuItem struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Category     string   `yaml:"category" json:"category"`
	Vegetarian   bool     `yaml:"is_vegetarian" json:"is_vegetarian"`
	Price        string   `yaml:"price" json:"price"`
	SpiceLevel   string   `yaml:"spice_level" json:"spice_level"`
	Contains     []string `yaml:"contains" json:"contains"`
	Availability string   `yaml:"availability" json:"availability"`
}

func (m MenuItem) Record() budget.Record {
	return budget.Record{
		{Key: "id", Value: m.ID},
		{Key: "name", Value: m.Name},
		{Key: "description", Value: m.Description},
		{Key: "category", Value: m.Category},
		{Key: "is_vegetarian", Value: m.Vegetarian},
		{Key: "price", Value: m.Price},
		{Key: "spice_level", Value: m.SpiceLevel},
		{Key: "contains", Value: m.Contains},
		{Key: "availability", Value: m.Availability},
	}
}

type corpus struct {
	Outlets []Outlet   `yaml:"outlets"`
	FAQs    []FAQ      `yaml:"faqs"`
	Menu    []MenuItem `yaml:"menu"`
}

// Base is an immutable, loaded corpus. It is safe for concurrent use.
type Base struct {
	outlets []Outlet
	faqs    []FAQ
	menu    []MenuItem
}

// Load parses a YAML corpus.
func Load(data []byte) (*Base, error) {
	var c corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse knowledge corpus: %w", err)
	}

	var errs []error
	seen := make(map[string]bool)
	for _, o := range c.Outlets {
		if o.ID == "" || o.Name == "" || o.City == "" {
			errs = append(errs, fmt.Errorf("outlet %q: id, name and city are required", o.ID))
		}
		if seen[o.ID] {
			errs = append(errs, fmt.Errorf("outlet %q: duplicate id", o.ID))
		}
		seen[o.ID] = true
	}
	for _, f := range c.FAQs {
		if f.Question == "" || f.Answer == "" {
			errs = append(errs, fmt.Errorf("faq %q: question and answer are required", f.ID))
		}
	}
	for _, m := range c.Menu {
		if m.Name == "" || m.Category == "" {
			errs = append(errs, fmt.Errorf("menu item %q: name and category are required", m.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Base{outlets: c.Outlets, faqs: c.FAQs, menu: c.Menu}, nil
}

var defaultBase = sync.OnceValue(func() *Base {
	b, err := Load(corpusYAML)
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded corpus: %v", err))
	}
	return b
})

// Default returns the embedded corpus.
func Default() *Base {
	return defaultBase()
}

// fold lowers s for caseless comparison. Casers keep state, so one is made
// per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
