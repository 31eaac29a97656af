package knowledge

import (
	"slices"
	"strings"

	"github.com/grillbook/grillbook/pkg/budget"
)

// OutletFilter selects outlets. Empty fields match everything.
type OutletFilter struct {
	City string
	ID   string
}

// FAQFilter selects FAQs. Query matches a substring of the question or
// the answer.
type FAQFilter struct {
	Query    string
	Category string
}

// MenuFilter selects menu items. Name matches a substring of the item name.
type MenuFilter struct {
	Category   string
	Name       string
	Vegetarian *bool
}

// Outlets returns the outlets matching f, in corpus order.
func (b *Base) Outlets(f OutletFilter) []Outlet {
	city := fold(strings.TrimSpace(f.City))
	out := make([]Outlet, 0, len(b.outlets))
	for _, o := range b.outlets {
		if city != "" && fold(o.City) != city {
			continue
		}
		if f.ID != "" && o.ID != f.ID {
			continue
		}
		out = append(out, o)
	}
	return out
}

// FAQs returns the FAQs matching f, in corpus order.
func (b *Base) FAQs(f FAQFilter) []FAQ {
	category := fold(f.Category)
	query := fold(f.Query)
	out := make([]FAQ, 0, len(b.faqs))
	for _, q := range b.faqs {
		if category != "" && fold(q.Category) != category {
			continue
		}
		if query != "" && !strings.Contains(fold(q.Question), query) && !strings.Contains(fold(q.Answer), query) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Menu returns the menu items matching f, in corpus order.
func (b *Base) Menu(f MenuFilter) []MenuItem {
	category := fold(f.Category)
	name := fold(f.Name)
	out := make([]MenuItem, 0, len(b.menu))
	for _, m := range b.menu {
		if category != "" && fold(m.Category) != category {
			continue
		}
		if name != "" && !strings.Contains(fold(m.Name), name) {
			continue
		}
		if f.Vegetarian != nil && m.Vegetarian != *f.Vegetarian {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Outlet resolves a reference to an outlet. The reference may be an outlet
// id, a full outlet name, or any text naming the outlet's locality, such
// as "Barbeque Nation Whitefield".
func (b *Base) Outlet(ref string) (Outlet, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Outlet{}, false
	}
	if i := slices.IndexFunc(b.outlets, func(o Outlet) bool { return strings.EqualFold(o.ID, ref) }); i >= 0 {
		return b.outlets[i], true
	}
	folded := fold(ref)
	for _, o := range b.outlets {
		if fold(o.Name) == folded || strings.Contains(folded, fold(o.Locality())) {
			return o, true
		}
	}
	return Outlet{}, false
}

// Records converts corpus entries for budgeting.
func Records[T interface{ Record() budget.Record }](items []T) []budget.Record {
	out := make([]budget.Record, len(items))
	for i, item := range items {
		out[i] = item.Record()
	}
	return out
}
