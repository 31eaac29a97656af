package budget

import (
	"bytes"
	"encoding/json"
	"reflect"
	"slices"
	"unicode/utf8"
)

const (
	maxRows        = 10
	maxStringRunes = 100
)

// Strategy names, as reported to the reduction hook.
const (
	StrategyProjectFields   = "project_fields"
	StrategyHeadRows        = "head_rows"
	StrategyTruncateStrings = "truncate_strings"
	StrategyDropFields      = "drop_fields"
	StrategyFallbackSubset  = "fallback_subset"
	StrategyTruncateText    = "truncate_text"
)

// pass carries one Optimize call through the pipeline.
type pass struct {
	original  any
	current   any
	important []string
	fits      func(any) bool
}

type strategy struct {
	name  string
	apply func(p *pass) (any, bool)
}

func (b *Budgeter) pipeline() []strategy {
	return []strategy{
		{StrategyProjectFields, projectFields},
		{StrategyHeadRows, headRows},
		{StrategyTruncateStrings, truncateStrings},
		{StrategyDropFields, dropFields},
		{StrategyFallbackSubset, fallbackSubset},
		{StrategyTruncateText, b.truncateText},
	}
}

func projectFields(p *pass) (any, bool) {
	rows, ok := p.current.([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		if r, ok := row.(Record); ok {
			out[i] = r.Project(p.important)
			continue
		}
		out[i] = row
	}
	return out, true
}

func headRows(p *pass) (any, bool) {
	rows, ok := p.current.([]any)
	if !ok || len(rows) <= maxRows {
		return nil, false
	}
	return rows[:maxRows], true
}

func truncateStrings(p *pass) (any, bool) {
	r, ok := p.current.(Record)
	if !ok {
		return nil, false
	}
	out := slices.Clone(r)
	changed := false
	for i, f := range out {
		s, ok := f.Value.(string)
		if !ok || slices.Contains(p.important, f.Key) || utf8.RuneCountInString(s) <= maxStringRunes {
			continue
		}
		out[i].Value = string([]rune(s)[:maxStringRunes]) + Ellipsis
		changed = true
	}
	return out, changed
}

func dropFields(p *pass) (any, bool) {
	r, ok := p.current.(Record)
	if !ok {
		return nil, false
	}
	changed := false
	for _, key := range r.Keys() {
		if slices.Contains(p.important, key) {
			continue
		}
		r = r.Without(key)
		changed = true
		if p.fits(r) {
			break
		}
	}
	return r, changed
}

func fallbackSubset(p *pass) (any, bool) {
	r, ok := p.original.(Record)
	if !ok {
		return nil, false
	}
	return r.subset(p.important), true
}

func (b *Budgeter) truncateText(p *pass) (any, bool) {
	s, ok := p.current.(string)
	if !ok {
		return nil, false
	}
	return b.Truncate(s), true
}

// normalize converts maps into Records and slices into []any so the
// strategies see a small set of shapes. Other maps, slices and structs go
// through their JSON form.
func normalize(data any) any {
	switch v := data.(type) {
	case map[string]any:
		return RecordFromMap(v)
	case []Record:
		out := make([]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = RecordFromMap(m)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case Record, string, []byte, nil:
		return data
	}
	if !composite(data) {
		return data
	}
	v, err := viaJSON(data)
	if err != nil {
		return data
	}
	return v
}

func composite(data any) bool {
	t := reflect.TypeOf(data)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

// viaJSON renders data and reads it back with objects as Records in
// rendered key order, so struct fields keep their declaration order.
func viaJSON(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return decodeValue(dec)
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('{'):
		var r Record
		for dec.More() {
			key, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			r = append(r, Field{Key: key.(string), Value: v})
		}
		_, err := dec.Token()
		return r, err
	case json.Delim('['):
		out := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		_, err := dec.Token()
		return out, err
	}
	return tok, nil
}

// restore gives typed record sequences back their slice type.
func restore(original, reduced any) any {
	switch original.(type) {
	case []Record, []map[string]any:
	default:
		return reduced
	}
	rows, ok := reduced.([]any)
	if !ok {
		return reduced
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if r, ok := row.(Record); ok {
			out = append(out, r)
		}
	}
	return out
}
