package budget

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
)

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered key/value record. Keys are unique; order is the
// order of insertion and is preserved when rendering.
type Record []Field

// RecordFromMap converts a map into a Record with keys in sorted order.
func RecordFromMap(m map[string]any) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := make(Record, 0, len(keys))
	for _, k := range keys {
		r = append(r, Field{Key: k, Value: m[k]})
	}
	return r
}

func (r Record) index(key string) int {
	return slices.IndexFunc(r, func(f Field) bool { return f.Key == key })
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	if i := r.index(key); i >= 0 {
		return r[i].Value, true
	}
	return nil, false
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	return r.index(key) >= 0
}

// Keys returns the keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// With returns a copy of r where key holds value. An existing key keeps its
// position; a new key is appended.
func (r Record) With(key string, value any) Record {
	out := slices.Clone(r)
	if i := out.index(key); i >= 0 {
		out[i].Value = value
		return out
	}
	return append(out, Field{Key: key, Value: value})
}

// Without returns a copy of r with key removed.
func (r Record) Without(key string) Record {
	out := slices.Clone(r)
	if i := out.index(key); i >= 0 {
		out = slices.Delete(out, i, i+1)
	}
	return out
}

// Project keeps the fields whose key is in keys, in record order.
func (r Record) Project(keys []string) Record {
	out := make(Record, 0, len(keys))
	for _, f := range r {
		if slices.Contains(keys, f.Key) {
			out = append(out, f)
		}
	}
	return out
}

// subset picks keys from r in the order given by keys.
func (r Record) subset(keys []string) Record {
	out := make(Record, 0, len(keys))
	for _, k := range keys {
		if v, ok := r.Get(k); ok && !out.Has(k) {
			out = append(out, Field{Key: k, Value: v})
		}
	}
	return out
}

// Map returns the record as a plain map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Key] = f.Value
	}
	return m
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
