// Package budget keeps outbound replies within a token budget.
//
// A Budgeter measures the JSON rendering of a reply and, when it is too
// large, reduces it through an ordered list of strategies until it fits.
// Important fields survive every reduction step that can keep them.
package budget

import (
	"encoding/json"
	"strings"
)

const (
	// DefaultMaxTokens is the budget used when none is configured.
	DefaultMaxTokens = 800

	// Ellipsis marks text that was cut short.
	Ellipsis = "..."
)

// Option configures a Budgeter.
type Option func(*Budgeter)

// WithReductionHook registers fn to be called with the name of every
// strategy that changed a payload.
func WithReductionHook(fn func(strategy string)) Option {
	return func(b *Budgeter) { b.onReduce = fn }
}

// Budgeter is safe for concurrent use.
type Budgeter struct {
	tok        Tokenizer
	maxTokens  int
	strategies []strategy
	onReduce   func(string)
}

// New creates a Budgeter. A nil tokenizer selects the piece tokenizer and a
// non-positive budget selects DefaultMaxTokens.
func New(tok Tokenizer, maxTokens int, opts ...Option) *Budgeter {
	if tok == nil {
		tok = NewPieceTokenizer()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	b := &Budgeter{tok: tok, maxTokens: maxTokens}
	for _, opt := range opts {
		opt(b)
	}
	b.strategies = b.pipeline()
	return b
}

// MaxTokens returns the configured budget.
func (b *Budgeter) MaxTokens() int { return b.maxTokens }

// Count returns the number of tokens in text.
func (b *Budgeter) Count(text string) int {
	if text == "" {
		return 0
	}
	return b.tok.Count(text)
}

// Fits reports whether the JSON rendering of data is within the budget.
// Data that cannot be rendered never fits.
func (b *Budgeter) Fits(data any) bool {
	ok, _ := b.fits(data)
	return ok
}

func (b *Budgeter) fits(data any) (bool, error) {
	if s, ok := data.(string); ok {
		return b.Count(s) <= b.maxTokens, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return false, err
	}
	return b.Count(string(raw)) <= b.maxTokens, nil
}

// Optimize returns data reduced to fit the budget. Data already within the
// budget is returned unchanged.
//
// Sequences are projected onto the important keys and then cut to their
// first rows. Records have long non-important strings shortened, then
// non-important keys dropped in order, and finally fall back to the
// important keys of the original. Strings are truncated. Maps are treated
// as records with sorted keys, and come back as Records when reduced.
// Structs and other maps and slices are read through their JSON form;
// reduced structs come back as Records and reduced slices as []any.
// Optimize never fails; the last reduction is returned even when it is
// still over budget.
func (b *Budgeter) Optimize(data any, important ...string) any {
	if ok, _ := b.fits(data); ok {
		return data
	}

	p := &pass{
		original:  normalize(data),
		important: important,
		fits:      b.Fits,
	}
	p.current = p.original

	for _, s := range b.strategies {
		next, changed := s.apply(p)
		if !changed {
			continue
		}
		p.current = next
		if b.onReduce != nil {
			b.onReduce(s.name)
		}
		if b.Fits(p.current) {
			break
		}
	}
	return restore(data, p.current)
}

// Truncate cuts text to the first MaxTokens tokens and appends Ellipsis.
// Text within the budget is returned unchanged.
func (b *Budgeter) Truncate(text string) string {
	n, span := b.segments(text)
	if n <= b.maxTokens {
		return text
	}
	return span(0, b.maxTokens) + Ellipsis
}

// Chunk splits text into consecutive pieces of at most size tokens. A
// non-positive size selects MaxTokens.
func (b *Budgeter) Chunk(text string, size int) []string {
	if size <= 0 {
		size = b.maxTokens
	}
	n, span := b.segments(text)
	if n <= size {
		return []string{text}
	}

	chunks := make([]string, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		chunks = append(chunks, span(start, min(start+size, n)))
	}
	return chunks
}

// segments returns the token count of text and a function rendering the
// tokens in [start, end).
func (b *Budgeter) segments(text string) (int, func(start, end int) string) {
	if s, ok := b.tok.(Splitter); ok {
		parts := s.Split(text)
		return len(parts), func(start, end int) string {
			return strings.Join(parts[start:end], "")
		}
	}
	tokens := b.tok.Encode(text)
	return len(tokens), func(start, end int) string {
		return b.tok.Decode(tokens[start:end])
	}
}
