package budget

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultModel selects the BPE tables used for counting.
const DefaultModel = "gpt-3.5-turbo"

// Tokenizer measures and splits text in tokens. Implementations must be
// deterministic within a process.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Count(text string) int
}

// Splitter is implemented by tokenizers that can cut text into its token
// pieces without an id table. The budgeter truncates and chunks with it
// when available.
type Splitter interface {
	Split(text string) []string
}

// NewTokenizer returns the BPE tokenizer for model, or the piece tokenizer
// when the BPE tables cannot be loaded.
func NewTokenizer(model string) Tokenizer {
	if model == "" {
		model = DefaultModel
	}
	tk, err := NewTiktoken(model)
	if err != nil {
		slog.Warn("BPE tokenizer unavailable, using piece tokenizer",
			slog.String("model", model), slog.String("error", err.Error()))
		return NewPieceTokenizer()
	}
	return tk
}

// Tiktoken counts tokens the way OpenAI models do.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding used by model.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load encoding for %q: %w", model, err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.Encode(text))
}

// Letter runs are capped so long words cost several tokens, roughly as they
// do under BPE.
var piecePattern = regexp.MustCompile(`\s+|\p{L}{1,8}|\p{N}{1,3}|[^\s\p{L}\p{N}]`)

// maxPieceVocab bounds the piece vocabulary between resets.
const maxPieceVocab = 1 << 16

// PieceTokenizer splits text into whitespace runs, short letter and digit
// runs, and single symbols. Ids come from a vocabulary built on first sight.
// The vocabulary starts over when an Encode would take it past its limit,
// so ids decode exactly until the next Encode that triggers a reset.
type PieceTokenizer struct {
	mu     sync.Mutex
	ids    map[string]int
	pieces []string
	limit  int
}

// NewPieceTokenizer creates an empty piece tokenizer.
func NewPieceTokenizer() *PieceTokenizer {
	return &PieceTokenizer{ids: make(map[string]int), limit: maxPieceVocab}
}

// Split returns the pieces of text. It does not touch the vocabulary.
func (p *PieceTokenizer) Split(text string) []string {
	return piecePattern.FindAllString(text, -1)
}

func (p *PieceTokenizer) Encode(text string) []int {
	parts := piecePattern.FindAllString(text, -1)
	out := make([]int, len(parts))

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pieces)+len(parts) > p.limit {
		clear(p.ids)
		p.pieces = p.pieces[:0]
	}
	for i, part := range parts {
		id, ok := p.ids[part]
		if !ok {
			id = len(p.pieces)
			p.ids[part] = id
			p.pieces = append(p.pieces, part)
		}
		out[i] = id
	}
	return out
}

func (p *PieceTokenizer) Decode(tokens []int) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	for _, id := range tokens {
		if id >= 0 && id < len(p.pieces) {
			b.WriteString(p.pieces[id])
		}
	}
	return b.String()
}

func (p *PieceTokenizer) Count(text string) int {
	return len(piecePattern.FindAllStringIndex(text, -1))
}
