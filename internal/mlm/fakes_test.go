package mlm

import (
	"context"
	"strings"

	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/pkg/errors"
)

// fakeTokenizer simulates the three marker conventions without any real
// vocabulary. Word splits into sub-word pieces are configured per word.
type fakeTokenizer struct {
	scheme  MarkerScheme
	splits  map[string][]string // word -> pieces (before markers)
	special map[api.SpecialToken]int

	vocab  map[string]int
	nextID int

	tokenizeCalls int
}

func newFakeTokenizer(scheme MarkerScheme) *fakeTokenizer {
	return &fakeTokenizer{
		scheme:  scheme,
		splits:  map[string][]string{},
		special: map[api.SpecialToken]int{},
		vocab:   map[string]int{},
		nextID:  100, // leave room for special ids below 100
	}
}

func (f *fakeTokenizer) ensureID(tok string) int {
	if id, ok := f.vocab[tok]; ok {
		return id
	}
	id := f.nextID
	f.nextID++
	f.vocab[tok] = id
	return id
}

func (f *fakeTokenizer) Tokenize(text string) ([]string, []int) {
	f.tokenizeCalls++
	var tokens []string
	for wi, word := range strings.Fields(text) {
		pieces := f.splits[word]
		if len(pieces) == 0 {
			pieces = []string{word}
		}
		for pi, piece := range pieces {
			raw := piece
			switch f.scheme {
			case MarkerWordPiece:
				if pi > 0 {
					raw = wordPiecePrefix + piece
				}
			case MarkerByteBPE:
				if pi == 0 && wi > 0 {
					raw = byteBPEPrefix + piece
				}
			case MarkerMetaspace:
				if pi == 0 {
					raw = metaspacePrefix + piece
				}
			}
			tokens = append(tokens, raw)
		}
	}
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		ids[i] = f.ensureID(t)
	}
	return tokens, ids
}

func (f *fakeTokenizer) Detokenize(tokens []string) string {
	var b strings.Builder
	switch f.scheme {
	case MarkerWordPiece:
		for i, t := range tokens {
			if rest, ok := strings.CutPrefix(t, wordPiecePrefix); ok {
				b.WriteString(rest)
			} else {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
	case MarkerByteBPE:
		for _, t := range tokens {
			b.WriteString(strings.ReplaceAll(t, byteBPEPrefix, " "))
		}
	case MarkerMetaspace:
		for _, t := range tokens {
			b.WriteString(strings.ReplaceAll(t, metaspacePrefix, " "))
		}
		return strings.TrimPrefix(b.String(), " ")
	default:
		for i, t := range tokens {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
	}
	return b.String()
}

func (f *fakeTokenizer) IDToToken(id int) (string, bool) {
	for tok, tid := range f.vocab {
		if tid == id {
			return tok, true
		}
	}
	return "", false
}

func (f *fakeTokenizer) SpecialTokenID(tok api.SpecialToken) (int, error) {
	if id, ok := f.special[tok]; ok {
		return id, nil
	}
	return 0, errors.Errorf("special token %v not registered", tok)
}

// cannedTokenizer returns fixed outputs, for alignment edge cases.
type cannedTokenizer struct {
	tokens        []string
	ids           []int
	reconstructed string
}

func (c *cannedTokenizer) Tokenize(string) ([]string, []int) { return c.tokens, c.ids }
func (c *cannedTokenizer) Detokenize([]string) string        { return c.reconstructed }
func (c *cannedTokenizer) IDToToken(int) (string, bool)      { return "", false }
func (c *cannedTokenizer) SpecialTokenID(api.SpecialToken) (int, error) {
	return 0, errors.New("none")
}

// fakeModel returns near-uniform logits with configurable peaks per
// sequence position.
type fakeModel struct {
	vocabSize int
	peaks     map[int]int // sequence position -> vocab id to boost
	calls     int
	err       error
}

func (m *fakeModel) Forward(_ context.Context, ids []int) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	logits := make([][]float32, len(ids))
	for pos := range ids {
		row := make([]float32, m.vocabSize)
		if peak, ok := m.peaks[pos]; ok && peak < m.vocabSize {
			row[peak] = 8
			// A runner-up so ordering is observable.
			row[(peak+1)%m.vocabSize] = 4
		}
		logits[pos] = row
	}
	return logits, nil
}
