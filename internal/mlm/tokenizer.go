// Package mlm holds the tokenization/alignment and masked-prediction engines.
// It talks to tokenizers and models through small local contracts so the HTTP
// layer and tests can run against fakes.
package mlm

import (
	"context"
	"strings"

	"github.com/gomlx/go-huggingface/tokenizers/api"
)

// Tokenizer is the subset of tokenizer behavior the engines need.
// Tokenize must not add boundary markers; the prediction engine adds them.
type Tokenizer interface {
	// Tokenize segments text into raw sub-word tokens (markers included)
	// and their vocabulary ids.
	Tokenize(text string) (tokens []string, ids []int)
	// Detokenize applies the tokenizer's native decode rule to raw tokens.
	Detokenize(tokens []string) string
	IDToToken(id int) (string, bool)
	// SpecialTokenID resolves a special token to its vocabulary id.
	SpecialTokenID(tok api.SpecialToken) (int, error)
}

// Model runs one forward pass and returns per-position logits over the
// full vocabulary.
type Model interface {
	Forward(ctx context.Context, ids []int) ([][]float32, error)
}

// MarkerScheme identifies the segmentation-marker convention of a tokenizer.
// It is detected once at load time, not re-dispatched per token.
type MarkerScheme int

const (
	// MarkerNone: tokens carry no segmentation markers.
	MarkerNone MarkerScheme = iota
	// MarkerWordPiece: "##" prefix marks a continuation piece (BERT).
	MarkerWordPiece
	// MarkerByteBPE: "Ġ" prefix marks a word start with a leading space
	// (GPT-2, RoBERTa).
	MarkerByteBPE
	// MarkerMetaspace: "▁" prefix marks a word start with a leading space
	// (SentencePiece).
	MarkerMetaspace
)

const (
	wordPiecePrefix = "##"
	byteBPEPrefix   = "Ġ"
	metaspacePrefix = "▁"
)

func (s MarkerScheme) String() string {
	switch s {
	case MarkerWordPiece:
		return "wordpiece"
	case MarkerByteBPE:
		return "bytebpe"
	case MarkerMetaspace:
		return "metaspace"
	default:
		return "none"
	}
}

// DetectMarkerScheme probes the tokenizer with a two-word sample and picks
// the scheme from the markers it emits.
func DetectMarkerScheme(t Tokenizer) MarkerScheme {
	tokens, _ := t.Tokenize("hello world unbelievable")
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, byteBPEPrefix):
			return MarkerByteBPE
		case strings.HasPrefix(tok, metaspacePrefix):
			return MarkerMetaspace
		case strings.HasPrefix(tok, wordPiecePrefix):
			return MarkerWordPiece
		}
	}
	return MarkerNone
}

// clean strips the scheme's marker from a raw token and classifies it.
// display is the cleaned form (with a literal leading space for word starts
// that carry a space marker); subword is true for continuation pieces.
func (s MarkerScheme) clean(raw string, first bool) (display string, subword bool) {
	switch s {
	case MarkerWordPiece:
		if rest, ok := strings.CutPrefix(raw, wordPiecePrefix); ok {
			return rest, true
		}
		return raw, false
	case MarkerByteBPE:
		if rest, ok := strings.CutPrefix(raw, byteBPEPrefix); ok {
			if rest == "" {
				return "", false
			}
			return " " + rest, false
		}
		// An unmarked token continues the previous word, except at the
		// start of the sequence.
		return raw, !first
	case MarkerMetaspace:
		if rest, ok := strings.CutPrefix(raw, metaspacePrefix); ok {
			if rest == "" {
				return "", false
			}
			return " " + rest, false
		}
		return raw, !first
	default:
		return raw, false
	}
}
