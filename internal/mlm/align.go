package mlm

import (
	"strings"

	"github.com/pkg/errors"
)

// TokenSpan is one sub-word token aligned to a character span of the
// reconstructed text. Start/End are byte offsets, [Start, End).
type TokenSpan struct {
	Token         string
	TokenID       int
	Start         int
	End           int
	OriginalToken string
	IsSubword     bool
}

// DisplayResult is the outcome of TokenizeForDisplay.
type DisplayResult struct {
	Tokens         []TokenSpan
	OriginalTokens []string
	Reconstructed  string
	// Match reports whether the trimmed reconstruction equals the trimmed
	// input. Mismatches are expected for some tokenizers and non-fatal.
	Match bool
	// AlignmentMisses counts tokens dropped because their cleaned form
	// could not be located in the reconstruction.
	AlignmentMisses int
}

// TokenizeForDisplay segments text, rebuilds the surface string with the
// tokenizer's own decode rule, and maps each token back onto a span of that
// string with a forward-only scan. Tokens that cannot be located are dropped
// and counted, never an error.
func TokenizeForDisplay(tok Tokenizer, scheme MarkerScheme, text string) (*DisplayResult, error) {
	if text == "" {
		return nil, errors.New("no text provided")
	}
	rawTokens, ids := tok.Tokenize(text)
	if len(rawTokens) != len(ids) {
		return nil, errors.Errorf("tokenizer returned %d tokens but %d ids", len(rawTokens), len(ids))
	}
	reconstructed := tok.Detokenize(rawTokens)

	res := &DisplayResult{
		OriginalTokens: rawTokens,
		Reconstructed:  reconstructed,
		Match:          strings.TrimSpace(text) == strings.TrimSpace(reconstructed),
	}

	cursor := 0
	for i, raw := range rawTokens {
		display, subword := scheme.clean(raw, i == 0)
		if display == "" {
			// Pure marker token: nothing to locate, cursor stays put.
			continue
		}
		start, end, ok := findForward(reconstructed, display, cursor)
		if !ok {
			res.AlignmentMisses++
			continue
		}
		res.Tokens = append(res.Tokens, TokenSpan{
			Token:         display,
			TokenID:       ids[i],
			Start:         start,
			End:           end,
			OriginalToken: raw,
			IsSubword:     subword,
		})
		cursor = end
	}
	return res, nil
}

// findForward locates needle in haystack at or after from. A needle with a
// leading space is retried without it, which covers the first token when the
// decode rule trims the prefix space.
func findForward(haystack, needle string, from int) (start, end int, ok bool) {
	if from > len(haystack) {
		return 0, 0, false
	}
	if idx := strings.Index(haystack[from:], needle); idx >= 0 {
		start = from + idx
		return start, start + len(needle), true
	}
	if trimmed := strings.TrimPrefix(needle, " "); trimmed != "" && trimmed != needle {
		if idx := strings.Index(haystack[from:], trimmed); idx >= 0 {
			start = from + idx
			return start, start + len(trimmed), true
		}
	}
	return 0, 0, false
}
