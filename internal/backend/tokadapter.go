package backend

import (
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/gomlx/go-huggingface/tokenizers/hftokenizer"

	"tokend/internal/mlm"
)

// hfTokenizer adapts the hftokenizer library to the mlm.Tokenizer contract.
type hfTokenizer struct {
	hf *hftokenizer.Tokenizer
}

var _ mlm.Tokenizer = (*hfTokenizer)(nil)

func (t *hfTokenizer) Tokenize(text string) ([]string, []int) {
	ids := t.hf.Encode(text)
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tok, ok := t.hf.IDToToken(id)
		if !ok {
			tok = "" // out-of-vocab id, should not happen after Encode
		}
		tokens[i] = tok
	}
	return tokens, ids
}

func (t *hfTokenizer) Detokenize(tokens []string) string {
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if id, ok := t.hf.TokenToID(tok); ok {
			ids = append(ids, id)
		}
	}
	return t.hf.Decode(ids)
}

func (t *hfTokenizer) IDToToken(id int) (string, bool) {
	return t.hf.IDToToken(id)
}

func (t *hfTokenizer) SpecialTokenID(tok api.SpecialToken) (int, error) {
	return t.hf.SpecialTokenID(tok)
}
