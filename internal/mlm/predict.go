package mlm

import (
	"context"

	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/pkg/errors"
)

// Candidate is one ranked replacement token for a masked position.
type Candidate struct {
	Token       string
	TokenID     int
	Probability float64
}

// PositionPrediction holds the candidates for one requested position, keyed
// by the position as the caller supplied it (without boundary markers).
type PositionPrediction struct {
	Position            int
	OriginalToken       string
	OriginalProbability float64
	Candidates          []Candidate
}

// boundary holds the sequence-boundary convention of a tokenizer: a BOS/EOS
// pair when the vocabulary has one, otherwise the CLS/SEP pair.
type boundary struct {
	startID, endID int
}

// resolveBoundary picks the boundary-marker convention once per call. Both
// conventions prepend exactly one marker, so the position offset is 1.
func resolveBoundary(tok Tokenizer) (boundary, error) {
	startID, err := tok.SpecialTokenID(api.TokBeginningOfSentence)
	if err != nil {
		startID, err = tok.SpecialTokenID(api.TokClassification)
		if err != nil {
			return boundary{}, errors.Wrap(err, "tokenizer has neither BOS nor CLS")
		}
	}
	endID, err := tok.SpecialTokenID(api.TokEndOfSentence)
	if err != nil {
		return boundary{}, errors.Wrap(err, "tokenizer has no end-of-sequence token")
	}
	return boundary{startID: startID, endID: endID}, nil
}

// Predict masks the requested positions, runs one forward pass over the
// marked sequence, and returns the top-k candidates per position.
//
// Positions index the sequence without boundary markers; out-of-range
// positions are dropped silently. An empty positions list returns an empty
// result and no error.
func Predict(ctx context.Context, tok Tokenizer, model Model, text string, positions []int, topK int) ([]PositionPrediction, []string, error) {
	if text == "" {
		return nil, nil, errors.New("no text provided")
	}
	rawTokens, ids := tok.Tokenize(text)
	if len(positions) == 0 {
		return []PositionPrediction{}, rawTokens, nil
	}

	maskID, err := tok.SpecialTokenID(api.TokMask)
	if err != nil {
		return nil, nil, errors.Wrap(err, "tokenizer has no mask token")
	}
	bnd, err := resolveBoundary(tok)
	if err != nil {
		return nil, nil, err
	}
	const offset = 1 // one prepended boundary marker in both conventions

	marked := make([]int, 0, len(ids)+2)
	marked = append(marked, bnd.startID)
	marked = append(marked, ids...)
	marked = append(marked, bnd.endID)

	// Mask every in-range position in a single sequence so one forward
	// pass serves all of them.
	masked := append([]int(nil), marked...)
	valid := positions[:0:0]
	for _, p := range positions {
		adj := p + offset
		if adj < offset || adj >= len(marked)-1 {
			continue
		}
		masked[adj] = maskID
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return []PositionPrediction{}, rawTokens, nil
	}

	logits, err := model.Forward(ctx, masked)
	if err != nil {
		return nil, nil, errors.Wrap(err, "forward pass failed")
	}
	if len(logits) < len(marked) {
		return nil, nil, errors.Errorf("model returned logits for %d positions, sequence has %d", len(logits), len(marked))
	}

	results := make([]PositionPrediction, 0, len(valid))
	for _, p := range valid {
		row := logits[p+offset]
		probs := softmax(row)
		top := topKIndices(probs, topK)

		pred := PositionPrediction{Position: p}
		if p < len(rawTokens) {
			pred.OriginalToken = rawTokens[p]
			if origID := ids[p]; origID >= 0 && origID < len(probs) {
				pred.OriginalProbability = probs[origID]
			}
		}
		for _, idx := range top {
			token, _ := tok.IDToToken(idx)
			pred.Candidates = append(pred.Candidates, Candidate{
				Token:       token,
				TokenID:     idx,
				Probability: probs[idx],
			})
		}
		results = append(results, pred)
	}
	return results, rawTokens, nil
}
