package manager

import (
	"context"
	"strings"
	"testing"

	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tokend/internal/mlm"
	"tokend/internal/registry"
)

// wordTokenizer splits on whitespace with no markers; ids are assigned in
// first-seen order starting at 10.
type wordTokenizer struct {
	vocab  map[string]int
	nextID int
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{vocab: map[string]int{}, nextID: 10}
}

func (w *wordTokenizer) Tokenize(text string) ([]string, []int) {
	tokens := strings.Fields(text)
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		id, ok := w.vocab[tok]
		if !ok {
			id = w.nextID
			w.nextID++
			w.vocab[tok] = id
		}
		ids[i] = id
	}
	return tokens, ids
}

func (w *wordTokenizer) Detokenize(tokens []string) string { return strings.Join(tokens, " ") }

func (w *wordTokenizer) IDToToken(id int) (string, bool) {
	for tok, tid := range w.vocab {
		if tid == id {
			return tok, true
		}
	}
	return "", false
}

func (w *wordTokenizer) SpecialTokenID(tok api.SpecialToken) (int, error) {
	switch tok {
	case api.TokClassification:
		return 0, nil
	case api.TokEndOfSentence:
		return 1, nil
	case api.TokMask:
		return 2, nil
	}
	return 0, errors.New("not registered")
}

type flatModel struct{ vocabSize int }

func (f *flatModel) Forward(_ context.Context, ids []int) ([][]float32, error) {
	rows := make([][]float32, len(ids))
	for i := range rows {
		rows[i] = make([]float32, f.vocabSize)
	}
	return rows, nil
}

type fixedSelector struct{ lang string }

func (s fixedSelector) Select(string) string { return s.lang }

func defaultOnlyManager(t *testing.T, detected string) *Manager {
	t.Helper()
	reg := registry.New([]string{"default", "en", "es"})
	reg.Register(&registry.Entry{
		Lang:   "default",
		Name:   "roberta-base",
		Tok:    newWordTokenizer(),
		Scheme: mlm.MarkerNone,
		Model:  &flatModel{vocabSize: 64},
	})
	return New(reg, fixedSelector{lang: detected}, nil, "default", zerolog.Nop())
}

func TestHealthOnlyFallbackLoaded(t *testing.T) {
	m := defaultOnlyManager(t, "default")
	h := m.Health()
	if h.Status != "healthy" { t.Fatalf("status=%q", h.Status) }
	if len(h.AvailableLanguages) != 1 || h.AvailableLanguages[0] != "default" {
		t.Fatalf("available=%v", h.AvailableLanguages)
	}
	if !h.ModelsLoaded["default"] || h.ModelsLoaded["en"] || h.ModelsLoaded["es"] {
		t.Fatalf("loaded=%v", h.ModelsLoaded)
	}
	if h.EmbeddingModelLoaded { t.Fatalf("no embedding model was wired") }
	if h.ModelNames["default"] != "roberta-base" { t.Fatalf("names=%v", h.ModelNames) }
}

func TestDetectedLanguageFallsBackToDefault(t *testing.T) {
	m := defaultOnlyManager(t, "es")
	resp, err := m.TokenizeDisplay(context.Background(), "Hola mundo estupendo")
	if err != nil { t.Fatalf("tokenize: %v", err) }
	if resp.DetectedLanguage != "default" { t.Fatalf("lang=%q", resp.DetectedLanguage) }
	if resp.ModelUsed != "roberta-base" { t.Fatalf("model=%q", resp.ModelUsed) }
}

func TestNothingLoadedIsModelNotLoaded(t *testing.T) {
	reg := registry.New([]string{"default"})
	m := New(reg, fixedSelector{lang: "default"}, nil, "default", zerolog.Nop())
	_, err := m.TokenizeDisplay(context.Background(), "hello")
	if !IsModelNotLoaded(err) { t.Fatalf("err=%v", err) }
	if m.Ready() { t.Fatalf("manager should not be ready") }
}

func TestTokenizeDisplayShape(t *testing.T) {
	m := defaultOnlyManager(t, "default")
	resp, err := m.TokenizeDisplay(context.Background(), "Hello world!")
	if err != nil { t.Fatalf("tokenize: %v", err) }
	if !resp.Success { t.Fatalf("success=false") }
	if !resp.Match { t.Fatalf("match=false for %q vs %q", resp.Text, resp.Reconstructed) }
	if resp.TokenCount != 2 { t.Fatalf("token_count=%d", resp.TokenCount) }
	if resp.AlignmentMisses != 0 { t.Fatalf("misses=%d", resp.AlignmentMisses) }
}

func TestPredictTokensTopFive(t *testing.T) {
	m := defaultOnlyManager(t, "default")
	resp, err := m.PredictTokens(context.Background(), testSampleText, []int{0})
	if err != nil { t.Fatalf("predict: %v", err) }
	if len(resp.Predictions) != 1 { t.Fatalf("predictions=%d", len(resp.Predictions)) }
	p := resp.Predictions[0]
	if p.Position != 0 { t.Fatalf("position=%d", p.Position) }
	if len(p.Predictions) != 5 { t.Fatalf("candidates=%d", len(p.Predictions)) }
	for i, c := range p.Predictions {
		if c.Probability < 0 || c.Probability > 1 { t.Fatalf("probability=%f", c.Probability) }
		if i > 0 && c.Probability > p.Predictions[i-1].Probability {
			t.Fatalf("candidates not sorted at %d", i)
		}
	}
}

func TestPredictOutOfRangeYieldsEmpty(t *testing.T) {
	m := defaultOnlyManager(t, "default")
	resp, err := m.PredictTokens(context.Background(), testSampleText, []int{999})
	if err != nil { t.Fatalf("predict: %v", err) }
	if len(resp.Predictions) != 0 { t.Fatalf("predictions=%d", len(resp.Predictions)) }
}

func TestTestMLMTopThree(t *testing.T) {
	m := defaultOnlyManager(t, "default")
	resp, err := m.TestMLM(context.Background())
	if err != nil { t.Fatalf("test_mlm: %v", err) }
	if len(resp.Predictions) != 1 { t.Fatalf("predictions=%d", len(resp.Predictions)) }
	if got := len(resp.Predictions[0].Predictions); got != 3 { t.Fatalf("candidates=%d", got) }
}

func TestEmbedWithoutBackend(t *testing.T) {
	m := defaultOnlyManager(t, "default")
	_, err := m.Embed(context.Background(), []string{"hello"}, "")
	if !IsModelNotLoaded(err) { t.Fatalf("err=%v", err) }
}

type cannedEmbedder struct{ dim int }

func (c cannedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, int, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, c.dim)
	}
	return out, c.dim, nil
}

func TestEmbedDefaults(t *testing.T) {
	reg := registry.New([]string{"default"})
	reg.Register(&registry.Entry{Lang: "default", Name: "m", Tok: newWordTokenizer(), Model: &flatModel{vocabSize: 8}})
	m := New(reg, fixedSelector{lang: "default"}, cannedEmbedder{dim: 4}, "default", zerolog.Nop())

	resp, err := m.Embed(context.Background(), []string{"a", "b"}, "")
	if err != nil { t.Fatalf("embed: %v", err) }
	if resp.Task != "text-matching" { t.Fatalf("task=%q", resp.Task) }
	if resp.Dimension != 4 || len(resp.Embeddings) != 2 { t.Fatalf("resp=%+v", resp) }
	if !m.Health().EmbeddingModelLoaded { t.Fatalf("embedding should report loaded") }
}
