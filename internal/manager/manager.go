// Package manager ties the registry, the language selector, and the
// engines together into the service the HTTP layer exposes.
package manager

import (
	"context"

	"github.com/rs/zerolog"

	"tokend/internal/langid"
	"tokend/internal/mlm"
	"tokend/internal/registry"
	"tokend/pkg/types"
)

const (
	// topKTokens is the candidate count for /predict_tokens.
	topKTokens = 5
	// topKContext is the candidate count for /predict_context and the
	// MLM smoke check.
	topKContext = 3

	// testSampleText feeds the fixed-input smoke endpoints.
	testSampleText = "Click the extension icon in your toolbar"
)

// Selector resolves text to a language key.
type Selector interface {
	Select(text string) string
}

// Manager serves all request operations over an immutable registry.
type Manager struct {
	reg         *registry.Registry
	sel         Selector
	emb         registry.Embedder
	defaultLang string
	log         zerolog.Logger
}

// New wires a Manager. emb may be nil; /embed_text then reports the backend
// as unavailable.
func New(reg *registry.Registry, sel Selector, emb registry.Embedder, defaultLang string, log zerolog.Logger) *Manager {
	if sel == nil {
		sel = langid.New(reg.Languages(), defaultLang, log)
	}
	return &Manager{reg: reg, sel: sel, emb: emb, defaultLang: defaultLang, log: log}
}

// Ready reports whether at least one model is usable.
func (m *Manager) Ready() bool { return m.reg.Len() > 0 }

// Health summarizes the load state per configured language.
func (m *Manager) Health() types.HealthResponse {
	return types.HealthResponse{
		Status:               "healthy",
		ModelsLoaded:         m.reg.LoadedByLang(),
		AvailableLanguages:   m.reg.Languages(),
		ModelNames:           m.reg.Names(),
		EmbeddingModelLoaded: m.emb != nil,
	}
}

// resolve picks the entry for the text's language, falling back to the
// default key when the detected language has no loaded model.
func (m *Manager) resolve(text string) (string, *registry.Entry, error) {
	lang := m.sel.Select(text)
	if e, ok := m.reg.Lookup(lang); ok {
		return lang, e, nil
	}
	if lang != m.defaultLang {
		if e, ok := m.reg.Lookup(m.defaultLang); ok {
			m.log.Debug().Str("detected", lang).Msg("no model for detected language, using default")
			return m.defaultLang, e, nil
		}
	}
	return lang, nil, ErrModelNotLoaded("model for language " + lang)
}

// TokenizeDisplay aligns sub-word tokens onto the reconstructed text.
func (m *Manager) TokenizeDisplay(ctx context.Context, text string) (types.TokenizeDisplayResponse, error) {
	lang, e, err := m.resolve(text)
	if err != nil {
		return types.TokenizeDisplayResponse{}, err
	}
	res, err := mlm.TokenizeForDisplay(e.Tok, e.Scheme, text)
	if err != nil {
		return types.TokenizeDisplayResponse{}, err
	}
	if !res.Match {
		m.log.Info().Str("lang", lang).Msg("reconstruction does not match input text")
	}
	if res.AlignmentMisses > 0 {
		m.log.Warn().Int("misses", res.AlignmentMisses).Str("lang", lang).
			Msg("tokens dropped during span alignment")
	}

	positions := make([]types.TokenPosition, 0, len(res.Tokens))
	for _, span := range res.Tokens {
		positions = append(positions, types.TokenPosition{
			Token:         span.Token,
			TokenID:       span.TokenID,
			Start:         span.Start,
			End:           span.End,
			OriginalToken: span.OriginalToken,
			IsSubword:     span.IsSubword,
		})
	}
	return types.TokenizeDisplayResponse{
		Success:          true,
		Text:             text,
		Reconstructed:    res.Reconstructed,
		Match:            res.Match,
		TokenCount:       len(positions),
		TokenPositions:   positions,
		OriginalTokens:   res.OriginalTokens,
		AlignmentMisses:  res.AlignmentMisses,
		DetectedLanguage: lang,
		ModelUsed:        e.Name,
	}, nil
}

// PredictTokens returns the top-5 candidates per masked position.
func (m *Manager) PredictTokens(ctx context.Context, text string, positions []int) (types.PredictResponse, error) {
	return m.predict(ctx, text, positions, topKTokens)
}

// PredictContext returns the top-3 candidates per masked position.
func (m *Manager) PredictContext(ctx context.Context, text string, positions []int) (types.PredictResponse, error) {
	return m.predict(ctx, text, positions, topKContext)
}

func (m *Manager) predict(ctx context.Context, text string, positions []int, topK int) (types.PredictResponse, error) {
	lang, e, err := m.resolve(text)
	if err != nil {
		return types.PredictResponse{}, err
	}
	preds, rawTokens, err := mlm.Predict(ctx, e.Tok, e.Model, text, positions, topK)
	if err != nil {
		return types.PredictResponse{}, err
	}

	entries := make([]types.PositionPredictions, 0, len(preds))
	for _, p := range preds {
		entry := types.PositionPredictions{
			Position:            p.Position,
			OriginalToken:       p.OriginalToken,
			OriginalProbability: p.OriginalProbability,
			Predictions:         make([]types.PredictionCandidate, 0, len(p.Candidates)),
		}
		for _, c := range p.Candidates {
			entry.Predictions = append(entry.Predictions, types.PredictionCandidate{
				Token:       c.Token,
				TokenID:     c.TokenID,
				Probability: c.Probability,
			})
		}
		entries = append(entries, entry)
	}
	return types.PredictResponse{
		Success:          true,
		Text:             text,
		OriginalTokens:   rawTokens,
		Predictions:      entries,
		DetectedLanguage: lang,
		ModelUsed:        e.Name,
	}, nil
}

// Embed returns one vector per text via the embedding backend.
func (m *Manager) Embed(ctx context.Context, texts []string, task string) (types.EmbedResponse, error) {
	if m.emb == nil {
		return types.EmbedResponse{}, ErrModelNotLoaded("embedding model")
	}
	if task == "" {
		task = "text-matching"
	}
	vecs, dim, err := m.emb.Embed(ctx, texts)
	if err != nil {
		return types.EmbedResponse{}, err
	}
	return types.EmbedResponse{
		Success:    true,
		Embeddings: vecs,
		Dimension:  dim,
		Task:       task,
	}, nil
}

// Test runs the display tokenization smoke check on a fixed sentence.
func (m *Manager) Test(ctx context.Context) (types.TokenizeDisplayResponse, error) {
	return m.TokenizeDisplay(ctx, testSampleText)
}

// TestMLM runs the masked-prediction smoke check: first token masked.
func (m *Manager) TestMLM(ctx context.Context) (types.PredictResponse, error) {
	return m.predict(ctx, testSampleText, []int{0}, topKContext)
}
