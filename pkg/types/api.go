package types

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Overall service status.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Load state per configured language key.
	ModelsLoaded map[string]bool `json:"models_loaded"`
	// Language keys with a usable model, sorted.
	AvailableLanguages []string `json:"available_languages"`
	// Human-readable checkpoint name per loaded language key.
	ModelNames map[string]string `json:"model_names"`
	// Whether the embedding backend is available.
	// example: false
	EmbeddingModelLoaded bool `json:"embedding_model_loaded"`
}

// TokenizeRequest is the body of POST /tokenize_display.
type TokenizeRequest struct {
	// Text to tokenize.
	// example: Hello world!
	Text string `json:"text" example:"Hello world!"`
}

// TokenPosition maps one sub-word token onto a character span of the
// reconstructed text.
type TokenPosition struct {
	// Cleaned display form (marker stripped, leading space for word starts).
	// example: " world"
	Token string `json:"token" example:" world"`
	// Vocabulary id of the token.
	// example: 232
	TokenID int `json:"token_id" example:"232"`
	// Start offset (inclusive) in the reconstructed text.
	Start int `json:"start"`
	// End offset (exclusive) in the reconstructed text.
	End int `json:"end"`
	// Raw token as produced by the tokenizer, markers included.
	// example: "Ġworld"
	OriginalToken string `json:"original_token" example:"Ġworld"`
	// True when the token continues the previous word.
	IsSubword bool `json:"is_subword"`
}

// TokenizeDisplayResponse is returned by POST /tokenize_display and GET /test.
type TokenizeDisplayResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	// Text rebuilt from the raw tokens with the tokenizer's own decode rule.
	Reconstructed string `json:"reconstructed"`
	// Whether trimmed input equals trimmed reconstruction.
	Match      bool `json:"match"`
	TokenCount int  `json:"token_count"`
	// Aligned spans; tokens whose span could not be located are omitted.
	TokenPositions []TokenPosition `json:"token_positions"`
	// Raw token sequence, markers included.
	OriginalTokens []string `json:"original_tokens"`
	// Number of tokens dropped because their span could not be found.
	AlignmentMisses int `json:"alignment_misses"`
	// Language key chosen for this request.
	// example: en
	DetectedLanguage string `json:"detected_language" example:"en"`
	// Checkpoint that served the request.
	// example: roberta-base
	ModelUsed string `json:"model_used" example:"roberta-base"`
}

// PredictRequest is the body of POST /predict_tokens and POST /predict_context.
type PredictRequest struct {
	// Text to run masked prediction on.
	// example: Click the extension icon in your toolbar
	Text string `json:"text" example:"Click the extension icon in your toolbar"`
	// Zero-based token positions to mask, indexed into the sequence without
	// boundary markers.
	// example: [0]
	MaskedPositions []int `json:"masked_positions" example:"[0]"`
}

// PredictionCandidate is one ranked replacement for a masked position.
type PredictionCandidate struct {
	// example: Click
	Token string `json:"token" example:"Click"`
	// example: 12091
	TokenID int `json:"token_id" example:"12091"`
	// Softmax probability over the full vocabulary.
	// example: 0.42
	Probability float64 `json:"probability" example:"0.42"`
}

// PositionPredictions holds the ranked candidates for one requested position.
type PositionPredictions struct {
	// The position as supplied by the caller (without boundary markers).
	Position int `json:"position"`
	// Raw token that was masked.
	OriginalToken string `json:"original_token"`
	// Probability of the original token under the predicted distribution.
	OriginalProbability float64 `json:"original_probability"`
	// Top-k candidates, sorted by descending probability.
	Predictions []PredictionCandidate `json:"predictions"`
}

// PredictResponse is returned by the prediction endpoints.
type PredictResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	// Raw token sequence the positions index into.
	OriginalTokens []string `json:"original_tokens"`
	// One entry per in-range requested position.
	Predictions []PositionPredictions `json:"predictions"`
	// example: en
	DetectedLanguage string `json:"detected_language" example:"en"`
	// example: roberta-base
	ModelUsed string `json:"model_used" example:"roberta-base"`
}

// EmbedRequest is the body of POST /embed_text.
type EmbedRequest struct {
	// Texts to embed.
	Texts []string `json:"texts"`
	// Optional embedding task hint.
	// example: text-matching
	Task string `json:"task,omitempty" example:"text-matching"`
}

// EmbedResponse is returned by POST /embed_text.
type EmbedResponse struct {
	Success    bool        `json:"success"`
	Embeddings [][]float32 `json:"embeddings"`
	// Embedding vector dimension.
	// example: 768
	Dimension int `json:"dimension" example:"768"`
	// example: text-matching
	Task string `json:"task" example:"text-matching"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: no text provided
	Error string `json:"error" example:"no text provided"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
