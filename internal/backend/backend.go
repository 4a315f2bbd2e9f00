// Package backend loads pretrained checkpoints from the HuggingFace hub and
// runs them through gomlx/onnx-gomlx. It owns no NLP logic: segmentation is
// the tokenizer library's, inference is the ONNX graph's.
package backend

import (
	"context"
	"sync"

	"github.com/gomlx/go-huggingface/hub"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/gomlx/go-huggingface/tokenizers/hftokenizer"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	mlctx "github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/onnx-gomlx/onnx"
	"github.com/gomlx/onnx-gomlx/onnx/parser"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tokend/internal/config"
	"tokend/internal/mlm"
)

// Options carries process-wide loading knobs.
type Options struct {
	// CacheDir is where hub downloads land; empty uses the hub default.
	CacheDir string
	// AuthToken is the HuggingFace token for gated repos; empty for none.
	AuthToken string
}

// MLM is one loaded (tokenizer, ONNX model) pair. Weights are read-only
// after Load; forward passes are serialized, the local accelerator runs one
// at a time anyway.
type MLM struct {
	name   string
	tok    *hfTokenizer
	scheme mlm.MarkerScheme

	onnxModel onnx.Model
	weights   *mlctx.Context
	be        backends.Backend
	inputs    []string
	output    string

	mu  sync.Mutex
	dim int
}

var _ mlm.Model = (*MLM)(nil)

var defaultInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// Load downloads tokenizer.json and the ONNX weights for one configured
// checkpoint and prepares it for inference.
func Load(ctx context.Context, cfg config.ModelConfig, opts Options, log zerolog.Logger) (*MLM, error) {
	if cfg.Repo == "" {
		return nil, errors.New("model repo is required")
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Repo
	}
	repo := hub.New(cfg.Repo).WithAuth(opts.AuthToken)
	if opts.CacheDir != "" {
		repo = repo.WithCacheDir(opts.CacheDir)
	}

	log.Info().Str("repo", cfg.Repo).Msg("downloading tokenizer")
	tokPath, err := repo.DownloadFile("tokenizer.json")
	if err != nil {
		return nil, errors.Wrapf(err, "downloading tokenizer.json for %q", cfg.Repo)
	}
	hf, err := hftokenizer.NewFromFile(nil, tokPath)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing tokenizer for %q", cfg.Repo)
	}

	onnxFile := cfg.OnnxFile
	if onnxFile == "" {
		onnxFile = "onnx/model.onnx"
	}
	log.Info().Str("repo", cfg.Repo).Str("file", onnxFile).Msg("downloading model weights")
	onnxPath, err := repo.DownloadFile(onnxFile)
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %q for %q", onnxFile, cfg.Repo)
	}
	onnxModel, err := parser.ParseFile(onnxPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading ONNX model %q", onnxPath)
	}
	weights := mlctx.New()
	if err := onnxModel.VariablesToContext(weights); err != nil {
		return nil, errors.Wrapf(err, "loading ONNX weights for %q", cfg.Repo)
	}
	be, err := backends.New()
	if err != nil {
		return nil, errors.Wrap(err, "creating compute backend")
	}

	inputs := cfg.OnnxInputs
	if len(inputs) == 0 {
		inputs = defaultInputs
	}
	output := cfg.OnnxOutput
	if output == "" {
		output = "logits"
	}

	m := &MLM{
		name:      name,
		tok:       &hfTokenizer{hf: hf},
		onnxModel: onnxModel,
		weights:   weights,
		be:        be,
		inputs:    inputs,
		output:    output,
	}
	m.scheme = mlm.DetectMarkerScheme(m.tok)
	log.Info().Str("repo", cfg.Repo).Stringer("marker_scheme", m.scheme).Msg("model loaded")
	return m, nil
}

// Name returns the human-readable checkpoint name.
func (m *MLM) Name() string { return m.name }

// Tokenizer returns the tokenizer side of the pair.
func (m *MLM) Tokenizer() mlm.Tokenizer { return m.tok }

// MarkerScheme returns the segmentation-marker convention, detected once at
// load time.
func (m *MLM) MarkerScheme() mlm.MarkerScheme { return m.scheme }

// Forward runs one inference pass and returns per-position logits (or
// hidden states, for embedding checkpoints) over the configured output.
func (m *MLM) Forward(ctx context.Context, ids []int) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.run(ids)
}

// run feeds one sequence through the ONNX graph. gomlx reports failures by
// panicking, so the panic is converted back into an error at this boundary.
func (m *MLM) run(ids []int) (rows [][]float32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("inference failed: %v", r)
		}
	}()

	seqLen := len(ids)
	if seqLen == 0 {
		return nil, errors.New("empty input sequence")
	}
	inputIDs := [][]int64{make([]int64, seqLen)}
	attentionMask := [][]int64{make([]int64, seqLen)}
	tokenTypeIDs := [][]int64{make([]int64, seqLen)}
	for i, id := range ids {
		inputIDs[0][i] = int64(id)
		attentionMask[0][i] = 1
	}

	feeds := map[string][][]int64{
		"input_ids":      inputIDs,
		"attention_mask": attentionMask,
		"token_type_ids": tokenTypeIDs,
	}
	args := make([]any, 0, len(m.inputs))
	for _, nameIn := range m.inputs {
		feed, ok := feeds[nameIn]
		if !ok {
			return nil, errors.Errorf("unsupported graph input %q", nameIn)
		}
		args = append(args, feed)
	}

	out := mlctx.MustExecOnceN(m.be, m.weights,
		func(mctx *mlctx.Context, inputs []*graph.Node) []*graph.Node {
			g := inputs[0].Graph()
			feedNodes := make(map[string]*graph.Node, len(inputs))
			for i, nameIn := range m.inputs {
				feedNodes[nameIn] = inputs[i]
			}
			outs := m.onnxModel.CallGraph(mctx, g, feedNodes, m.output)
			return outs[:1]
		},
		args...)

	flat := tensors.MustCopyFlatData[float32](out[0])
	if len(flat)%seqLen != 0 {
		return nil, errors.Errorf("output size %d not divisible by sequence length %d", len(flat), seqLen)
	}
	width := len(flat) / seqLen
	rows = make([][]float32, seqLen)
	for i := 0; i < seqLen; i++ {
		rows[i] = flat[i*width : (i+1)*width]
	}
	return rows, nil
}

// Embed returns one mean-pooled vector per text. Mean pooling over the last
// hidden state works for any encoder checkpoint without a dedicated head.
func (m *MLM) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		_, ids := m.tok.Tokenize(text)
		ids = m.withBoundaries(ids)
		hidden, err := m.run(ids)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, meanPool(hidden))
	}
	if len(out) > 0 {
		m.mu.Lock()
		m.dim = len(out[0])
		m.mu.Unlock()
	}
	return out, m.Dimension(), nil
}

// Dimension reports the embedding width, 0 until the first Embed call.
func (m *MLM) Dimension() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dim
}

// withBoundaries wraps ids in the tokenizer's boundary markers when it has
// them; embeddings are noticeably worse without.
func (m *MLM) withBoundaries(ids []int) []int {
	start, err := m.tok.SpecialTokenID(api.TokBeginningOfSentence)
	if err != nil {
		return ids
	}
	end, err := m.tok.SpecialTokenID(api.TokEndOfSentence)
	if err != nil {
		return ids
	}
	wrapped := make([]int, 0, len(ids)+2)
	wrapped = append(wrapped, start)
	wrapped = append(wrapped, ids...)
	return append(wrapped, end)
}

func meanPool(rows [][]float32) []float32 {
	if len(rows) == 0 {
		return nil
	}
	vec := make([]float32, len(rows[0]))
	for _, row := range rows {
		for i, v := range row {
			vec[i] += v
		}
	}
	n := float32(len(rows))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
