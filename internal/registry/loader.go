package registry

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tokend/internal/backend"
	"tokend/internal/config"
)

// LoadAll loads every configured checkpoint. A single failing entry is
// logged and left absent; the whole load fails only when nothing loads.
// The optional embedding checkpoint is best-effort too.
func LoadAll(ctx context.Context, cfg config.Config, opts backend.Options, log zerolog.Logger) (*Registry, Embedder, error) {
	langs := make([]string, 0, len(cfg.Models))
	for _, mc := range cfg.Models {
		langs = append(langs, mc.Lang)
	}
	reg := New(langs)

	for _, mc := range cfg.Models {
		m, err := backend.Load(ctx, mc, opts, log)
		if err != nil {
			log.Warn().Err(err).Str("lang", mc.Lang).Str("repo", mc.Repo).
				Msg("model failed to load, entry left absent")
			continue
		}
		reg.Register(&Entry{
			Lang:   mc.Lang,
			Name:   m.Name(),
			Tok:    m.Tokenizer(),
			Scheme: m.MarkerScheme(),
			Model:  m,
		})
		log.Info().Str("lang", mc.Lang).Str("model", m.Name()).Msg("model registered")
	}
	if reg.Len() == 0 {
		return nil, nil, errors.New("no model loaded")
	}

	var emb Embedder
	if cfg.Embedding != nil {
		m, err := backend.Load(ctx, *cfg.Embedding, opts, log)
		if err != nil {
			log.Warn().Err(err).Str("repo", cfg.Embedding.Repo).
				Msg("embedding model failed to load, /embed_text disabled")
		} else {
			emb = m
			log.Info().Str("model", m.Name()).Msg("embedding model registered")
		}
	}
	return reg, emb, nil
}
