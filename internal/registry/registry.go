// Package registry holds the per-language model entries. It is populated
// once at startup and read-only afterwards; no runtime reload, no eviction.
package registry

import (
	"context"
	"sort"

	"tokend/internal/mlm"
)

// Entry is one loaded (tokenizer, model) pair serving a language key.
type Entry struct {
	Lang   string
	Name   string
	Tok    mlm.Tokenizer
	Scheme mlm.MarkerScheme
	Model  mlm.Model
}

// Embedder is the optional embedding backend behind /embed_text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, int, error)
}

// Registry maps language keys to loaded entries. Configured keys whose load
// failed stay present in Configured() but absent from Lookup, so "known but
// unavailable" is distinguishable from "unknown key".
type Registry struct {
	entries    map[string]*Entry
	configured []string
}

// New returns an empty registry pre-seeded with the configured language
// keys (loaded or not).
func New(configured []string) *Registry {
	return &Registry{
		entries:    make(map[string]*Entry),
		configured: append([]string(nil), configured...),
	}
}

// Register adds an entry. Last write wins; at most one entry per key is
// configured upstream.
func (r *Registry) Register(e *Entry) {
	r.entries[e.Lang] = e
}

// Lookup returns the entry for a language key, if one loaded.
func (r *Registry) Lookup(lang string) (*Entry, bool) {
	e, ok := r.entries[lang]
	return e, ok
}

// Languages returns the keys with a usable entry, sorted.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.entries))
	for lang := range r.entries {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Configured returns every configured key, loaded or not, sorted.
func (r *Registry) Configured() []string {
	out := append([]string(nil), r.configured...)
	sort.Strings(out)
	return out
}

// LoadedByLang reports the load state of every configured key.
func (r *Registry) LoadedByLang() map[string]bool {
	out := make(map[string]bool, len(r.configured))
	for _, lang := range r.configured {
		_, ok := r.entries[lang]
		out[lang] = ok
	}
	return out
}

// Names returns the checkpoint name per loaded key.
func (r *Registry) Names() map[string]string {
	out := make(map[string]string, len(r.entries))
	for lang, e := range r.entries {
		out[lang] = e.Name
	}
	return out
}

// Len returns the number of loaded entries.
func (r *Registry) Len() int { return len(r.entries) }
