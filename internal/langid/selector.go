// Package langid picks the model language key for a piece of text.
package langid

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
	"github.com/rs/zerolog"
)

// minDetectLength is the shortest text (in runes) worth running detection
// on; anything shorter goes straight to the fallback key.
const minDetectLength = 3

// isoToLanguage maps the language keys this service registers to lingua
// languages. Keys outside this map never detect and always fall back.
var isoToLanguage = map[string]lingua.Language{
	"en": lingua.English,
	"es": lingua.Spanish,
	"fr": lingua.French,
	"de": lingua.German,
	"it": lingua.Italian,
	"pt": lingua.Portuguese,
	"nl": lingua.Dutch,
}

// Selector resolves text to a registered language key, with a fixed
// fallback for short, ambiguous, or unsupported input.
type Selector struct {
	fallback string
	detector lingua.LanguageDetector
	keys     map[lingua.Language]string
	log      zerolog.Logger
}

// New builds a Selector restricted to the given language keys. Keys without
// a lingua mapping (including the fallback key itself) are ignored for
// detection. With fewer than two detectable languages every call returns
// the fallback immediately.
func New(langKeys []string, fallback string, log zerolog.Logger) *Selector {
	s := &Selector{
		fallback: fallback,
		keys:     make(map[lingua.Language]string),
		log:      log,
	}
	var langs []lingua.Language
	for _, key := range langKeys {
		if key == fallback {
			continue
		}
		if lang, ok := isoToLanguage[strings.ToLower(key)]; ok {
			langs = append(langs, lang)
			s.keys[lang] = key
		}
	}
	if len(langs) >= 2 {
		s.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			Build()
	}
	return s
}

// Select returns the language key for text. Pure aside from logging.
func (s *Selector) Select(text string) string {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minDetectLength {
		return s.fallback
	}
	if s.detector == nil {
		return s.fallback
	}
	lang, ok := s.detector.DetectLanguageOf(text)
	if !ok {
		s.log.Debug().Msg("language detection inconclusive, using fallback")
		return s.fallback
	}
	key, ok := s.keys[lang]
	if !ok {
		// Detected a language nothing is registered for.
		return s.fallback
	}
	s.log.Debug().Str("lang", key).Msg("language detected")
	return key
}
