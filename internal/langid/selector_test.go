package langid

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestShortTextReturnsFallback(t *testing.T) {
	s := New([]string{"en", "es"}, "default", zerolog.Nop())
	assert.Equal(t, "default", s.Select(""))
	assert.Equal(t, "default", s.Select("a"))
	assert.Equal(t, "default", s.Select("ab"))
	assert.Equal(t, "default", s.Select("  a  "))
}

func TestShortTextDeterministic(t *testing.T) {
	s := New([]string{"en", "es"}, "default", zerolog.Nop())
	for i := 0; i < 10; i++ {
		assert.Equal(t, "default", s.Select("a"))
	}
}

func TestSingleLanguageAlwaysFallsBack(t *testing.T) {
	// One detectable language is not enough to discriminate.
	s := New([]string{"en"}, "default", zerolog.Nop())
	assert.Equal(t, "default", s.Select("This is clearly an English sentence."))
}

func TestUnmappedKeysIgnored(t *testing.T) {
	s := New([]string{"xx", "yy", "default"}, "default", zerolog.Nop())
	assert.Equal(t, "default", s.Select("whatever text this might be"))
}

func TestDetectsRegisteredLanguages(t *testing.T) {
	s := New([]string{"en", "es"}, "default", zerolog.Nop())
	assert.Equal(t, "en", s.Select("The quick brown fox jumps over the lazy dog."))
	assert.Equal(t, "es", s.Select("El rápido zorro marrón salta sobre el perro perezoso."))
}
