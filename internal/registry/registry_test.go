package registry

import (
	"reflect"
	"testing"
)

func TestLookupDistinguishesAbsentFromUnknown(t *testing.T) {
	r := New([]string{"default", "en"})
	r.Register(&Entry{Lang: "default", Name: "roberta-base"})

	if _, ok := r.Lookup("default"); !ok { t.Fatalf("default should be loaded") }
	if _, ok := r.Lookup("en"); ok { t.Fatalf("en configured but not loaded") }
	if _, ok := r.Lookup("fr"); ok { t.Fatalf("fr is unknown") }

	loaded := r.LoadedByLang()
	if !loaded["default"] { t.Fatalf("loaded=%v", loaded) }
	if loaded["en"] { t.Fatalf("loaded=%v", loaded) }
	if _, known := loaded["fr"]; known { t.Fatalf("fr should not appear: %v", loaded) }
}

func TestLanguagesSorted(t *testing.T) {
	r := New([]string{"es", "default", "en"})
	r.Register(&Entry{Lang: "es"})
	r.Register(&Entry{Lang: "default"})
	r.Register(&Entry{Lang: "en"})
	want := []string{"default", "en", "es"}
	if got := r.Languages(); !reflect.DeepEqual(got, want) { t.Fatalf("languages=%v", got) }
}

func TestOnlyFallbackLoaded(t *testing.T) {
	r := New([]string{"default", "en", "es"})
	r.Register(&Entry{Lang: "default", Name: "roberta-base"})

	if got := r.Languages(); !reflect.DeepEqual(got, []string{"default"}) {
		t.Fatalf("languages=%v", got)
	}
	loaded := r.LoadedByLang()
	if !loaded["default"] || loaded["en"] || loaded["es"] { t.Fatalf("loaded=%v", loaded) }
	names := r.Names()
	if names["default"] != "roberta-base" { t.Fatalf("names=%v", names) }
}
