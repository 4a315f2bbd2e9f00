package main

import (
	"testing"

	"tokend/internal/config"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) { t.Fatalf("%q -> %v, want %v", c.in, got, c.want) }
		for i := range got {
			if got[i] != c.want[i] { t.Fatalf("%q -> %v, want %v", c.in, got, c.want) }
		}
	}
}

func TestWithDefaults_FillsZeroFields(t *testing.T) {
	got := withDefaults(config.Config{Addr: ":9000"})
	if got.Addr != ":9000" { t.Fatalf("addr=%q", got.Addr) }
	if got.DefaultLang != "default" { t.Fatalf("default_lang=%q", got.DefaultLang) }
	if len(got.Models) == 0 { t.Fatalf("models should fall back to defaults") }
	if !got.CORS.Enabled || len(got.CORS.AllowedOrigins) == 0 {
		t.Fatalf("cors=%+v", got.CORS)
	}
}
