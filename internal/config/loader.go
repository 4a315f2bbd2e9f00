package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ModelConfig describes one checkpoint to load from the hub.
type ModelConfig struct {
	// Language key the entry serves ("en", "es", "default").
	Lang string `json:"lang" yaml:"lang" toml:"lang"`
	// Hub repository id, e.g. "FacebookAI/roberta-base".
	Repo string `json:"repo" yaml:"repo" toml:"repo"`
	// Human-readable name; defaults to Repo.
	Name string `json:"name" yaml:"name" toml:"name"`
	// Path of the ONNX weights inside the repo.
	OnnxFile string `json:"onnx_file" yaml:"onnx_file" toml:"onnx_file"`
	// Graph input names to feed. RoBERTa exports drop token_type_ids.
	OnnxInputs []string `json:"onnx_inputs" yaml:"onnx_inputs" toml:"onnx_inputs"`
	// Graph output to read; "logits" for masked-LM exports,
	// "last_hidden_state" for embedding exports.
	OnnxOutput string `json:"onnx_output" yaml:"onnx_output" toml:"onnx_output"`
}

// CORSConfig controls the CORS middleware; the browser-extension client
// needs it enabled.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string        `json:"addr" yaml:"addr" toml:"addr"`
	CacheDir     string        `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	DefaultLang  string        `json:"default_lang" yaml:"default_lang" toml:"default_lang"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel     string        `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORS         CORSConfig    `json:"cors" yaml:"cors" toml:"cors"`
	Models       []ModelConfig `json:"models" yaml:"models" toml:"models"`
	// Optional dedicated embedding checkpoint for /embed_text.
	Embedding *ModelConfig `json:"embedding" yaml:"embedding" toml:"embedding"`
}

// Default returns the out-of-the-box configuration: a single fallback
// masked-LM entry, mirroring what the extension expects when nothing is
// configured.
func Default() Config {
	return Config{
		Addr:        ":5001",
		DefaultLang: "default",
		CORS:        CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}},
		Models: []ModelConfig{
			{
				Lang:     "default",
				Repo:     "FacebookAI/roberta-base",
				OnnxFile: "onnx/model.onnx",
				// RoBERTa ONNX exports take no token_type_ids.
				OnnxInputs: []string{"input_ids", "attention_mask"},
			},
		},
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
