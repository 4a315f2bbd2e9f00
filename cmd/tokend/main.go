package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tokend/internal/backend"
	"tokend/internal/common/fsutil"
	"tokend/internal/config"
	"tokend/internal/httpapi"
	"tokend/internal/manager"
	"tokend/internal/registry"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma-separated flag value, dropping empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envOr("TOKEND_ADDR", ""), "HTTP listen address, e.g. :5001")
	configPath := flag.String("config", envOr("TOKEND_CONFIG", ""), "Path to config file (.yaml/.json/.toml)")
	cacheDir := flag.String("cache-dir", envOr("TOKEND_CACHE_DIR", ""), "Hub download cache directory (default: hub default)")
	defaultLang := flag.String("default-lang", envOr("TOKEND_DEFAULT_LANG", ""), "Fallback language key")
	hfToken := flag.String("hf-token", envOr("HF_TOKEN", ""), "Hub auth token for gated repositories")
	corsOrigins := flag.String("cors-origins", envOr("TOKEND_CORS_ORIGINS", ""), "Comma-separated allowed CORS origins")
	logLevel := flag.String("log-level", envOr("TOKEND_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)

	cfg := config.Default()
	if *configPath != "" {
		if !fsutil.PathExists(*configPath) {
			logger.Fatal().Str("path", *configPath).Msg("config file not found")
		}
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		cfg = withDefaults(fileCfg)
	}
	// Flags win over config file.
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *defaultLang != "" {
		cfg.DefaultLang = *defaultLang
	}
	if origins := splitCSV(*corsOrigins); len(origins) > 0 {
		cfg.CORS.AllowedOrigins = origins
	}

	if cfg.CacheDir != "" {
		expanded, err := fsutil.ExpandHome(cfg.CacheDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("cache dir expansion failed")
		}
		cfg.CacheDir = expanded
	}

	loadCtx, loadCancel := context.WithCancel(context.Background())
	defer loadCancel()
	opts := backend.Options{CacheDir: cfg.CacheDir, AuthToken: *hfToken}
	reg, emb, err := registry.LoadAll(loadCtx, cfg, opts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load models")
	}
	mgr := manager.New(reg, nil, emb, cfg.DefaultLang, logger)

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(mgr)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Strs("languages", reg.Languages()).Msg("tokend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

// withDefaults fills zero-valued fields of a file config from the built-in
// defaults, so partial config files stay usable.
func withDefaults(cfg config.Config) config.Config {
	def := config.Default()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = def.DefaultLang
	}
	if len(cfg.Models) == 0 {
		cfg.Models = def.Models
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS = def.CORS
	}
	return cfg
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}
