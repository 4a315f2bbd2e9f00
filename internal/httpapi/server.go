package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tokend/internal/manager"
	"tokend/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Health() types.HealthResponse
	Ready() bool
	TokenizeDisplay(ctx context.Context, text string) (types.TokenizeDisplayResponse, error)
	PredictTokens(ctx context.Context, text string, positions []int) (types.PredictResponse, error)
	PredictContext(ctx context.Context, text string, positions []int) (types.PredictResponse, error)
	Embed(ctx context.Context, texts []string, task string) (types.EmbedResponse, error)
	Test(ctx context.Context) (types.TokenizeDisplayResponse, error)
	TestMLM(ctx context.Context) (types.PredictResponse, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	// CORS is required for the browser-extension clients; opt-out via config.
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Health())
	})

	r.Post("/tokenize_display", func(w http.ResponseWriter, r *http.Request) {
		var req types.TokenizeRequest
		if !readJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeJSONError(w, http.StatusBadRequest, "no text provided")
			return
		}
		start := time.Now()
		lvl := requestLogLevel(r)
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.TokenizeDisplay(joinedCtx, req.Text)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if resp.AlignmentMisses > 0 {
			ObserveAlignmentMisses(resp.AlignmentMisses)
		}
		if lvl >= LevelInfo {
			logEnd(r, "tokenize_display", http.StatusOK, start)
		}
		writeJSON(w, resp)
	})

	r.Post("/predict_tokens", predictHandler("predict_tokens", svc.PredictTokens))
	r.Post("/predict_context", predictHandler("predict_context", svc.PredictContext))

	r.Post("/embed_text", func(w http.ResponseWriter, r *http.Request) {
		var req types.EmbedRequest
		if !readJSON(w, r, &req) {
			return
		}
		if len(req.Texts) == 0 {
			writeJSONError(w, http.StatusBadRequest, "no texts provided")
			return
		}
		start := time.Now()
		lvl := requestLogLevel(r)
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Embed(joinedCtx, req.Texts, req.Task)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if lvl >= LevelInfo {
			logEnd(r, "embed_text", http.StatusOK, start)
		}
		writeJSON(w, resp)
	})

	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.Test(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, resp)
	})

	r.Get("/test_mlm", func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.TestMLM(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, resp)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// predictHandler builds the shared handler for the two masked-prediction
// endpoints; they differ only in the candidate count applied downstream.
func predictHandler(name string, predict func(context.Context, string, []int) (types.PredictResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PredictRequest
		if !readJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeJSONError(w, http.StatusBadRequest, "no text provided")
			return
		}
		start := time.Now()
		lvl := requestLogLevel(r)
		if lvl >= LevelDebug {
			if zlog != nil {
				zlog.Debug().Str("path", r.URL.Path).Ints("positions", req.MaskedPositions).Msg(name + " start")
			} else {
				log.Printf("%s start positions=%v", name, req.MaskedPositions)
			}
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := predict(joinedCtx, req.Text, req.MaskedPositions)
		if err != nil {
			// Client disconnect or shutdown: nothing useful to write.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeServiceError(w, r, err)
			return
		}
		if lvl >= LevelInfo {
			logEnd(r, name, http.StatusOK, start)
		}
		writeJSON(w, resp)
	}
}

// readJSON enforces the content type and size limit, then decodes the body.
// On failure it writes the error response and returns false.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeServiceError maps well-known manager errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if he, ok := err.(HTTPError); ok {
		status = he.StatusCode()
	} else if manager.IsModelNotLoaded(err) {
		// The extension treats a missing backend the same as any other
		// server fault: 500, never 404.
		status = http.StatusInternalServerError
	}
	writeJSONError(w, status, err.Error())
	if requestLogLevel(r) >= LevelError {
		if zlog != nil {
			z := zlog.Error().Str("path", r.URL.Path).Int("status", status)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Err(err).Msg("request failed")
		} else {
			log.Printf("request failed path=%s status=%d err=%v", r.URL.Path, status, err)
		}
	}
}

func logEnd(r *http.Request, name string, status int, start time.Time) {
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg(name + " end")
		return
	}
	log.Printf("%s end status=%d dur=%s", name, status, time.Since(start))
}
