package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sqlcoderd/internal/serving"
	"sqlcoderd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error)
	GenerateStream(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the HTTP handler tree: generation endpoints under /v1,
// operational endpoints at the root.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsConfig.enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsConfig.origins,
			AllowedMethods: corsConfig.methods,
			AllowedHeaders: corsConfig.headers,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/v1/generate", handleGenerate(svc))
	r.Post("/v1/generate/stream", handleGenerateStream(svc))
	r.Get("/v1/models", handleModels(svc))
	r.Get("/status", handleStatus(svc))

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

// decodeGenerateRequest enforces content type and body limits, then decodes
// and validates the request payload.
func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (types.GenerateRequest, bool) {
	var req types.GenerateRequest
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSONError(w, http.StatusBadRequest, "question is required")
		return req, false
	}
	return req, true
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case serving.IsTooBusy(err):
		return http.StatusTooManyRequests
	case serving.IsNotReady(err):
		return http.StatusServiceUnavailable
	case serving.IsUpstream(err):
		return http.StatusBadGateway
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// handleGenerate godoc
//
//	@Summary		Generate SQL for a question
//	@Description	Renders the SQLCoder prompt for the question and table metadata, runs one generation and returns the raw model output.
//	@Tags			generation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.GenerateRequest	true	"Generation request"
//	@Success		200		{object}	types.GenerateResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		429		{object}	types.ErrorResponse
//	@Failure		502		{object}	types.ErrorResponse
//	@Failure		503		{object}	types.ErrorResponse
//	@Router			/v1/generate [post]
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeGenerateRequest(w, r)
		if !ok {
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		// Join server base context with request context so shutdown cancels work too.
		joined, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Generate(joined, req)
		if err != nil {
			// If context was canceled (client disconnect or shutdown), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := errorStatus(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("serving")
			}
			writeJSONError(w, status, err.Error())
			if lvl >= LevelInfo {
				logRequest(middleware.GetReqID(r.Context()), "/v1/generate", status, time.Since(start).Milliseconds(), err)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			return
		}
		if lvl >= LevelInfo {
			logRequest(middleware.GetReqID(r.Context()), "/v1/generate", http.StatusOK, time.Since(start).Milliseconds(), nil)
		}
	}
}

// countingWriter tracks whether any bytes reached the client, so error
// handling can tell "stream not started" from "stream interrupted".
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// handleGenerateStream godoc
//
//	@Summary		Stream SQL generation
//	@Description	Streams generation progress as NDJSON: one token object per line, then a terminal line with done=true and the full text.
//	@Tags			generation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.GenerateRequest	true	"Generation request"
//	@Success		200		{object}	types.StreamEvent
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		429		{object}	types.ErrorResponse
//	@Failure		502		{object}	types.ErrorResponse
//	@Failure		503		{object}	types.ErrorResponse
//	@Router			/v1/generate/stream [post]
func handleGenerateStream(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeGenerateRequest(w, r)
		if !ok {
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()

		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		cw := &countingWriter{w: w}
		writer := io.Writer(cw)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(cw, &loggingLineWriter{})
		}

		joined, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.GenerateStream(joined, req, writer, flush); err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := errorStatus(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("serving")
			}
			if cw.n == 0 {
				writeJSONError(w, status, err.Error())
			} else {
				// Stream already started: append a terminal error line.
				b, _ := json.Marshal(types.ErrorResponse{Error: err.Error(), Code: status})
				w.Write(append(b, '\n'))
				if flush != nil {
					flush()
				}
			}
			if lvl >= LevelInfo {
				logRequest(middleware.GetReqID(r.Context()), "/v1/generate/stream", status, time.Since(start).Milliseconds(), err)
			}
			return
		}
		if lvl >= LevelInfo {
			logRequest(middleware.GetReqID(r.Context()), "/v1/generate/stream", http.StatusOK, time.Since(start).Milliseconds(), nil)
		}
	}
}

// handleModels godoc
//
//	@Summary	List servable model presets
//	@Tags		models
//	@Produce	json
//	@Success	200	{object}	types.ModelsResponse
//	@Router		/v1/models [get]
func handleModels(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.ListModels()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	}
}

// handleStatus godoc
//
//	@Summary	Serving status
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	types.StatusResponse
//	@Router		/status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	}
}
