// Package server exposes the scoring engine over a small stateless HTTP API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/dotcommander/mbiscore/internal/tabular"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options configures the router
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	Tabular        tabular.Options
	Logger         *slog.Logger
}

// Server holds the collaborators shared by all handlers
type Server struct {
	engine    *scoring.Engine
	processor *batch.Processor
	opts      Options
	log       *slog.Logger
}

// New creates a Server
func New(engine *scoring.Engine, processor *batch.Processor, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, processor: processor, opts: opts, log: logger}
}

// NewRouter is shorthand for New(...).Routes()
func NewRouter(engine *scoring.Engine, processor *batch.Processor, opts Options) http.Handler {
	return New(engine, processor, opts).Routes()
}

// Routes builds the chi router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"Content-Disposition", "Content-Length"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(vr chi.Router) {
		vr.Get("/instrument", s.handleInstrument)
		vr.Post("/score", s.handleScore)
		vr.Post("/batch", s.handleBatch)
	})
	return r
}
