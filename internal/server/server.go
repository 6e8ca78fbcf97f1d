// Package server exposes a session and its pipeline over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/valpere/dichai/internal/detector"
	"github.com/valpere/dichai/internal/keyaudit"
	"github.com/valpere/dichai/internal/orchestrator"
	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

// Config carries the optional collaborators. Nil fields disable the routes
// or features that need them.
type Config struct {
	Catalog  *provider.Catalog
	KV       persistence.KV
	Audit    *keyaudit.Client
	Detector *detector.Detector
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type Server struct {
	session *session.Session
	orch    *orchestrator.Orchestrator
	config  Config
	logger  *zap.Logger

	mu       sync.Mutex
	settings persistence.Settings
}

func New(s *session.Session, orch *orchestrator.Orchestrator, settings persistence.Settings, config Config) *Server {
	if config.Catalog == nil {
		config.Catalog = provider.NewCatalog()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.Selection.Model == "" {
		settings.Selection = provider.DefaultSelection()
	}
	return &Server{session: s, orch: orch, config: config, logger: logger, settings: settings}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/session", s.getSession)
	r.Put("/session", s.putSession)
	r.Patch("/session", s.patchSession)
	r.Post("/session/reset", s.resetSession)

	r.Post("/characters", s.addCharacter)
	r.Patch("/characters/{name}", s.renameCharacter)
	r.Delete("/characters/{name}", s.removeCharacter)

	r.Post("/relationships", s.addRelationship)
	r.Patch("/relationships/{id}", s.editRelationship)
	r.Delete("/relationships/{id}", s.removeRelationship)

	r.Post("/pronouns", s.addPronoun)
	r.Get("/pronouns/targets", s.pronounTargets)
	r.Patch("/pronouns/{id}", s.editPronoun)
	r.Delete("/pronouns/{id}", s.removePronoun)

	r.Post("/expressions", s.addExpression)
	r.Delete("/expressions/{tag}", s.removeExpression)

	r.Post("/lines", s.addLine)
	r.Post("/lines/import", s.importLines)
	r.Patch("/lines/{id}", s.editLine)
	r.Delete("/lines/{id}", s.removeLine)
	r.Post("/lines/{id}/move", s.moveLine)

	r.Post("/translate", s.translate)
	r.Post("/refine-again", s.refineAgain)
	r.Get("/status", s.status)

	r.Get("/models", s.listModels)
	r.Post("/models", s.addModel)
	r.Put("/provider", s.setProvider)

	r.Post("/settings/save", s.saveSettings)
	r.Post("/settings/load", s.loadSettings)
	r.Delete("/settings", s.clearSettings)

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)))
	})
}

func (s *Server) currentSettings() persistence.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Server) updateSettings(fn func(*persistence.Settings)) persistence.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
	return s.settings
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		ce *session.ConsistencyError
		ve *orchestrator.ValidationError
		pe *persistence.PersistenceError
	)
	switch {
	case errors.As(err, &ce),
		errors.Is(err, session.ErrDuplicateCharacter),
		errors.Is(err, session.ErrDuplicateExpression),
		errors.Is(err, orchestrator.ErrBusy),
		errors.Is(err, orchestrator.ErrNothingToRefine):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve),
		errors.As(err, &pe),
		errors.Is(err, session.ErrEmptyName),
		errors.Is(err, session.ErrEmptyValue),
		errors.Is(err, session.ErrUnknownCharacter),
		errors.Is(err, session.ErrUnknownExpression),
		errors.Is(err, session.ErrReservedExpression),
		errors.Is(err, provider.ErrUnknownModel),
		errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.writeError(w, statusFor(err), err)
}

var errBadBody = errors.New("invalid request body")

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

// param returns a decoded path parameter.
func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
	}
	return v
}
