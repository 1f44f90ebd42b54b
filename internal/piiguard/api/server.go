// Package api serves filter keys, redaction and preferences to the admin
// dashboard over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/connlog"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/filterkey"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/prefs"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Preferences is the subset of prefs.Service the API needs.
type Preferences interface {
	Get(ctx context.Context, userID string) (prefs.UserPreference, bool, error)
	CensorPii(ctx context.Context, userID string) (bool, error)
	SetCensorPii(ctx context.Context, userID string, censor bool) error
	SetDarkMode(ctx context.Context, userID string, override *bool) error
}

// ConnectionFinder is the subset of connlog.Repository the API needs.
type ConnectionFinder interface {
	Find(ctx context.Context, f *connlog.ConnectionsFilter, p *viewer.Presenter, pageSize, offset int) (connlog.Page, error)
}

// Deps are the services behind the API. Connections is optional; without
// it the connections route is not registered.
type Deps struct {
	Filters     *filterkey.Store
	Preferences Preferences
	Connections ConnectionFinder
	Redactor    redact.Redactor
	PageSize    int
}

type Server struct {
	router *mux.Router
	deps   Deps
	cfg    config.HTTPCfg
	log    *zap.SugaredLogger
}

func NewServer(cfg config.HTTPCfg, deps Deps) *Server {
	if deps.Redactor == nil {
		deps.Redactor = redact.Default
	}
	if deps.PageSize <= 0 {
		deps.PageSize = 50
	}
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
		cfg:    cfg,
		log:    logger.L(),
	}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes registers all API routes.
func (s *Server) RegisterRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.logRequests, s.identify)

	api.HandleFunc("/filters", s.CreateFilter).Methods(http.MethodPost)
	api.HandleFunc("/filters/{key}", s.GetFilter).Methods(http.MethodGet)
	api.HandleFunc("/filters/{key}/extend", s.ExtendFilter).Methods(http.MethodPost)
	api.HandleFunc("/filters/{key}", s.RemoveFilter).Methods(http.MethodDelete)

	api.HandleFunc("/redact", s.Redact).Methods(http.MethodPost)

	api.HandleFunc("/preferences", s.GetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.UpdatePreferences).Methods(http.MethodPut)

	if s.deps.Connections != nil {
		api.HandleFunc("/connections", s.ListConnections).Methods(http.MethodGet)
	}

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("HTTP server listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Infow("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// presenter resolves the censor decision for the caller. Preference lookup
// failures censor.
func (s *Server) presenter(r *http.Request) *viewer.Presenter {
	id, _ := IdentityFromContext(r.Context())
	hasRole := id.HasRole(s.cfg.PiiRole)

	censorPref := false
	if hasRole && s.deps.Preferences != nil {
		pref, err := s.deps.Preferences.CensorPii(r.Context(), id.UserID)
		if err != nil {
			s.log.Warnw("Failed to load censor preference, censoring", "user_id", id.UserID, "error", err)
			censorPref = true
		} else {
			censorPref = pref
		}
	}
	return viewer.NewPresenter(viewer.ShouldCensor(hasRole, censorPref), s.deps.Redactor)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warnw("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
