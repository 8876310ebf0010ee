// Package server provides the HTTP server for the airtype recognition service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/gesture"
	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/pipeline"
	"github.com/ryanhyunminbae/airtype/internal/plugin"
	"github.com/ryanhyunminbae/airtype/internal/server/api"
	"github.com/ryanhyunminbae/airtype/internal/store"
)

// shutdownTimeout bounds graceful shutdown once the context is done.
const shutdownTimeout = 5 * time.Second

// Config holds the listener settings.
type Config struct {
	Addr      string `envconfig:"AIRTYPE_ADDR" default:":8080"`
	StaticDir string `envconfig:"AIRTYPE_STATIC_DIR"`
}

// SessionFactory creates and releases recognition sessions.
type SessionFactory interface {
	NewSession(kind string, listeners ...pipeline.Listener) (*pipeline.Session, error)
	EndSession(session *pipeline.Session)
}

// Deps holds the collaborators behind the routes. Nil members disable their routes.
type Deps struct {
	Sessions   SessionFactory
	Store      *store.Store
	Prototypes *gesture.PrototypeClassifier
	Plugins    *plugin.Manager
	Logger     *zap.SugaredLogger
}

// Server represents the HTTP server for the airtype service.
type Server struct {
	config Config
	deps   Deps
	logger *zap.SugaredLogger
	mux    *http.ServeMux
	ws     *SessionHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.deps.Sessions != nil {
		s.ws = NewSessionHandler(s.deps.Sessions, s.logger)
		s.mux.Handle("/api/session", s.ws)
	}

	if s.deps.Store != nil {
		sessions := api.NewSessionHandler(s.deps.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)

		actions := api.NewActionHandler(s.deps.Store)
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)
	}

	if s.deps.Prototypes != nil {
		s.mux.Handle("/api/classify", api.NewClassifyHandler(s.deps.Prototypes))
	}

	if s.deps.Plugins != nil {
		s.mux.HandleFunc("/api/plugins", s.handlePlugins)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	writeJSON(w, response)
}

// handlePlugins handles GET requests to /api/plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	manifests := make([]plugin.Manifest, 0)
	for _, p := range s.deps.Plugins.List() {
		manifests = append(manifests, p.Manifest)
	}

	writeJSON(w, map[string]interface{}{"plugins": manifests})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.ws != nil {
		srv.RegisterOnShutdown(s.ws.CloseAll)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("server listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
