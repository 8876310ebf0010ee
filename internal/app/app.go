// Package app wires recognition sessions to their collaborators: the
// transcript store, the plugin sink and the learned model.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/gesture"
	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/model"
	"github.com/ryanhyunminbae/airtype/internal/pipeline"
	"github.com/ryanhyunminbae/airtype/internal/plugin"
	"github.com/ryanhyunminbae/airtype/internal/source"
	"github.com/ryanhyunminbae/airtype/internal/stabilizer"
	"github.com/ryanhyunminbae/airtype/internal/store"
)

// ErrClosed is returned when a session is requested from a closed App.
var ErrClosed = errors.New("app closed")

// Config holds configuration options for the application.
type Config struct {
	Store      *store.Store // optional; nil disables transcripts and letter bindings
	Prototypes []gesture.Prototype
	Model      model.Config
	Stabilizer stabilizer.Config
	Plugins    plugin.Config
	Logger     *zap.SugaredLogger
}

// App creates sessions that share one store and one plugin sink.
type App struct {
	config     Config
	prototypes *gesture.PrototypeClassifier
	logger     *zap.SugaredLogger
	recorder   *store.Recorder
	pluginMgr  *plugin.Manager
	sink       *plugin.Sink

	mu       sync.Mutex
	closed   bool
	sessions map[string]*pipeline.Session
}

// New creates a new App and discovers plugins. A missing plugin directory
// is not an error. Zero stabilizer thresholds select the defaults.
func New(config Config) (*App, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if config.Stabilizer == (stabilizer.Config{}) {
		config.Stabilizer = stabilizer.DefaultConfig()
	}
	if err := config.Stabilizer.Validate(); err != nil {
		return nil, fmt.Errorf("stabilizer config: %w", err)
	}

	table := config.Prototypes
	if len(table) == 0 {
		table = gesture.DefaultPrototypes()
	}

	a := &App{
		config:     config,
		prototypes: gesture.NewPrototypeClassifier(table),
		logger:     logger,
		pluginMgr:  plugin.NewManager(config.Plugins.PluginDir(), logger),
		sessions:   make(map[string]*pipeline.Session),
	}

	if err := a.pluginMgr.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}

	var actions plugin.ActionLookup
	if config.Store != nil {
		a.recorder = store.NewRecorder(config.Store, logger)
		actions = config.Store.Actions()
	}
	a.sink = plugin.NewSink(a.pluginMgr, plugin.NewExecutor(config.Plugins.Timeout), actions, config.Plugins.TypePlugin, logger)

	return a, nil
}

// NewSession creates a session tagged with kind ("server", "stdin", ...).
// Each session owns its recognizer and model loader. The caller must
// release it with EndSession.
func (a *App) NewSession(kind string, listeners ...pipeline.Listener) (*pipeline.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	var loader *model.Loader
	if a.config.Model.Path != "" {
		loader = model.NewPathLoader(a.config.Model, a.logger)
	}
	recognizer := gesture.NewRecognizer(a.prototypes, loader, a.logger)

	all := []pipeline.Listener{pipeline.LogListener{Logger: a.logger}, a.sink}
	if a.recorder != nil {
		all = append(all, a.recorder)
	}
	all = append(all, listeners...)

	session := pipeline.NewSession(recognizer, pipeline.Config{
		Stabilizer: a.config.Stabilizer,
		Logger:     a.logger,
	}, all...)

	if a.recorder != nil {
		if err := a.recorder.Begin(session, kind); err != nil {
			session.Close()
			return nil, fmt.Errorf("begin transcript: %w", err)
		}
	}

	a.sessions[session.ID()] = session
	a.logger.Infow("session started", "session", session.ID(), "kind", kind, "model", a.config.Model.Path != "")
	return session, nil
}

// EndSession closes session and stores its final counters.
func (a *App) EndSession(session *pipeline.Session) {
	a.mu.Lock()
	if _, ok := a.sessions[session.ID()]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.sessions, session.ID())
	a.mu.Unlock()

	if err := session.Close(); err != nil {
		a.logger.Warnw("failed to close session", "session", session.ID(), "error", err)
	}
	if a.recorder != nil {
		if err := a.recorder.End(session); err != nil {
			a.logger.Warnw("failed to end transcript", "session", session.ID(), "error", err)
		}
	}

	processed, dropped := session.Stats()
	a.logger.Infow("session ended", "session", session.ID(), "frames", processed, "dropped", dropped)
}

// Run creates a session over src, processes it until src is exhausted or ctx
// is done and returns the confirmed text.
func (a *App) Run(ctx context.Context, src source.Source, kind string, listeners ...pipeline.Listener) (string, error) {
	session, err := a.NewSession(kind, listeners...)
	if err != nil {
		return "", err
	}
	defer a.EndSession(session)

	if err := session.Run(ctx, src); err != nil {
		return session.Text(), err
	}
	return session.Text(), nil
}

// Sessions returns the number of open sessions.
func (a *App) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Prototypes returns the prototype classifier shared by all sessions.
func (a *App) Prototypes() *gesture.PrototypeClassifier {
	return a.prototypes
}

// Close ends every open session and waits for queued plugin actions.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	open := make([]*pipeline.Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		open = append(open, s)
	}
	a.mu.Unlock()

	for _, s := range open {
		a.EndSession(s)
	}
	return a.sink.Close()
}
