package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/pipeline"
	"github.com/ryanhyunminbae/airtype/internal/store"
)

// sinkQueueSize bounds confirmations waiting for a plugin.
const sinkQueueSize = 64

// ActionLookup finds the action bound to a confirmed letter.
type ActionLookup interface {
	ForLetter(letter string) (*store.Action, error)
}

type confirmation struct {
	session string
	letter  string
}

// Sink is a pipeline listener that hands confirmed letters to plugins.
// Plugins run one at a time on a background worker so letters keep their
// order and frame processing is never blocked by a slow plugin.
type Sink struct {
	manager    *Manager
	executor   *Executor
	actions    ActionLookup
	typePlugin string
	logger     *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan confirmation
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSink creates a Sink and starts its worker. actions may be nil; typePlugin
// may be empty. A letter with neither a binding nor a type plugin is ignored.
func NewSink(manager *Manager, executor *Executor, actions ActionLookup, typePlugin string, logger *zap.SugaredLogger) *Sink {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		manager:    manager,
		executor:   executor,
		actions:    actions,
		typePlugin: typePlugin,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		queue:      make(chan confirmation, sinkQueueSize),
	}

	s.wg.Add(1)
	go s.work()

	return s
}

// OnPrediction implements pipeline.Listener.
func (s *Sink) OnPrediction(pipeline.Result) {}

// OnConfirm queues letter for its plugin. When the queue is full the letter
// is dropped with a warning.
func (s *Sink) OnConfirm(sessionID, letter string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.queue <- confirmation{session: sessionID, letter: letter}:
	default:
		s.logger.Warnw("plugin queue full, dropping letter", "session", sessionID, "letter", letter)
	}
}

// Dispatch runs the action bound to letter and returns its response. It
// returns nil, nil when nothing is bound.
func (s *Sink) Dispatch(ctx context.Context, sessionID, letter string) (*Response, error) {
	plugin, req, err := s.resolve(sessionID, letter)
	if err != nil || plugin == nil {
		return nil, err
	}

	resp, err := s.executor.Execute(ctx, plugin, req)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", plugin.Manifest.Name, err)
	}
	return resp, nil
}

// Close stops accepting letters, waits for queued ones to be handled and
// cancels a plugin still running after that.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
	return nil
}

func (s *Sink) work() {
	defer s.wg.Done()

	for c := range s.queue {
		resp, err := s.Dispatch(s.ctx, c.session, c.letter)
		switch {
		case err != nil:
			s.logger.Errorw("plugin action failed", "session", c.session, "letter", c.letter, "error", err)
		case resp != nil && !resp.Success:
			s.logger.Warnw("plugin reported failure", "session", c.session, "letter", c.letter, "error", resp.Error)
		case resp != nil:
			s.logger.Debugw("plugin action done", "session", c.session, "letter", c.letter)
		}
	}
}

func (s *Sink) resolve(sessionID, letter string) (*Plugin, *Request, error) {
	params, err := json.Marshal(TypeParams{Text: letter})
	if err != nil {
		return nil, nil, err
	}

	req := &Request{
		Letter:  letter,
		Session: sessionID,
		Config:  json.RawMessage("{}"),
		Params:  params,
	}

	var pluginName string
	if s.actions != nil {
		action, err := s.actions.ForLetter(letter)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup action for %q: %w", letter, err)
		}
		if action != nil {
			pluginName = action.PluginName
			req.Action = action.ActionName
			if len(action.Config) > 0 {
				req.Config = action.Config
			}
		}
	}

	if pluginName == "" {
		if s.typePlugin == "" {
			return nil, nil, nil
		}
		pluginName = s.typePlugin
		req.Action = TypeAction
	}

	plugin, err := s.manager.Get(pluginName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, pluginName)
	}
	if !plugin.Manifest.Supports(req.Action) {
		return nil, nil, fmt.Errorf("plugin %s does not support action %q", pluginName, req.Action)
	}

	return plugin, req, nil
}
