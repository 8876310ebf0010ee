package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/gesture"
	"github.com/ryanhyunminbae/airtype/internal/pipeline"
	"github.com/ryanhyunminbae/airtype/internal/source"
	"github.com/ryanhyunminbae/airtype/internal/stabilizer"
)

const (
	// writeWait bounds a single message write.
	writeWait = 10 * time.Second
	// maxMessageSize bounds one incoming frame.
	maxMessageSize = 1 << 20
)

// sessionKind tags sessions created over WebSocket.
const sessionKind = "server"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Outgoing message types.
const (
	msgSession    = "session"
	msgPrediction = "prediction"
	msgConfirm    = "confirm"
	msgError      = "error"
)

type sessionMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type predictionMessage struct {
	Type       string            `json:"type"`
	Letter     string            `json:"letter"`
	Confidence float64           `json:"confidence"`
	Source     gesture.Source    `json:"source,omitempty"`
	Streak     stabilizer.Streak `json:"streak"`
	Progress   float64           `json:"progress"`
}

type confirmMessage struct {
	Type   string `json:"type"`
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// SessionHandler runs one recognition session per WebSocket connection.
// Clients send landmark frames; the handler replies with a prediction per
// processed frame and a confirm message per confirmed letter.
type SessionHandler struct {
	sessions SessionFactory
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionFactory, logger *zap.SugaredLogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
		clients:  make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, logger: h.logger}

	session, err := h.sessions.NewSession(sessionKind)
	if err != nil {
		h.logger.Errorw("failed to create session", "error", err)
		c.send(errorMessage{Type: msgError, Error: "session unavailable"})
		return
	}
	defer h.sessions.EndSession(session)

	c.session = session
	session.AddListener(c)

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	session.Preload()
	c.send(sessionMessage{Type: msgSession, ID: session.ID()})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debugw("websocket closed", "session", session.ID(), "error", err)
			}
			return
		}

		frame, err := source.DecodeFrame(data)
		if err != nil {
			c.send(errorMessage{Type: msgError, Error: err.Error()})
			continue
		}

		session.Process(frame.Hand())
	}
}

// CloseAll disconnects every client. Their sessions end as their read loops return.
func (h *SessionHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// client forwards session output to one connection. Listeners run on the
// connection's read goroutine, so writes never overlap.
type client struct {
	conn    *websocket.Conn
	session *pipeline.Session
	logger  *zap.SugaredLogger
}

// OnPrediction implements pipeline.Listener.
func (c *client) OnPrediction(r pipeline.Result) {
	msg := predictionMessage{
		Type:     msgPrediction,
		Streak:   r.Streak,
		Progress: r.Progress,
	}
	if r.Prediction != nil {
		msg.Letter = r.Prediction.Letter
		msg.Confidence = r.Prediction.Confidence
		msg.Source = r.Prediction.Source
	}
	c.send(msg)
}

// OnConfirm implements pipeline.Listener.
func (c *client) OnConfirm(_, letter string) {
	c.send(confirmMessage{Type: msgConfirm, Letter: letter, Text: c.session.Text()})
}

func (c *client) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Errorw("failed to encode message", "error", err)
		return
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debugw("websocket write failed", "error", err)
	}
}
