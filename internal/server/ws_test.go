package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanhyunminbae/airtype/internal/app"
	"github.com/ryanhyunminbae/airtype/internal/landmark"
	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/plugin"
)

type wsMessage struct {
	Type       string  `json:"type"`
	ID         string  `json:"id"`
	Letter     string  `json:"letter"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Streak     struct {
		Letter string `json:"letter"`
		Count  int    `json:"count"`
	} `json:"streak"`
	Progress float64 `json:"progress"`
	Text     string  `json:"text"`
	Error    string  `json:"error"`
}

func dialSession(t *testing.T) *websocket.Conn {
	t.Helper()

	a, err := app.New(app.Config{
		Plugins: plugin.Config{Dir: t.TempDir()},
		Logger:  logging.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ts := httptest.NewServer(newTestServer(Config{}, Deps{Sessions: a}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg), "message %s", data)
	return msg
}

func TestSessionHandler_ConfirmsHeldPose(t *testing.T) {
	conn := dialSession(t)

	hello := readMessage(t, conn)
	require.Equal(t, msgSession, hello.Type)
	require.NotEmpty(t, hello.ID)

	frame := frameJSON(t, landmark.FistLandmarks())
	for i := 1; i <= 12; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

		msg := readMessage(t, conn)
		require.Equal(t, msgPrediction, msg.Type, "frame %d", i)
		require.Equal(t, "A", msg.Letter, "frame %d", i)
		require.Equal(t, "prototype", msg.Source, "frame %d", i)

		wantCount := i
		if i == 12 {
			wantCount = 0
		}
		assert.Equal(t, wantCount, msg.Streak.Count, "frame %d", i)
	}

	confirm := readMessage(t, conn)
	assert.Equal(t, msgConfirm, confirm.Type)
	assert.Equal(t, "A", confirm.Letter)
	assert.Equal(t, "A", confirm.Text)
}

func TestSessionHandler_NoHandResets(t *testing.T) {
	conn := dialSession(t)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frameJSON(t, landmark.CShapeLandmarks())))
	msg := readMessage(t, conn)
	require.Equal(t, "C", msg.Letter)
	require.Equal(t, 1, msg.Streak.Count)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hands":[]}`)))
	msg = readMessage(t, conn)
	assert.Equal(t, msgPrediction, msg.Type)
	assert.Empty(t, msg.Letter)
	assert.Zero(t, msg.Streak.Count)
}

func TestSessionHandler_MalformedFrame(t *testing.T) {
	conn := dialSession(t)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	msg := readMessage(t, conn)
	require.Equal(t, msgError, msg.Type)
	require.NotEmpty(t, msg.Error)

	// The connection stays usable.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frameJSON(t, landmark.FistLandmarks())))
	assert.Equal(t, msgPrediction, readMessage(t, conn).Type)
}
