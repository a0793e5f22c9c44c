package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWebSocket(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(s.extractWebSocketHandler))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/extract/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []WebSocketExtractResponse {
	t.Helper()

	var frames []WebSocketExtractResponse
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var frame WebSocketExtractResponse
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
		if frame.Status == "completed" || frame.Status == "error" {
			return frames
		}
	}
}

func TestExtractWebSocket_StreamsProgress(t *testing.T) {
	s := newTestServer(&fakeCore{result: okResult()})
	conn := dialWebSocket(t, s)

	req := WebSocketExtractRequest{Document: []byte("fake document bytes")}
	require.NoError(t, conn.WriteJSON(req))

	frames := readFrames(t, conn)
	require.GreaterOrEqual(t, len(frames), 3)

	assert.Equal(t, "processing", frames[0].Status)
	assert.Equal(t, 1, frames[0].PagesTotal)

	last := frames[len(frames)-1]
	assert.Equal(t, "completed", last.Status)
	require.NotNil(t, last.Result)
	assert.Equal(t, "fp", last.Result.Fingerprint)
	assert.NotEmpty(t, last.RequestID)
}

func TestExtractWebSocket_Labs(t *testing.T) {
	s := newTestServer(&fakeCore{result: okResult()})
	conn := dialWebSocket(t, s)

	require.NoError(t, conn.WriteJSON(WebSocketExtractRequest{
		Document: []byte("fake"),
		Labs:     true,
	}))

	frames := readFrames(t, conn)
	last := frames[len(frames)-1]
	require.Equal(t, "completed", last.Status)
	require.Len(t, last.Labs, 1)
	assert.Equal(t, "hemoglobin", last.Labs[0].Name)
}

func TestExtractWebSocket_SlowRequestKeepsConnection(t *testing.T) {
	old := wsReadTimeout
	wsReadTimeout = 150 * time.Millisecond
	defer func() { wsReadTimeout = old }()

	s := newTestServer(&fakeCore{result: okResult(), delay: 400 * time.Millisecond})
	conn := dialWebSocket(t, s)

	require.NoError(t, conn.WriteJSON(WebSocketExtractRequest{Document: []byte("fake")}))
	frames := readFrames(t, conn)
	require.Equal(t, "completed", frames[len(frames)-1].Status)

	// The first extraction outlived the read deadline. The connection must
	// still accept the next request.
	require.NoError(t, conn.WriteJSON(WebSocketExtractRequest{Document: []byte("fake")}))
	frames = readFrames(t, conn)
	assert.Equal(t, "completed", frames[len(frames)-1].Status)
}

func TestExtractWebSocket_Errors(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		s := newTestServer(&fakeCore{result: okResult()})
		conn := dialWebSocket(t, s)

		require.NoError(t, conn.WriteJSON(WebSocketExtractRequest{}))
		frames := readFrames(t, conn)
		assert.Equal(t, "error", frames[len(frames)-1].Status)
	})

	t.Run("malformed json", func(t *testing.T) {
		s := newTestServer(&fakeCore{result: okResult()})
		conn := dialWebSocket(t, s)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		frames := readFrames(t, conn)
		assert.Equal(t, "error", frames[len(frames)-1].Status)
	})

	t.Run("invalid render override", func(t *testing.T) {
		s := newTestServer(&fakeCore{result: okResult()})
		conn := dialWebSocket(t, s)

		require.NoError(t, conn.WriteJSON(WebSocketExtractRequest{
			Document:  []byte("fake"),
			ColorMode: "sepia",
		}))
		frames := readFrames(t, conn)
		assert.Equal(t, "error", frames[len(frames)-1].Status)
	})
}
