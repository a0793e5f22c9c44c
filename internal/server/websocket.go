package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/pipeline"
	"github.com/pagetext-io/pagetext/internal/report"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketExtractRequest is an extraction request sent over a WebSocket
// connection. The document travels base64 encoded in the Document field.
type WebSocketExtractRequest struct {
	Document  []byte `json:"document"`
	DPI       int    `json:"dpi,omitempty"`
	ColorMode string `json:"color_mode,omitempty"`
	Language  string `json:"language,omitempty"`
	Labs      bool   `json:"labs,omitempty"`
}

// WebSocketExtractResponse is a frame sent back to the client. A request
// yields a "processing" frame, zero or more "progress" frames as pages
// finish, and a terminal "completed" or "error" frame.
type WebSocketExtractResponse struct {
	Type       string                   `json:"type"`
	Status     string                   `json:"status"` // "processing", "progress", "completed", "error"
	PagesDone  int                      `json:"pages_done,omitempty"`
	PagesTotal int                      `json:"pages_total,omitempty"`
	PageIndex  int                      `json:"page_index,omitempty"`
	PageError  string                   `json:"page_error,omitempty"`
	Result     *pipeline.DocumentResult `json:"result,omitempty"`
	Labs       []report.LabValue        `json:"labs,omitempty"`
	Error      string                   `json:"error,omitempty"`
	RequestID  string                   `json:"request_id,omitempty"`
}

// wsConn serializes writes to a WebSocket connection. Progress callbacks
// fire from worker goroutines, so frames need a write lock.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(resp WebSocketExtractResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("marshaling websocket response", "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("writing websocket message", "error", err)
	}
}

// wsProgress forwards page completion events to the client as progress
// frames.
type wsProgress struct {
	conn      *wsConn
	requestID string
}

func (p *wsProgress) OnStart(total int) {
	p.conn.send(WebSocketExtractResponse{
		Type:       "extract_response",
		Status:     "processing",
		PagesTotal: total,
		RequestID:  p.requestID,
	})
}

func (p *wsProgress) OnProgress(current, total int) {
	p.conn.send(WebSocketExtractResponse{
		Type:       "extract_response",
		Status:     "progress",
		PagesDone:  current,
		PagesTotal: total,
		RequestID:  p.requestID,
	})
}

func (p *wsProgress) OnError(index int, err error) {
	p.conn.send(WebSocketExtractResponse{
		Type:      "extract_response",
		Status:    "progress",
		PageIndex: index,
		PageError: err.Error(),
		RequestID: p.requestID,
	})
}

func (p *wsProgress) OnComplete() {}

// extractWebSocketHandler handles WebSocket connections for extraction
// with live per-page progress.
func (s *Server) extractWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(r.Context(), conn)
}

// wsReadTimeout bounds how long a connection may sit idle between client
// messages or pongs.
var wsReadTimeout = 60 * time.Second

// handleWebSocketConnection processes extraction requests from a WebSocket
// connection until the client disconnects.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	// Send ping messages to keep connection alive
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	wc := &wsConn{conn: conn}
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, wc, data)
			// Requests are handled on the read loop, so pongs go unread
			// while an extraction runs. Start a fresh deadline window
			// before the next read.
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		}
	}
}

// handleWebSocketMessage runs one extraction request and streams its
// progress back over the connection.
func (s *Server) handleWebSocketMessage(ctx context.Context, wc *wsConn, data []byte) {
	var req WebSocketExtractRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(wc, "", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	if len(req.Document) == 0 {
		s.sendWebSocketError(wc, requestID, "No document data provided")
		return
	}
	if int64(len(req.Document)) > s.maxUploadMB*1024*1024 {
		s.sendWebSocketError(wc, requestID, "Document exceeds upload limit")
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Document)))

	cfg := s.defaultRender
	if req.DPI > 0 {
		cfg.TargetDPI = req.DPI
	}
	if req.ColorMode != "" {
		cfg.ColorMode = document.ColorMode(req.ColorMode)
	}
	if req.Language != "" {
		cfg.Language = req.Language
	}
	if err := cfg.Validate(); err != nil {
		s.sendWebSocketError(wc, requestID, err.Error())
		return
	}

	reqCtx := ctx
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	result, err := s.pipeline.ProcessWithProgress(reqCtx, req.Document, cfg, &wsProgress{conn: wc, requestID: requestID})
	if err != nil {
		extractRequestsTotal.WithLabelValues("error").Inc()
		s.sendWebSocketError(wc, requestID, fmt.Sprintf("Extraction failed: %v", err))
		return
	}

	extractRequestsTotal.WithLabelValues(string(result.OverallStatus)).Inc()
	extractDuration.Observe(time.Since(start).Seconds())
	for _, pg := range result.Pages {
		pagesProcessed.WithLabelValues(string(pg.Status)).Inc()
	}

	resp := WebSocketExtractResponse{
		Type:       "extract_response",
		Status:     "completed",
		PagesDone:  len(result.Pages),
		PagesTotal: len(result.Pages),
		Result:     result,
		RequestID:  requestID,
	}
	if req.Labs {
		resp.Labs = report.Extract(result.PlainText())
	}
	wc.send(resp)
}

func (s *Server) sendWebSocketError(wc *wsConn, requestID, msg string) {
	wc.send(WebSocketExtractResponse{
		Type:      "extract_response",
		Status:    "error",
		Error:     msg,
		RequestID: requestID,
	})
}
