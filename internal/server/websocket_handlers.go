package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketScanRequest is a scan request over WebSocket. The image is
// base64-encoded by encoding/json.
type WebSocketScanRequest struct {
	Image     []byte `json:"image"`
	RequestID string `json:"request_id,omitempty"`
}

// WebSocketScanResponse is the streamed reply.
type WebSocketScanResponse struct {
	Status    string `json:"status"` // "processing", "completed", "error"
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// scanWebSocketHandler serves scans over a WebSocket connection so the
// client sees progress while the pipeline runs.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		var req WebSocketScanRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.writeWS(conn, WebSocketScanResponse{Status: "error", Error: "invalid request"})
			continue
		}
		s.handleWebSocketScan(r.Context(), conn, req)

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (s *Server) handleWebSocketScan(ctx context.Context, conn *websocket.Conn, req WebSocketScanRequest) {
	img, _, err := image.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.writeWS(conn, WebSocketScanResponse{Status: "error", Error: "invalid image", RequestID: req.RequestID})
		return
	}
	s.writeWS(conn, WebSocketScanResponse{Status: "processing", RequestID: req.RequestID})

	scanCtx, cancel := context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	result, err := s.pipeline.Process(scanCtx, img, s.session)
	if err != nil {
		scanRequestsTotal.WithLabelValues("error").Inc()
		s.writeWS(conn, WebSocketScanResponse{Status: "error", Error: err.Error(), RequestID: req.RequestID})
		return
	}
	scanRequestsTotal.WithLabelValues("ok").Inc()
	s.writeWS(conn, WebSocketScanResponse{Status: "completed", Result: result, RequestID: req.RequestID})
}

func (s *Server) writeWS(conn *websocket.Conn, resp WebSocketScanResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("WebSocket write failed", "error", err)
	}
}
