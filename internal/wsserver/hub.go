package wsserver

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"twitch-overlay/internal/chat"
	"twitch-overlay/internal/telemetry"
)

// writeDeadline is the maximum time allowed for a single WebSocket write to
// complete. A client that stalls longer is considered dead and dropped.
const writeDeadline = 5 * time.Second

// readDeadline is the maximum time the server waits for any read activity
// (including pong responses) before considering the connection dead.
// 90 seconds allows for ~3 missed pings (pingInterval=30s) before timeout.
const readDeadline = 90 * time.Second

// pingInterval is the interval between server-initiated WebSocket pings.
const pingInterval = 30 * time.Second

// maxReadMessageSize limits the maximum size of incoming WebSocket messages.
// Client requests are tiny JSON objects.
const maxReadMessageSize = 4 * 1024

// maxClients bounds concurrent browser sources. Extra upgrades get 503.
const maxClients = 16

var wsUpgrader = websocket.Upgrader{
	// CheckOrigin allows all origins because the server binds to 127.0.0.1
	// only. OBS browser sources load pages from file:// or other origins.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 8 * 1024,
}

//go:embed overlay.html
var overlayPage []byte

// HistoryFunc returns up to limit recent messages of the current channel,
// oldest first.
type HistoryFunc func(ctx context.Context, limit int) ([]chat.Message, error)

// HubOptions configures the WebSocket server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for OS-assigned port.
	Addr string
	// History serves client history requests. Nil disables them.
	History HistoryFunc
	// HistoryLimit is used when a request carries no positive limit.
	HistoryLimit int
}

// client is one connected browser.
// writeMu serializes WriteMessage calls; gorilla/websocket does not support
// concurrent writers on one connection.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Hub fans chat frames out to every connected WebSocket client.
//
// mu protects the client set and the last status. It is never held while
// writing to a connection or while holding a client's writeMu.
//
// Write failure policy: any write failure drops that client. The client must
// reconnect.
type Hub struct {
	opts HubOptions

	mu      sync.RWMutex
	clients map[*client]struct{}
	status  Status

	listener net.Listener
	server   *http.Server
	url      string // "ws://127.0.0.1:<port>/ws", set after Start
	pageURL  string // "http://127.0.0.1:<port>/", set after Start

	// closeOnce ensures Stop is idempotent. A stopped Hub cannot be reused.
	closeOnce sync.Once
}

// NewHub creates a Hub with the given options.
// The hub is not started until Start is called.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{
		opts:    opts,
		clients: make(map[*client]struct{}),
	}
}

// Start begins listening on the configured address and serves WebSocket
// connections on /ws and the browser-source page on /. The context is the
// server's BaseContext; the server itself must be stopped via Stop.
//
// Start must be called once, before any concurrent access.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("wsserver: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln

	port := ln.Addr().(*net.TCPAddr).Port
	h.url = fmt.Sprintf("ws://127.0.0.1:%d/ws", port)
	h.pageURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/{$}", servePage)

	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[DEBUG-WS] server started", "url", h.url)
	return nil
}

// Stop shuts down the HTTP server and closes every client connection.
// Safe to call multiple times.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[*client]struct{})
		h.mu.Unlock()
		telemetry.SetWSClients(0)

		for c := range clients {
			closeConn(c.conn, "hub stop")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}

		slog.Info("[DEBUG-WS] server stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL (e.g. "ws://127.0.0.1:54321/ws"), or an
// empty string before Start.
func (h *Hub) URL() string {
	return h.url
}

// PageURL returns the browser-source page URL, or an empty string before
// Start.
func (h *Hub) PageURL() string {
	return h.pageURL
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastMessage sends a chat message frame to every client.
func (h *Hub) BroadcastMessage(msg chat.Message) {
	h.broadcast(messageFrame(msg))
}

// SetStatus records st as the current status and broadcasts it. New clients
// receive the latest status right after connecting.
func (h *Hub) SetStatus(st Status) {
	h.mu.Lock()
	h.status = st
	h.mu.Unlock()
	h.broadcast(statusFrame(st))
}

// Status returns the last status passed to SetStatus.
func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *Hub) broadcast(f Frame) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	payload, err := EncodeFrame(f)
	if err != nil {
		slog.Warn("[DEBUG-WS] failed to encode frame", "type", f.Type, "error", err)
		return
	}
	for _, c := range targets {
		h.writeTo(c, websocket.TextMessage, payload)
	}
}

// writeTo writes one message to c and drops c on failure. Returns false when
// the client was dropped.
func (h *Hub) writeTo(c *client, messageType int, payload []byte) bool {
	c.writeMu.Lock()
	err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err == nil {
		err = c.conn.WriteMessage(messageType, payload)
		// Failure to clear is non-fatal: the next write sets a fresh deadline.
		if clearErr := c.conn.SetWriteDeadline(time.Time{}); clearErr != nil {
			slog.Debug("[DEBUG-WS] clearWriteDeadline failed (non-fatal)", "error", clearErr)
		}
	}
	c.writeMu.Unlock()

	if err != nil {
		slog.Warn("[DEBUG-WS] write failed, dropping client", "remoteAddr", c.conn.RemoteAddr(), "error", err)
		h.removeClient(c)
		closeConn(c.conn, "write error")
		return false
	}
	return true
}

func (h *Hub) writeFrame(c *client, f Frame) bool {
	payload, err := EncodeFrame(f)
	if err != nil {
		slog.Warn("[DEBUG-WS] failed to encode frame", "type", f.Type, "error", err)
		return true
	}
	return h.writeTo(c, websocket.TextMessage, payload)
}

// addClient registers c unless the hub is full.
func (h *Hub) addClient(c *client) bool {
	h.mu.Lock()
	if len(h.clients) >= maxClients {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	telemetry.SetWSClients(n)
	return true
}

// removeClient unregisters c. Returns true if c was registered.
func (h *Hub) removeClient(c *client) bool {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		telemetry.SetWSClients(n)
	}
	return ok
}

// closeConn closes a WebSocket connection. Double close is expected when
// several paths drop the same client and is logged at Debug level.
func closeConn(conn *websocket.Conn, reason string) {
	if closeErr := conn.Close(); closeErr != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", closeErr)
	}
}

func servePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(overlayPage); err != nil {
		slog.Debug("[DEBUG-WS] failed to write page", "error", err)
	}
}

// handleWS upgrades HTTP to WebSocket, sends the current status and runs the
// read pump for the connection.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	if h.ClientCount() >= maxClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}

	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		closeConn(conn, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	c := &client{conn: conn}
	if !h.addClient(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many clients"),
			time.Now().Add(time.Second))
		closeConn(conn, "client limit")
		return
	}
	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver handleWS recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		close(pingDone)
		h.removeClient(c)
		closeConn(conn, "read pump exit")
		slog.Info("[DEBUG-WS] client disconnected")
	}()

	if !h.writeFrame(c, statusFrame(h.Status())) {
		return
	}
	go h.pingLoop(c, pingDone)

	for {
		msgType, msg, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[DEBUG-WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req clientRequest
		if jsonErr := json.Unmarshal(msg, &req); jsonErr != nil {
			slog.Debug("[DEBUG-WS] invalid JSON from client", "error", jsonErr)
			if !h.writeFrame(c, errorFrame(fmt.Sprintf("invalid JSON: %s", jsonErr))) {
				return
			}
			continue
		}
		if !h.handleRequest(r.Context(), c, req) {
			return
		}
	}
}

// handleRequest serves one client request. Returns false when the client was
// dropped.
func (h *Hub) handleRequest(ctx context.Context, c *client, req clientRequest) bool {
	switch req.Action {
	case historyAction:
		if h.opts.History == nil {
			return h.writeFrame(c, errorFrame("history is not available"))
		}
		limit := clampHistoryLimit(req.Limit, h.opts.HistoryLimit)
		if limit == 0 {
			return h.writeFrame(c, Frame{Type: FrameHistory, Messages: []chat.Message{}})
		}
		msgs, err := h.opts.History(ctx, limit)
		if err != nil {
			slog.Warn("[DEBUG-WS] history lookup failed", "error", err)
			return h.writeFrame(c, errorFrame("history lookup failed"))
		}
		if msgs == nil {
			msgs = []chat.Message{}
		}
		return h.writeFrame(c, Frame{Type: FrameHistory, Messages: msgs})
	default:
		slog.Debug("[DEBUG-WS] unknown action", "action", req.Action)
		return h.writeFrame(c, errorFrame(fmt.Sprintf("unknown action %q", req.Action)))
	}
}

// pingLoop sends periodic WebSocket pings to detect dead connections.
// Runs as a goroutine per connection; exits when done is closed or ping fails.
func (h *Hub) pingLoop(c *client, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver pingLoop recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			h.removeClient(c)
			closeConn(c.conn, "pingLoop panic recovery")
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !h.writeTo(c, websocket.PingMessage, nil) {
				return
			}
		}
	}
}
