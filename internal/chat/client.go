package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"twitch-overlay/internal/telemetry"
)

const (
	defaultDialTimeout  = 15 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

var (
	// ErrNotConnected is returned when a write is attempted without a live
	// transport.
	ErrNotConnected = errors.New("chat: not connected")
	// ErrEmptyChannel is returned by Connect when the channel normalizes to "".
	ErrEmptyChannel = errors.New("chat: channel is empty")
	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("chat: client is closed")
)

// State is the connection status of a Client.
type State int32

const (
	Disconnected State = iota
	Connecting
	Joined
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	default:
		return "disconnected"
	}
}

// Dialer opens the relay transport. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Handler receives client events. Calls are serialized and never overlap.
// Handlers must return quickly and must not call Connect, Disconnect or Close
// synchronously.
type Handler interface {
	MessageReceived(msg Message)
	ConnectedChanged(connected bool)
	CurrentChannelChanged(channel string)
	ConnectionError(description string)
}

// HandlerFuncs adapts optional functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	OnMessage          func(Message)
	OnConnectedChanged func(connected bool)
	OnChannelChanged   func(channel string)
	OnConnectionError  func(description string)
}

func (h HandlerFuncs) MessageReceived(msg Message) {
	if h.OnMessage != nil {
		h.OnMessage(msg)
	}
}

func (h HandlerFuncs) ConnectedChanged(connected bool) {
	if h.OnConnectedChanged != nil {
		h.OnConnectedChanged(connected)
	}
}

func (h HandlerFuncs) CurrentChannelChanged(channel string) {
	if h.OnChannelChanged != nil {
		h.OnChannelChanged(channel)
	}
}

func (h HandlerFuncs) ConnectionError(description string) {
	if h.OnConnectionError != nil {
		h.OnConnectionError(description)
	}
}

// Options configures a Client. Zero fields take defaults.
type Options struct {
	// Address is the relay host:port. Defaults to DefaultAddress.
	Address string
	// Dialer opens the transport. Defaults to a *net.Dialer.
	Dialer Dialer
	// Handler receives events. Defaults to a no-op.
	Handler Handler
	// KeepAliveInterval defaults to KeepAliveInterval.
	KeepAliveInterval time.Duration
	DialTimeout       time.Duration
	WriteTimeout      time.Duration
}

// Client is a read-only relay client for one channel at a time.
//
// Lock ordering (never acquire in reverse):
//
//	notifyMu -> mu
//
// notifyMu serializes handler calls and session replacement, so a handler
// never sees events of a session that has already been replaced.
type Client struct {
	address      string
	dialer       Dialer
	handler      Handler
	keepAlive    time.Duration
	dialTimeout  time.Duration
	writeTimeout time.Duration

	newID func() string
	now   func() time.Time

	notifyMu sync.Mutex

	mu      sync.Mutex
	session *session
	state   State
	channel string
	closed  bool

	wg sync.WaitGroup
}

// NewClient creates a disconnected client.
func NewClient(opts Options) *Client {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if opts.Dialer == nil {
		opts.Dialer = &net.Dialer{KeepAlive: 30 * time.Second}
	}
	if opts.Handler == nil {
		opts.Handler = HandlerFuncs{}
	}
	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = KeepAliveInterval
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Client{
		address:      opts.Address,
		dialer:       opts.Dialer,
		handler:      opts.Handler,
		keepAlive:    opts.KeepAliveInterval,
		dialTimeout:  opts.DialTimeout,
		writeTimeout: opts.WriteTimeout,
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

// session is one relay connection. It is never reused.
type session struct {
	channel string
	token   string

	ctx    context.Context
	cancel context.CancelFunc

	writeTimeout time.Duration

	// mu guards conn and closed.
	mu     sync.Mutex
	conn   net.Conn
	closed bool

	// writeMu serializes line writes from the reader and keep-alive loops.
	writeMu sync.Mutex
}

func (s *session) attach(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

func (s *session) close() {
	s.cancel()
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		if err := conn.Close(); err != nil {
			slog.Debug("[chat] transport close", "error", err)
		}
	}
}

func (s *session) writeLine(line string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := conn.Write([]byte(line + lineEnd)); err != nil {
		return fmt.Errorf("write %q: %w", redactLine(line), err)
	}
	slog.Debug("[chat] DEBUG sent", "line", redactLine(line))
	return nil
}

// Connect tears down any current session and starts a new one for channel.
// It returns once the attempt is under way; progress is reported through
// the Handler.
func (c *Client) Connect(channel, token string) error {
	ch := NormalizeChannel(channel)
	if ch == "" {
		return ErrEmptyChannel
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		channel:      ch,
		token:        NormalizeToken(token),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: c.writeTimeout,
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return ErrClosed
	}
	old := c.session
	wasJoined := c.state == Joined
	c.session = s
	c.state = Connecting
	c.channel = ch
	c.wg.Go(func() { c.run(s) })
	c.mu.Unlock()

	if old != nil {
		old.close()
	}
	if wasJoined {
		telemetry.SetChatConnected(false)
		c.handler.ConnectedChanged(false)
	}

	slog.Info("[chat] connecting", "address", c.address, "channel", ch)
	return nil
}

// Disconnect closes the current session. It is a no-op when disconnected.
func (c *Client) Disconnect() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	s := c.session
	wasJoined := c.state == Joined
	c.session = nil
	c.state = Disconnected
	c.mu.Unlock()

	if s == nil {
		return
	}
	s.close()
	slog.Info("[chat] disconnected", "channel", s.channel)
	if wasJoined {
		telemetry.SetChatConnected(false)
		c.handler.ConnectedChanged(false)
	}
}

// Close disconnects, rejects further Connect calls and waits for session
// goroutines to exit.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.Disconnect()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("chat: wait for session goroutines: %w", ctx.Err())
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the client has joined its channel.
func (c *Client) Connected() bool {
	return c.State() == Joined
}

// Channel returns the last requested channel, normalized. It is kept after
// a disconnect.
func (c *Client) Channel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Client) run(s *session) {
	telemetry.IncConnectAttempts()

	dialCtx, cancel := context.WithTimeout(s.ctx, c.dialTimeout)
	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.address)
	cancel()
	if err != nil {
		c.endSession(s, fmt.Errorf("dial %s: %w", c.address, err))
		return
	}
	if !s.attach(conn) {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Debug("[chat] close superseded transport", "error", closeErr)
		}
		return
	}
	slog.Info("[chat] transport connected", "address", c.address)

	for _, line := range handshake(s.channel, s.token) {
		if err := s.writeLine(line); err != nil {
			c.endSession(s, fmt.Errorf("handshake: %w", err))
			return
		}
	}
	if !c.markJoined(s) {
		return
	}

	c.wg.Go(func() { c.keepAliveLoop(s) })
	c.readLoop(s, conn)
}

func (c *Client) markJoined(s *session) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return false
	}
	c.state = Joined
	c.mu.Unlock()

	telemetry.SetChatConnected(true)
	slog.Info("[chat] joined channel", "channel", s.channel)
	c.handler.ConnectedChanged(true)
	c.handler.CurrentChannelChanged(s.channel)
	return true
}

func (c *Client) readLoop(s *session, conn net.Conn) {
	lr := newLineReader(conn)
	for {
		line, ok := lr.Next()
		if !ok {
			break
		}
		c.handleLine(s, line)
	}
	c.endSession(s, lr.Err())
}

func (c *Client) handleLine(s *session, line string) {
	kind, msg := ParseLine(line)
	telemetry.ObserveChatLine(kind.String())

	switch kind {
	case LinePing:
		if err := s.writeLine(pongLine); err != nil {
			slog.Warn("[chat] failed to answer PING", "error", err)
		}
	case LinePrivmsg:
		msg.ID = c.newID()
		msg.Channel = s.channel
		msg.ReceivedAt = c.now()
		if c.notify(s, func(h Handler) { h.MessageReceived(msg) }) {
			telemetry.IncChatMessages()
		}
	case LineMalformed:
		slog.Debug("[chat] dropped malformed PRIVMSG", "line", line)
	}
}

func (c *Client) keepAliveLoop(s *session) {
	ticker := time.NewTicker(c.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeLine(pingLine); err != nil {
				c.endSession(s, fmt.Errorf("keep-alive: %w", err))
				return
			}
		}
	}
}

// notify delivers fn to the handler if s is still the current session.
func (c *Client) notify(s *session, fn func(Handler)) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	current := c.session == s
	c.mu.Unlock()
	if !current {
		return false
	}
	fn(c.handler)
	return true
}

// endSession finishes s after a transport failure or remote close. A nil
// cause means the relay closed the stream cleanly. Sessions that were
// already replaced or disconnected end silently.
func (c *Client) endSession(s *session, cause error) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		s.close()
		return
	}
	wasJoined := c.state == Joined
	c.session = nil
	c.state = Disconnected
	c.mu.Unlock()

	s.close()
	if wasJoined {
		telemetry.SetChatConnected(false)
		c.handler.ConnectedChanged(false)
	}
	if cause == nil {
		slog.Info("[chat] relay closed the connection", "channel", s.channel)
		return
	}
	telemetry.IncConnectionErrors()
	slog.Warn("[chat] connection error", "channel", s.channel, "error", cause)
	c.handler.ConnectionError(cause.Error())
}
