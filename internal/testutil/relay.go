package testutil

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// RelayTimeout bounds every blocking Relay and RelayConn operation.
const RelayTimeout = 2 * time.Second

// Relay is a loopback stand-in for the chat relay. Tests accept the client's
// connection and script the relay side line by line.
type Relay struct {
	t  *testing.T
	ln net.Listener
}

// NewRelay listens on an OS-assigned loopback port until the test ends.
func NewRelay(t *testing.T) *Relay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return &Relay{t: t, ln: ln}
}

// Addr returns the host:port clients should dial.
func (r *Relay) Addr() string { return r.ln.Addr().String() }

// Accept waits for the next client connection.
func (r *Relay) Accept() *RelayConn {
	r.t.Helper()
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := r.ln.Accept()
		ch <- result{conn, err}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			r.t.Fatalf("accept: %v", res.err)
		}
		r.t.Cleanup(func() { _ = res.conn.Close() })
		return &RelayConn{t: r.t, conn: res.conn, rd: bufio.NewReader(res.conn)}
	case <-time.After(RelayTimeout):
		r.t.Fatal("client never dialed the relay")
		return nil
	}
}

// RelayConn is the relay side of one accepted connection.
type RelayConn struct {
	t    *testing.T
	conn net.Conn
	rd   *bufio.Reader
}

// ReadLine reads one CRLF-terminated line and returns it without the
// terminator.
func (c *RelayConn) ReadLine() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(RelayTimeout))
	line, err := c.rd.ReadString('\n')
	if err != nil {
		c.t.Fatalf("relay read: %v", err)
	}
	if !strings.HasSuffix(line, "\r\n") {
		c.t.Fatalf("line %q is not CRLF terminated", line)
	}
	return strings.TrimSuffix(line, "\r\n")
}

// ExpectSilent fails the test if the client writes anything within d.
func (c *RelayConn) ExpectSilent(d time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	line, err := c.rd.ReadString('\n')
	if err == nil || line != "" {
		c.t.Fatalf("unexpected client write %q", line)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		c.t.Fatalf("relay read: %v", err)
	}
}

// ExpectHandshake consumes the four login lines and returns them.
func (c *RelayConn) ExpectHandshake() []string {
	c.t.Helper()
	lines := make([]string, 4)
	for i := range lines {
		lines[i] = c.ReadLine()
	}
	return lines
}

// Send writes raw bytes to the client as-is.
func (c *RelayConn) Send(raw string) {
	c.t.Helper()
	if _, err := io.WriteString(c.conn, raw); err != nil {
		c.t.Fatalf("relay write: %v", err)
	}
}

// Close drops the connection from the relay side.
func (c *RelayConn) Close() {
	_ = c.conn.Close()
}

// ExpectClosed waits for the client side to close the transport.
func (c *RelayConn) ExpectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(RelayTimeout))
	for {
		_, err := c.rd.ReadString('\n')
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.t.Fatal("client did not close the transport")
		}
		return
	}
}
