package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/mirror/internal/ir"
)

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 10 * time.Second

// wsConn serializes writes to one websocket connection.
// gorilla/websocket allows one concurrent writer per connection.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	timeout time.Duration
}

func (c *wsConn) writeFrame(ctx context.Context, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// readFrames reads text frames until the connection fails, decoding each
// into an envelope. Undecodable frames are logged and skipped.
func readFrames(conn *websocket.Conn, logger *slog.Logger, deliver func(ir.Envelope, []byte)) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var env ir.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn("dropping undecodable frame", "error", err, "bytes", len(data))
			continue
		}
		deliver(env, data)
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed)
}

// WebSocketServer is the hub of a WebSocket star.
//
// The server is itself a Transport for the node running it. Frames from a
// client are delivered to the local node and rebroadcast to every other
// client; frames sent by the local node go to every client.
type WebSocketServer struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	timeout  time.Duration
	handlers handlers

	mu     sync.Mutex
	conns  map[*wsConn]struct{}
	closed bool
}

var _ Transport = (*WebSocketServer)(nil)

// NewWebSocketServer creates a server with no connected clients.
// A nil logger uses slog.Default().
func NewWebSocketServer(logger *slog.Logger) *WebSocketServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger:  logger,
		timeout: DefaultWriteTimeout,
		conns:   make(map[*wsConn]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects.
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &wsConn{conn: conn, timeout: s.timeout}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = c.close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("peer connected", "remote", r.RemoteAddr)

	err = readFrames(conn, s.logger, func(env ir.Envelope, frame []byte) {
		s.handlers.dispatch(env)
		if err := s.broadcast(r.Context(), frame, c); err != nil {
			s.logger.Warn("rebroadcast failed", "envelope", env.ID, "error", err)
		}
	})

	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = conn.Close()

	if err != nil && !isNormalClose(err) {
		s.logger.Warn("peer disconnected", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.logger.Info("peer disconnected", "remote", r.RemoteAddr)
}

// broadcast writes frame to every client except skip, concurrently.
func (s *WebSocketServer) broadcast(ctx context.Context, frame []byte, skip *wsConn) error {
	s.mu.Lock()
	targets := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		if c != skip {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, c := range targets {
		g.Go(func() error {
			return c.writeFrame(ctx, frame)
		})
	}
	return g.Wait()
}

// Send implements Transport.
func (s *WebSocketServer) Send(ctx context.Context, env ir.Envelope) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", env.ID, err)
	}
	return s.broadcast(ctx, frame, nil)
}

// OnReceive implements Transport.
func (s *WebSocketServer) OnReceive(h Handler) (cancel func()) {
	return s.handlers.add(h)
}

// Peers returns the number of connected clients.
func (s *WebSocketServer) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every client. Close is idempotent.
func (s *WebSocketServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListenAndServe serves the websocket endpoint at path on addr until ctx is
// cancelled, then shuts the HTTP server down and closes every client.
// Extra handlers (for example a metrics endpoint) may be mounted on mux.
func (s *WebSocketServer) ListenAndServe(ctx context.Context, addr, path string, mux *http.ServeMux) error {
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.Handle(path, s)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("websocket server listening", "addr", ln.Addr().String(), "path", path)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		closeErr := s.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return closeErr
	})
	return g.Wait()
}

// WebSocketClient is a node's connection to a WebSocketServer.
type WebSocketClient struct {
	conn     *wsConn
	logger   *slog.Logger
	handlers handlers
	closed   atomic.Bool
	done     chan struct{}
	readErr  error
}

var _ Transport = (*WebSocketClient)(nil)

// DialWebSocket connects to a WebSocketServer at url (ws:// or wss://)
// and starts delivering inbound envelopes. A nil logger uses
// slog.Default().
func DialWebSocket(ctx context.Context, url string, logger *slog.Logger) (*WebSocketClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &WebSocketClient{
		conn:   &wsConn{conn: conn, timeout: DefaultWriteTimeout},
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WebSocketClient) readLoop() {
	defer close(c.done)
	err := readFrames(c.conn.conn, c.logger, func(env ir.Envelope, _ []byte) {
		c.handlers.dispatch(env)
	})
	if c.closed.Load() || isNormalClose(err) {
		return
	}
	c.readErr = err
	c.logger.Warn("websocket connection lost", "error", err)
}

// Send implements Transport.
func (c *WebSocketClient) Send(ctx context.Context, env ir.Envelope) error {
	if c.closed.Load() {
		return ErrClosed
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", env.ID, err)
	}
	return c.conn.writeFrame(ctx, frame)
}

// OnReceive implements Transport.
func (c *WebSocketClient) OnReceive(h Handler) (cancel func()) {
	return c.handlers.add(h)
}

// Done is closed when the connection's read loop exits.
func (c *WebSocketClient) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read loop, if the connection was
// lost rather than closed. Valid after Done is closed.
func (c *WebSocketClient) Err() error {
	<-c.done
	return c.readErr
}

// Close disconnects from the server and waits for the read loop to exit.
func (c *WebSocketClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	err := c.conn.close()
	<-c.done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
