// Package core runs the HTTP/1.1 media server: connection acceptance,
// per-connection request loops and graceful shutdown.
package core

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"

	"github.com/searchktools/stream-server/core/http"
	"github.com/searchktools/stream-server/core/observability"
)

// Server defaults.
const (
	DefaultMaxConnections = 10000
	DefaultIdleTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 30 * time.Second

	writeBufSize = 4 * 1024
)

// ServerOptions configures a Server. The zero value of each field selects a
// sensible default; Handler is the only required field.
type ServerOptions struct {
	Addr    string
	Handler http.Handler

	// MaxConnections caps concurrently accepted connections. Negative
	// disables the cap.
	MaxConnections int

	// MaxHeaderBytes bounds the request header section per message.
	MaxHeaderBytes int

	// IdleTimeout bounds the wait for the next request on a keep-alive
	// connection. WriteTimeout bounds each response write burst; long-lived
	// media streams keep it refreshed per write loop iteration.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration

	// Metrics receives connection and request counters when set.
	Metrics *observability.Metrics
}

// Server accepts connections and drives one request loop per connection.
type Server struct {
	opts ServerOptions

	mu     sync.Mutex
	ln     net.Listener
	conns  map[string]net.Conn
	closed bool

	wg sync.WaitGroup
}

// NewServer creates a server with opts, filling in defaults.
func NewServer(opts ServerOptions) *Server {
	if opts.MaxConnections == 0 {
		opts.MaxConnections = DefaultMaxConnections
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Server{
		opts:  opts,
		conns: make(map[string]net.Conn),
	}
}

// ListenAndServe binds the configured address and serves until Close or
// Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	tuneListener(ln)
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}

	log.Printf("🚀 Stream server listening on %s", ln.Addr())
	log.Printf("📊 Limits: %d connections, %s idle timeout", s.opts.MaxConnections, s.opts.IdleTimeout)
	return s.Serve(ln)
}

// Serve accepts connections from ln until the listener is closed. It returns
// nil after Close or Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				// Transient accept failure, back off and retry.
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else if delay *= 2; delay > time.Second {
					delay = time.Second
				}
				log.Printf("⚠️ Accept error: %v, retrying in %v", err, delay)
				time.Sleep(delay)
				continue
			}
			return err
		}
		delay = 0

		tuneConn(conn)
		id := uuid.NewString()

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.conns[id] = conn
		s.mu.Unlock()

		if m := s.opts.Metrics; m != nil {
			m.ConnectionsTotal.Inc()
			m.ConnectionsActive.Inc()
		}
		s.wg.Add(1)
		go s.serveConn(id, conn)
	}
}

// serveConn runs the keep-alive request loop of one connection.
func (s *Server) serveConn(id string, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		if m := s.opts.Metrics; m != nil {
			m.ConnectionsActive.Dec()
		}
	}()

	builder := http.NewMessageBuilder(conn, s.opts.MaxHeaderBytes)
	defer builder.Close()
	bw := bufio.NewWriterSize(conn, writeBufSize)

	for {
		if s.opts.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		}

		msg, err := builder.Next()
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.rejectRequest(id, conn, bw, err, builder.ShouldKeepAlive())
			}
			return
		}
		// The body may arrive slower than the header; keep the deadline
		// fresh while the handler reads and writes.
		if s.opts.WriteTimeout > 0 {
			conn.SetDeadline(time.Now().Add(s.opts.WriteTimeout))
		} else {
			conn.SetReadDeadline(time.Time{})
		}

		w := http.NewResponseWriter(bw)
		if err := s.opts.Handler.ServeHTTP(w, msg); err != nil {
			log.Printf("⚠️ conn %s: %s %s: %v", id, msg.Method(), msg.Path(), err)
			return
		}
		if err := w.FinalRequest(); err != nil && !errors.Is(err, http.ErrResponseFinalized) {
			log.Printf("⚠️ conn %s: finalize %s: %v", id, msg.Path(), err)
			return
		}
		if err := bw.Flush(); err != nil {
			return
		}
		if !msg.IsKeepAlive() {
			return
		}
	}
}

// rejectRequest answers a malformed request with a best-effort 400 before the
// connection closes. The tokenizer's keep-alive verdict is advisory here: the
// parse state is unrecoverable, so the connection goes down either way.
func (s *Server) rejectRequest(id string, conn net.Conn, bw *bufio.Writer, cause error, keepAlive bool) {
	if m := s.opts.Metrics; m != nil {
		m.ParseErrorsTotal.Inc()
	}
	log.Printf("⚠️ conn %s: reject: %v (keep-alive verdict %v)", id, cause, keepAlive)

	if s.opts.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	w := http.NewResponseWriter(bw)
	if err := http.Error(w, http.StatusBadRequest); err == nil {
		bw.Flush()
	}
}

// Close immediately closes the listener and every open connection.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// Shutdown stops accepting and waits for in-flight connections to finish or
// ctx to expire, whichever comes first. Remaining connections are then closed
// forcefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.ln != nil {
		s.ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for _, c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		<-done
		return ctx.Err()
	}
}
