package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/proto"
	"github.com/vovakirdan/linechat/internal/utils"
)

const (
	readBufferSize      = 1024
	defaultWriteTimeout = 10 * time.Second
	rejectWriteTimeout  = time.Second
	maxAcceptBackoff    = time.Second
)

// Hub is the part of core.Hub the transport talks to.
type Hub interface {
	RegisterClient(c *core.Client) error
	UnregisterClient(c *core.Client)
	Dispatch(c *core.Client, line proto.Line)
}

// Options tunes per-connection buffers.
type Options struct {
	MaxLineBytes int
	OutboxSize   int
	WriteTimeout time.Duration
}

// Server accepts TCP connections and bridges them to the hub.
type Server struct {
	hub  Hub
	opts Options
	log  *zerolog.Logger
	wg   sync.WaitGroup
}

// NewServer builds a TCP server for the hub.
func NewServer(hub Hub, opts Options, logger *zerolog.Logger) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{hub: hub, opts: opts, log: logger}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled or ln is closed.
// Other accept errors are retried with backoff. It returns nil after cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			// Anything else (EMFILE, ECONNABORTED, timeouts) is retried.
			backoff = nextBackoff(backoff)
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept error")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Wait blocks until every connection goroutine has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleConn(conn net.Conn) {
	client := core.NewClient(utils.NewID(), conn.RemoteAddr().String(), s.opts.OutboxSize)
	logger := s.log.With().Str("client_id", client.ID).Str("remote", client.Remote).Logger()

	if err := s.hub.RegisterClient(client); err != nil {
		if errors.Is(err, core.ErrCapacityExceeded) {
			_ = conn.SetWriteDeadline(time.Now().Add(rejectWriteTimeout))
			_, _ = conn.Write(proto.Error(core.ErrCodeCapacityExceeded).Encode())
		}
		logger.Info().Err(err).Msg("connection rejected")
		_ = conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(conn, client, &logger)
	}()

	s.readLoop(conn, client, &logger)
	<-done
}

func (s *Server) readLoop(conn net.Conn, client *core.Client, logger *zerolog.Logger) {
	defer s.hub.UnregisterClient(client)

	splitter := proto.NewSplitter(s.opts.MaxLineBytes)
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range splitter.Feed(buf[:n]) {
				s.hub.Dispatch(client, line)
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug().Msg("client closed connection")
			case errors.Is(err, net.ErrClosed):
				logger.Debug().Msg("connection closed by server")
			default:
				logger.Warn().Err(err).Msg("read error")
			}
			return
		}
	}
}

// writeLoop drains the outbox until the hub closes it, then closes the socket.
func (s *Server) writeLoop(conn net.Conn, client *core.Client, logger *zerolog.Logger) {
	defer conn.Close()

	for f := range client.Outbox() {
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		if _, err := conn.Write(f.Encode()); err != nil {
			logger.Warn().Err(err).Msg("write error")
			s.hub.UnregisterClient(client)
			for range client.Outbox() {
			}
			return
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}
