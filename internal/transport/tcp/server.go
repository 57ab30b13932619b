// Package tcp serves the bulletin board protocol over plain TCP sockets.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard/internal/session"
)

// Server accepts TCP connections and hands each to the session handler.
type Server struct {
	handler       *session.Handler
	maxFrameBytes int
	log           *zerolog.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewServer builds a TCP server around a session handler.
func NewServer(handler *session.Handler, maxFrameBytes int, logger *zerolog.Logger) *Server {
	return &Server{handler: handler, maxFrameBytes: maxFrameBytes, log: logger}
}

// Listen binds the address. Port 0 picks a free port; see Addr.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close releases the listener without waiting for sessions.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// Serve accepts connections until ctx is cancelled, then waits for every
// session to finish its cleanup. A fatal accept error ends every session
// before Serve returns it.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("tcp server: Serve called before Listen")
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")

	var tempDelay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			if temporary(err) {
				tempDelay = backoff(tempDelay)
				s.log.Warn().Err(err).Dur("retry_in", tempDelay).Msg("accept")
				time.Sleep(tempDelay)
				continue
			}
			s.log.Error().Err(err).Msg("accept failed, closing sessions")
			_ = ln.Close()
			cancel()
			s.wg.Wait()
			return fmt.Errorf("accept: %w", err)
		}
		tempDelay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler.Serve(sessCtx, newConn(c, s.maxFrameBytes))
		}()
	}

	s.wg.Wait()
	s.log.Info().Msg("tcp listener stopped")
	return nil
}

// temporary reports accept errors worth retrying: timeouts and running out of
// file descriptors.
func temporary(err error) bool {
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}
