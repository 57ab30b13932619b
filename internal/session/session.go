// Package session runs the per-connection state machine: registration, the
// request/reply loop, asynchronous notification delivery and cleanup.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard/internal/core"
	"github.com/vovakirdan/wireboard/internal/proto"
)

// Conn is a framed duplex transport. ReadFrame is only called from the
// session's read loop; WriteFrame calls are serialized by the session.
type Conn interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, frame []byte) error
	Close() error
	RemoteAddr() string
}

// State is the lifecycle stage of a session.
type State int32

const (
	StateConnecting State = iota
	StateRegistering
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one connected client. It implements core.Mailbox.
type Session struct {
	ID string

	conn         Conn
	log          *zerolog.Logger
	writeTimeout time.Duration
	limiter      *rateLimiter

	writeMu sync.Mutex
	outbox  chan []byte
	done    chan struct{}

	closeOnce   sync.Once
	cleanupOnce sync.Once
	state       atomic.Int32
	username    string
}

var _ core.Mailbox = (*Session)(nil)

func newSession(id string, conn Conn, opts Options, logger *zerolog.Logger) *Session {
	return &Session{
		ID:           id,
		conn:         conn,
		log:          logger,
		writeTimeout: opts.WriteTimeout,
		limiter:      newRateLimiter(opts.CommandRateLimit, time.Minute),
		outbox:       make(chan []byte, opts.NotifyQueueSize),
		done:         make(chan struct{}),
	}
}

// State reports the current lifecycle stage.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debug().Stringer("state", st).Msg("session state")
}

// Enqueue schedules a notification without blocking.
func (s *Session) Enqueue(text string) error {
	select {
	case <-s.done:
		return core.ErrSessionClosed
	default:
	}

	frame, err := proto.Encode(proto.NewNotification(text))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	select {
	case s.outbox <- frame:
		return nil
	default:
		return core.ErrMailboxFull
	}
}

// send writes a reply document.
func (s *Session) send(ctx context.Context, doc any) error {
	frame, err := proto.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return s.write(ctx, frame)
}

// write puts one full frame on the wire while holding the write lock.
func (s *Session) write(ctx context.Context, frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	if err := s.conn.WriteFrame(ctx, frame); err != nil {
		return core.NewError(core.ErrCodeTransport, "write frame: "+err.Error())
	}
	return nil
}

// writeLoop drains the mailbox until the session closes.
func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.outbox:
			if err := s.write(ctx, frame); err != nil {
				s.log.Warn().Err(err).Msg("notification write failed")
				s.close()
				return
			}
		}
	}
}

// close stops the writer and the transport. Safe to call repeatedly.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close transport")
		}
	})
}
