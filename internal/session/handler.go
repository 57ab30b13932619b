package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard/internal/core"
	"github.com/vovakirdan/wireboard/internal/dispatch"
	"github.com/vovakirdan/wireboard/internal/proto"
	"github.com/vovakirdan/wireboard/internal/utils"
)

// Options tune per-session resources.
type Options struct {
	NotifyQueueSize  int
	WriteTimeout     time.Duration
	CommandRateLimit int // per minute, 0 disables
}

// Handler serves connections against the shared directory and group store.
type Handler struct {
	dir   *core.Directory
	store *core.GroupStore
	disp  *dispatch.Dispatcher
	opts  Options
	log   *zerolog.Logger
}

// NewHandler wires a session handler.
func NewHandler(dir *core.Directory, store *core.GroupStore, disp *dispatch.Dispatcher, opts Options, logger *zerolog.Logger) *Handler {
	if opts.NotifyQueueSize <= 0 {
		opts.NotifyQueueSize = 64
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Handler{dir: dir, store: store, disp: disp, opts: opts, log: logger}
}

// Serve runs one connection to completion. It returns after the transport is
// closed and the user's directory entry and memberships are gone.
func (h *Handler) Serve(ctx context.Context, conn Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := utils.NewID()
	logger := h.log.With().Str("session_id", id).Str("remote", conn.RemoteAddr()).Logger()
	s := newSession(id, conn, h.opts, &logger)
	s.setState(StateConnecting)

	// Cancellation (server shutdown) unblocks the pending read by closing the transport.
	stop := context.AfterFunc(ctx, s.close)
	defer stop()

	s.setState(StateRegistering)
	username, ok := h.register(ctx, s)
	if !ok {
		s.close()
		s.setState(StateClosed)
		return
	}

	var wg sync.WaitGroup
	defer func() {
		h.cleanup(s)
		s.close()
		wg.Wait()
		s.setState(StateClosed)
	}()

	s.setState(StateActive)
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx)
	}()

	h.loop(ctx, s, username)
}

// register waits for a REGISTER document and claims the username.
func (h *Handler) register(ctx context.Context, s *Session) (string, bool) {
	for {
		frame, err := s.conn.ReadFrame(ctx)
		if err != nil {
			h.readFailed(ctx, s, err)
			return "", false
		}

		req, err := h.disp.Decode(frame)
		if err != nil {
			if sendErr := s.send(ctx, dispatch.ErrorReply(err)); sendErr != nil {
				return "", false
			}
			continue
		}

		var reg *proto.RegisterRequest
		switch r := req.(type) {
		case *proto.RegisterRequest:
			reg = r
		case *proto.DisconnectRequest:
			_ = s.send(ctx, proto.Ok("Goodbye"))
			return "", false
		default:
			if sendErr := s.send(ctx, proto.Error(core.ErrCodeProtocol, "Please register first")); sendErr != nil {
				return "", false
			}
			continue
		}

		if err := h.dir.Register(reg.Username, s); err != nil {
			s.log.Info().Str("user", reg.Username).Msg("registration rejected: name in use")
			_ = s.send(ctx, dispatch.ErrorReply(err))
			return "", false
		}
		s.username = reg.Username
		s.log.UpdateContext(func(c zerolog.Context) zerolog.Context { return c.Str("user", reg.Username) })

		if err := s.send(ctx, proto.Ok("Welcome to the Bulletin Board, "+reg.Username+"!")); err != nil {
			s.log.Warn().Err(err).Msg("welcome write failed, releasing name")
			h.dir.Remove(reg.Username)
			return "", false
		}
		s.log.Info().Msg("user registered")
		return reg.Username, true
	}
}

// loop is the Active state: one reply per request until the transport ends.
func (h *Handler) loop(ctx context.Context, s *Session, username string) {
	for {
		frame, err := s.conn.ReadFrame(ctx)
		if err != nil {
			h.readFailed(ctx, s, err)
			return
		}

		var resp proto.Response
		req, err := h.disp.Decode(frame)
		switch {
		case !s.limiter.allow():
			resp = dispatch.ErrorReply(core.ErrRateLimited)
		case err != nil:
			resp = dispatch.ErrorReply(err)
		default:
			if _, bye := req.(*proto.DisconnectRequest); bye {
				_ = s.send(ctx, proto.Ok("Goodbye"))
				s.log.Info().Msg("user disconnected")
				return
			}
			resp = h.disp.Execute(username, req)
		}

		if err := s.send(ctx, resp); err != nil {
			s.log.Warn().Err(err).Msg("reply write failed")
			return
		}
	}
}

// cleanup drops memberships before releasing the name, so a new session
// that claims the same name never inherits them.
func (h *Handler) cleanup(s *Session) {
	s.cleanupOnce.Do(func() {
		groups := h.store.Disconnect(s.username)
		h.dir.Remove(s.username)
		s.log.Info().Strs("groups", groups).Msg("session cleaned up")
	})
}

func (h *Handler) readFailed(ctx context.Context, s *Session, err error) {
	switch {
	case errors.Is(err, proto.ErrFrameTooLarge):
		s.log.Warn().Err(err).Msg("unrecoverable frame")
		_ = s.send(ctx, proto.Error(core.ErrCodeProtocol, "Frame too large"))
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, context.Canceled), ctx.Err() != nil:
		s.log.Debug().Msg("connection closed")
	default:
		s.log.Warn().Err(err).Msg("read frame")
	}
}
