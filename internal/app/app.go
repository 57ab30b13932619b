// Package app wires the directory, group store and transports together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wireboard/internal/config"
	"github.com/vovakirdan/wireboard/internal/core"
	"github.com/vovakirdan/wireboard/internal/dispatch"
	applog "github.com/vovakirdan/wireboard/internal/log"
	"github.com/vovakirdan/wireboard/internal/session"
	transporthttp "github.com/vovakirdan/wireboard/internal/transport/http"
	"github.com/vovakirdan/wireboard/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	cfg             *config.Config
	dir             *core.Directory
	store           *core.GroupStore
	tcp             *tcp.Server
	http            *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger

	mu     sync.Mutex
	httpLn net.Listener
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	dir := core.NewDirectory()
	notifier := core.NewNotifier(dir, applog.Component(logger, "notifier"))
	specs := lo.Map(cfg.Groups, func(g config.GroupConfig, _ int) core.GroupSpec {
		return core.GroupSpec{ID: g.ID, Name: g.Name}
	})
	store := core.NewGroupStore(cfg.PublicGroup, specs, notifier, core.WithRecentMessages(cfg.RecentMessages))

	disp := dispatch.New(store, applog.Component(logger, "dispatch"))
	handler := session.NewHandler(dir, store, disp, session.Options{
		NotifyQueueSize:  cfg.NotifyQueueSize,
		WriteTimeout:     cfg.WriteTimeout,
		CommandRateLimit: cfg.CommandRateLimit,
	}, applog.Component(logger, "session"))

	a := &App{
		cfg:             cfg,
		dir:             dir,
		store:           store,
		tcp:             tcp.NewServer(handler, cfg.MaxFrameBytes, applog.Component(logger, "tcp")),
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
	if cfg.HTTPAddr != "" {
		a.http = transporthttp.NewServer(store, handler, cfg, applog.Component(logger, "http"))
	}
	return a, nil
}

// Listen binds every configured listener. Run calls it when needed; calling it
// first lets a caller learn the bound addresses.
func (a *App) Listen() error {
	if a.tcp.Addr() != nil {
		return nil
	}
	if err := a.tcp.Listen(a.cfg.Addr()); err != nil {
		return err
	}
	if a.http == nil {
		return nil
	}

	ln, err := net.Listen("tcp", a.http.Addr)
	if err != nil {
		_ = a.tcp.Close()
		return fmt.Errorf("listen %s: %w", a.http.Addr, err)
	}
	a.mu.Lock()
	a.httpLn = ln
	a.mu.Unlock()
	return nil
}

// TCPAddr returns the bound TCP address, or nil before Listen.
func (a *App) TCPAddr() net.Addr {
	return a.tcp.Addr()
}

// HTTPAddr returns the bound HTTP address, or nil when HTTP is disabled.
func (a *App) HTTPAddr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpLn == nil {
		return nil
	}
	return a.httpLn.Addr()
}

// Run serves until ctx is cancelled or a listener fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	a.log.Info().
		Str("addr", a.tcp.Addr().String()).
		Int("groups", len(a.cfg.Groups)).
		Msg("bulletin board listening")

	g.Go(func() error {
		return a.tcp.Serve(gctx)
	})

	if a.http != nil {
		a.http.BaseContext = func(net.Listener) context.Context { return gctx }
		ln := a.httpLn

		g.Go(func() error {
			a.log.Info().Str("addr", ln.Addr().String()).Msg("http listener started")
			if err := a.http.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("http serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down http server")
			return a.http.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	a.log.Info().Int("sessions", a.dir.Len()).Msg("server stopped")
	return err
}
