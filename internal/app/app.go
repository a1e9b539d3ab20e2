package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	logpkg "github.com/vovakirdan/linechat/internal/log"
	transporthttp "github.com/vovakirdan/linechat/internal/transport/http"
	"github.com/vovakirdan/linechat/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	cfg             config.Config
	hub             *core.Hub
	chat            *tcp.Server
	admin           *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	hub := core.NewHub(cfg.HubOptions(), logpkg.Component(logger, "hub"))
	chat := tcp.NewServer(hub, tcp.Options{
		MaxLineBytes: cfg.MaxLineBytes,
		OutboxSize:   cfg.OutboxSize,
	}, logpkg.Component(logger, "tcp"))

	var admin *stdhttp.Server
	if cfg.AdminAddr != "" {
		admin = transporthttp.NewServer(hub, cfg, logpkg.Component(logger, "http"))
	}

	return &App{
		cfg:             cfg,
		hub:             hub,
		chat:            chat,
		admin:           admin,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Hub exposes the running hub.
func (a *App) Hub() *core.Hub {
	return a.hub
}

// Run listens on the configured addresses and blocks until context
// cancellation or a fatal listener error.
func (a *App) Run(ctx context.Context) error {
	chatLn, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen chat %s: %w", a.cfg.Addr, err)
	}

	var adminLn net.Listener
	if a.admin != nil {
		adminLn, err = net.Listen("tcp", a.admin.Addr)
		if err != nil {
			_ = chatLn.Close()
			return fmt.Errorf("listen admin %s: %w", a.admin.Addr, err)
		}
	}

	return a.Serve(ctx, chatLn, adminLn)
}

// Serve runs the hub and both servers on the given listeners. adminLn may be
// nil, in which case the admin API is not started.
func (a *App) Serve(ctx context.Context, chatLn, adminLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)

	chatErr := make(chan error, 1)
	go func() {
		chatErr <- a.chat.Serve(ctx, chatLn)
	}()

	adminErr := make(chan error, 1)
	if a.admin != nil && adminLn != nil {
		a.log.Info().Str("addr", adminLn.Addr().String()).Msg("admin api started")
		go func() {
			if err := a.admin.Serve(adminLn); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				adminErr <- err
				return
			}
			adminErr <- nil
		}()
	} else {
		adminErr <- nil
	}

	var runErr error
	select {
	case err := <-chatErr:
		if err != nil {
			runErr = fmt.Errorf("chat server: %w", err)
		}
		chatErr <- nil
	case err := <-adminErr:
		if err != nil {
			runErr = fmt.Errorf("admin server: %w", err)
		}
		adminErr <- nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	cancel()

	if a.admin != nil && adminLn != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancelShutdown()
		if err := a.admin.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = fmt.Errorf("shutdown admin server: %w", err)
		}
	}

	<-a.hub.Done()
	if err := <-chatErr; err != nil && runErr == nil {
		runErr = fmt.Errorf("chat server: %w", err)
	}
	a.chat.Wait()
	if err := <-adminErr; err != nil && runErr == nil {
		runErr = fmt.Errorf("admin server: %w", err)
	}

	a.log.Info().Msg("server stopped")
	return runErr
}
