// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/streamfork/relayd/internal/config"
	"github.com/streamfork/relayd/internal/log"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 1 << 20
)

// App owns the long-lived runtime lifecycle: the HTTP server, the config
// watcher and reload wiring, and the ordered shutdown of the runtime's
// resources.
type App struct {
	logger       zerolog.Logger
	rt           *Runtime
	reloadSignal os.Signal

	mu       sync.Mutex
	addr     net.Addr
	stopping bool
}

// NewApp creates the daemon orchestrator around a built runtime.
func NewApp(logger zerolog.Logger, rt *Runtime) *App {
	return &App{
		logger:       logger,
		rt:           rt,
		reloadSignal: syscall.SIGHUP,
	}
}

// Addr returns the bound listen address once the server is up.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs. On return every worker process has
// been stopped and every shutdown hook has executed.
func (a *App) Run(ctx context.Context) error {
	if a.rt == nil {
		return ErrNilRuntime
	}
	if a.rt.Handler == nil {
		return ErrMissingHandler
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if the
	// watcher cannot be started.
	if a.rt.Holder != nil {
		if err := a.rt.Holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).
				Str("event", "config.watcher_start_failed").
				Msg("failed to start config watcher")
		}

		// Reload wiring: apply the runtime-adjustable settings on every
		// successful swap. Running workers are never touched; plans change
		// only on the next start.
		applyCh := make(chan config.Config, 1)
		a.rt.Holder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyReload(cfg)
				}
			}
		})

		// SIGHUP trigger for manual reload.
		if a.reloadSignal != nil {
			g.Go(func() error {
				hupCh := make(chan os.Signal, 1)
				signal.Notify(hupCh, a.reloadSignal)
				defer signal.Stop(hupCh)

				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hupCh:
						a.logger.Info().
							Str("event", "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := a.rt.Holder.Reload(context.Background()); err != nil {
							a.logger.Warn().Err(err).
								Str("event", "config.reload_failed").
								Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	g.Go(func() error { return a.serve(ctx) })

	return g.Wait()
}

// applyReload pushes the runtime-adjustable subset of a reloaded config.
func (a *App) applyReload(cfg config.Config) {
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		a.logger.Warn().Err(err).
			Str("level", cfg.Log.Level).
			Msg("reloaded log level is invalid, keeping current")
	}
}

// serve runs the HTTP server until ctx is cancelled or the listener fails,
// then performs the ordered shutdown.
func (a *App) serve(ctx context.Context) error {
	srv := &http.Server{
		Handler:           a.rt.Handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	ln, err := net.Listen("tcp", a.rt.Config.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.rt.Config.Listen, err)
	}
	a.mu.Lock()
	a.addr = ln.Addr()
	a.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("addr", ln.Addr().String()).
			Msg("API server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		a.logger.Error().Err(err).Msg("server error, initiating shutdown")
		if shutdownErr := a.shutdown(ctx, srv); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("shutdown signal received")
		return a.shutdown(ctx, srv)
	}
}

// shutdown drains the HTTP server, then runs the runtime's shutdown hooks
// in reverse registration order. The workers hook runs first, so every
// relay process is stopped synchronously before the daemon exits. The
// whole sequence is bounded by the configured shutdown timeout, detached
// from the already-cancelled parent context.
func (a *App) shutdown(ctx context.Context, srv *http.Server) error {
	a.mu.Lock()
	if a.stopping {
		a.mu.Unlock()
		return nil
	}
	a.stopping = true
	a.mu.Unlock()

	timeout := a.rt.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error

	a.logger.Debug().Msg("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
	}

	a.logger.Debug().Int("hooks", len(a.rt.hooks)).Msg("executing shutdown hooks")
	for i := len(a.rt.hooks) - 1; i >= 0; i-- {
		h := a.rt.hooks[i]
		start := time.Now()
		if err := h.hook(shutdownCtx); err != nil {
			a.logger.Error().Err(err).
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		} else {
			a.logger.Debug().
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook completed")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	a.logger.Info().Msg("daemon stopped cleanly")
	return nil
}
