package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"plugin-server/internal/sentryx"
)

const (
	ShutdownTimeout = 30 * time.Second
	ReadTimeout     = 30 * time.Second
	WriteTimeout    = 60 * time.Second
	IdleTimeout     = 120 * time.Second
)

// Run starts serving HTTP traffic and handles graceful shutdown.
func (a *ServerApp) Run(ctx context.Context) error {
	router, err := a.Router()
	if err != nil {
		a.cleanup()
		return err
	}

	ln, err := a.Listen()
	if err != nil {
		a.cleanup()
		return err
	}

	return a.Serve(ctx, ln, router)
}

// Listen opens the configured address, capped at MaxConnections when set.
func (a *ServerApp) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", a.Config.Addr())
	if err != nil {
		return nil, err
	}
	if a.Config.MaxConnections > 0 {
		a.Logger.Info("Connection limit: %d", a.Config.MaxConnections)
		ln = netutil.LimitListener(ln, a.Config.MaxConnections)
	}
	return ln, nil
}

// Serve runs handler on ln until ctx is cancelled, SIGINT or SIGTERM
// arrives, or the server fails.
func (a *ServerApp) Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if a.Watcher != nil {
		go func() {
			if err := a.Watcher.Run(watchCtx); err != nil {
				a.Logger.Warn("Watcher stopped: %v", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info("Plugin server starting on http://%s", ln.Addr())
		if listenErr := server.Serve(ln); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serverErr <- listenErr
		}
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
		a.Logger.Error("Server error: %v", runErr)
		sentryx.CaptureError(runErr, "server listen error")
	case <-ctx.Done():
		a.Logger.Info("Shutdown requested, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	a.Logger.Info("Shutting down HTTP server...")
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.Logger.Error("Server shutdown error: %v", shutdownErr)
		sentryx.CaptureError(shutdownErr, "server shutdown error")
		if runErr == nil {
			runErr = shutdownErr
		}
	}

	cancelWatch()
	a.cleanup()
	if runErr == nil {
		a.Logger.Info("Server stopped gracefully")
	}
	return runErr
}

func (a *ServerApp) cleanup() {
	if a == nil {
		return
	}
	if a.Limiter != nil {
		a.Limiter.Stop()
	}
	if a.Watcher != nil {
		if err := a.Watcher.Close(); err != nil {
			a.Logger.Warn("Watcher close error: %v", err)
		}
	}
	if a.Metrics != nil {
		a.Logger.WithFields(a.Metrics.Fields()).Info("Request counters")
	}
	sentryx.Flush(2 * time.Second)
}
