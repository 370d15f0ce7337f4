package utils

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 10 * time.Minute // large downloads stream for a while
	shutdownTimeout     = 30 * time.Second
)

// GraceServer serves handler on addr until SIGINT or SIGTERM, then drains in-flight requests.
// stop runs once the signal arrives, before draining.
func GraceServer(ctx context.Context, addr string, handler http.Handler, stop func()) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	Sugar.Info("received shutdown signal, graceful shutting down HTTP server")
	if stop != nil {
		stop()
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
		return err
	}
	Sugar.Info("HTTP server shutdown success")
	return nil
}
