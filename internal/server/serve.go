package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"thooimai-go/internal/logger"
)

// Serve runs srv on ln until ctx is cancelled, then waits up to grace for
// in-flight requests to finish. It returns only after the drain is over.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration, log *logger.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.WithField("grace", grace.String()).Info("shutting down, draining requests")
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server drained")
	return nil
}
