package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds request draining after a stop signal.
const DefaultShutdownTimeout = 15 * time.Second

// Run serves srv until ctx is cancelled, then drains in-flight requests.
// A nil listener listens on srv.Addr.
func Run(ctx context.Context, srv *http.Server, ln net.Listener, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
	}
	serverLogger := logger.With(zap.String("addr", ln.Addr().String()))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		serverLogger.Info("http server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		serverLogger.Info("shutdown signal received; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serverLogger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		return nil
	})
	return eg.Wait()
}
