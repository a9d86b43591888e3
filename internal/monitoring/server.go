package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter routes /healthz to the health checker and /metrics to the registry.
// Without a health checker only /metrics is served.
func NewRouter(health *HealthChecker, metrics *Metrics) *mux.Router {
	router := mux.NewRouter()
	if health != nil {
		router.Handle("/healthz", health).Methods(http.MethodGet)
	}
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return router
}

// Serve runs the handler on addr until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		errC <- srv.Serve(listener)
	}()
	logger.Info("monitoring server listening", zap.String("addr", listener.Addr().String()))

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("monitoring server shutdown: %w", err)
		}
		return nil
	}
}
