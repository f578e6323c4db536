package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// NewServer serves /health, backed by check, and /metrics for consumer
// processes.
func NewServer(addr string, check CheckFunc, metrics http.Handler, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := check(ctx); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
