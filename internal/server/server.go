package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the complete routing table (§4.9), wrapped in the CORS +
// metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/vision/detection", s.corsMiddleware(s.detectionHandler))
	mux.HandleFunc("/", s.corsMiddleware(s.indexHandler))
	mux.HandleFunc("/stats", s.corsMiddleware(s.statsHandler))
	mux.HandleFunc("/stats/ws", s.statsWebSocketHandler)
	mux.HandleFunc("/test", s.corsMiddleware(s.testHandler))
	mux.HandleFunc("/config", s.corsMiddleware(s.configHandler))
	mux.HandleFunc("/favicon.ico", s.corsMiddleware(s.faviconHandler))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Run starts an *http.Server on addr and blocks until ctx is canceled,
// then shuts down within shutdownTimeout, mirroring the teacher's
// signal-driven serve.go shutdown shape (§12).
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go s.pollQueueDepth(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: graceful shutdown failed: %w", err)
	}
	return nil
}

// pollQueueDepth periodically updates the queue-depth gauge (§4.10's
// statistics are read-mostly; the queue's own Len is cheap enough to poll
// rather than wiring a notification on every enqueue/dequeue).
func (s *Server) pollQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(s.queue.Len()))
		case <-ctx.Done():
			return
		}
	}
}
