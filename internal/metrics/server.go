package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
)

// Path is where we expose the metrics.
const Path = "/metrics"

// Handler returns the HTTP handler exposing our metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          m.registry,
	})
}

// Serve exposes the metrics on address until the context is done.
func (m *Metrics) Serve(ctx context.Context, logger model.Logger, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(Path, m.Handler())
	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	logger.Infof("metrics: serving on http://%s%s", listener.Addr(), Path)
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
