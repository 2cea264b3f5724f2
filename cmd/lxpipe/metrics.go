package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/monitor"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// serveMetrics exposes the pipeline counters at /metrics on addr. The
// returned function shuts the server down.
func serveMetrics(addr string, stats *monitor.Stats, log *zap.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(stats); err != nil {
		return nil, errors.Wrap(err, "register pipeline metrics")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
