// Package metrics exports lobby lifecycle stats to prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoglobals
var (
	LobbiesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lobbybot_lobbies_created_total", Help: "Total lobbies created"})

	LobbiesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lobbybot_lobbies_started_total", Help: "Total lobbies that became active"})

	LobbiesClosed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lobbybot_lobbies_closed_total", Help: "Total lobbies closed, by any path"})

	ReadyChecksStarted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lobbybot_ready_checks_total", Help: "Total ready checks started"})
)

func init() { //nolint:gochecknoinits
	for _, metric := range []prometheus.Collector{
		LobbiesCreated,
		LobbiesStarted,
		LobbiesClosed,
		ReadyChecksStarted,
	} {
		_ = prometheus.Register(metric)
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		if errShutdown := httpServer.Shutdown(shutdownCtx); errShutdown != nil {
			slog.Error("Failed to shutdown metrics server cleanly", slog.String("error", errShutdown.Error()))
		}
	}()

	if errServe := httpServer.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		return errServe
	}

	return nil
}
