package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"convertit/internal/logging"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convertit_gateway_requests_total",
			Help: "Total number of generative requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	GatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convertit_gateway_request_duration_seconds",
			Help:    "Generative request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60},
		},
		[]string{"op"},
	)

	FollowUpAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convertit_followup_alerts_total",
			Help: "Follow-up alerts fired by kind",
		},
		[]string{"kind"},
	)

	FollowUpSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convertit_followup_sweeps_total",
			Help: "Total number of follow-up sweeps",
		},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "convertit_live_sessions_open",
			Help: "Number of open live voice sessions",
		},
	)

	LiveFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convertit_live_audio_frames_total",
			Help: "Audio frames exchanged with the live session",
		},
		[]string{"direction"},
	)
)

// ObserveRequest records one gateway call.
func ObserveRequest(op, outcome string, started time.Time) {
	GatewayRequests.WithLabelValues(op, outcome).Inc()
	GatewayLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Serve exposes /metrics on addr until ctx is done. An empty addr is a no-op.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
