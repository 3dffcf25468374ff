// Package metrics exports pipeline run, stage and notification counters to
// prometheus on a private registry.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grantreview/internal/logging"
	"grantreview/internal/review"
)

// Notification outcome labels.
const (
	NotifyNotRequired = "not_required"
	NotifyNotSent     = "not_sent" // payload built, delivery disabled
	NotifySent        = "sent"
	NotifySimulated   = "simulated"
	NotifyFailed      = "failed"
)

// Metrics implements pipeline.Observer.
type Metrics struct {
	reg           *prometheus.Registry
	runs          *prometheus.CounterVec
	stages        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	riskScore     prometheus.Histogram
	notifications *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grantreview_runs_total",
			Help: "Completed pipeline runs by overall status.",
		}, []string{"overall_status"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grantreview_stage_total",
			Help: "Finished stages by outcome.",
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grantreview_stage_duration_seconds",
			Help:    "Stage wall time.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"stage"}),
		riskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grantreview_risk_score",
			Help:    "Overall risk score of runs that reached risk scoring.",
			Buckets: []float64{30, 45, 60, 75, 90, 100},
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grantreview_notifications_total",
			Help: "Notification decisions by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.runs, m.stages, m.stageDuration, m.riskScore, m.notifications)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// StageFinished implements pipeline.Observer.
func (m *Metrics) StageFinished(stage review.Stage, status review.StageState, d time.Duration) {
	m.stages.WithLabelValues(string(stage), string(status)).Inc()
	m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// RunFinished implements pipeline.Observer.
func (m *Metrics) RunFinished(r *review.FinalReport) {
	m.runs.WithLabelValues(string(r.OverallStatus)).Inc()
	if r.Risk != nil {
		m.riskScore.Observe(r.Risk.OverallScore)
	}
	if r.Notification != nil {
		m.notifications.WithLabelValues(notificationResult(r.Notification)).Inc()
	}
}

func notificationResult(n *review.NotificationSection) string {
	switch {
	case n.SendResult != nil:
		switch n.SendResult.Status {
		case review.DeliverySent:
			return NotifySent
		case review.DeliverySimulated:
			return NotifySimulated
		default:
			return NotifyFailed
		}
	case n.Subject != "":
		return NotifyNotSent
	default:
		return NotifyNotRequired
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	log := logging.New("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Infow("metrics listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		<-errc
		return nil
	}
}
