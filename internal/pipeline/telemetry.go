package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const telemetryNamespace = "hostagent"

// Telemetry holds the agent's own Prometheus metrics, labeled by collector.
// A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	polls        *prometheus.CounterVec
	pollFailures *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	emitted      *prometheus.CounterVec
	sinkFailures *prometheus.CounterVec
}

// NewTelemetry creates self-metrics and registers them.
// Params: reg target registerer; an already registered identical collector is reused.
// Returns: telemetry instance or registration error.
func NewTelemetry(reg prometheus.Registerer) (*Telemetry, error) {
	t := &Telemetry{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: telemetryNamespace,
			Subsystem: "collector",
			Name:      "polls_total",
			Help:      "Total number of collector polls",
		}, []string{"collector"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: telemetryNamespace,
			Subsystem: "collector",
			Name:      "poll_failures_total",
			Help:      "Total number of collector polls that returned an error",
		}, []string{"collector"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: telemetryNamespace,
			Subsystem: "collector",
			Name:      "poll_duration_seconds",
			Help:      "Collector poll duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"collector"}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: telemetryNamespace,
			Subsystem: "samples",
			Name:      "emitted_total",
			Help:      "Total number of samples delivered to sinks",
		}, []string{"collector"}),
		sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: telemetryNamespace,
			Subsystem: "sink",
			Name:      "failures_total",
			Help:      "Total number of batches rejected by a sink",
		}, []string{"collector"}),
	}

	var err error
	if t.polls, err = registerCounterVec(reg, t.polls); err != nil {
		return nil, err
	}
	if t.pollFailures, err = registerCounterVec(reg, t.pollFailures); err != nil {
		return nil, err
	}
	if t.emitted, err = registerCounterVec(reg, t.emitted); err != nil {
		return nil, err
	}
	if t.sinkFailures, err = registerCounterVec(reg, t.sinkFailures); err != nil {
		return nil, err
	}
	if err := reg.Register(t.pollDuration); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register poll duration: %w", err)
		}
		t.pollDuration = already.ExistingCollector.(*prometheus.HistogramVec)
	}

	return t, nil
}

// registerCounterVec registers vec, reusing the existing one after a reload.
func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, fmt.Errorf("register counter: %w", err)
	}
	return vec, nil
}

// observePoll records one poll outcome.
func (t *Telemetry) observePoll(collector string, took time.Duration, err error) {
	if t == nil {
		return
	}
	t.polls.WithLabelValues(collector).Inc()
	t.pollDuration.WithLabelValues(collector).Observe(took.Seconds())
	if err != nil {
		t.pollFailures.WithLabelValues(collector).Inc()
	}
}

// observeFlush records one delivered batch.
func (t *Telemetry) observeFlush(collector string, emitted int, err error) {
	if t == nil {
		return
	}
	if err != nil {
		t.sinkFailures.WithLabelValues(collector).Inc()
		return
	}
	t.emitted.WithLabelValues(collector).Add(float64(emitted))
}
