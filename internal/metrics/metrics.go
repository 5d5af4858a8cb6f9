package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeAnalyzed labels cycles that ran the full pipeline.
	OutcomeAnalyzed = "analyzed"
	// OutcomeNoData labels cycles skipped for lack of metric samples.
	OutcomeNoData = "no_data"
	// OutcomeNoServices labels cycles where discovery found nothing.
	OutcomeNoServices = "no_services"
	// OutcomeError labels cycles that failed outright.
	OutcomeError = "error"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spikecorr",
			Name:      "cycles_total",
			Help:      "Total number of monitoring cycles, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "spikecorr",
			Name:      "cycle_seconds",
			Help:      "Monitoring cycle latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60, 90},
		},
	)

	remoteCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spikecorr",
			Name:      "remote_commands_total",
			Help:      "Remote command executions, partitioned by terminal status.",
		},
		[]string{"status"},
	)
)

// Register attaches spikecorr collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		cyclesTotal,
		cycleDurationSeconds,
		remoteCommandsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCycle records a cycle duration and outcome label.
func ObserveCycle(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeAnalyzed, OutcomeNoData, OutcomeNoServices, OutcomeError:
	default:
		outcome = OutcomeError
	}
	cyclesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	cycleDurationSeconds.Observe(duration.Seconds())
}

// ObserveRemoteCommand counts one remote command by its terminal status.
func ObserveRemoteCommand(status string) {
	if status == "" {
		status = "unknown"
	}
	remoteCommandsTotal.WithLabelValues(status).Inc()
}
