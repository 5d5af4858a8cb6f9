package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/stratusops/spikecorr/internal/metrics"
	"github.com/stratusops/spikecorr/internal/models"
	"github.com/stratusops/spikecorr/internal/utils"
)

// Analyzer is the external reasoning collaborator consuming one report per
// cycle. Its return value is logged, never parsed.
type Analyzer interface {
	Analyze(ctx context.Context, report models.CorrelationReport) (string, error)
}

// Scheduler drives the pipeline on a fixed period. Each cycle runs under its
// own deadline, cycles never overlap, and an in-cycle failure is logged and
// absorbed so the loop survives to the next tick.
type Scheduler struct {
	logger      *slog.Logger
	pipeline    *Pipeline
	analyzer    Analyzer
	period      time.Duration
	cycleBudget time.Duration
	latencies   *utils.LatencyTracker
}

// NewScheduler constructs the cycle driver.
func NewScheduler(logger *slog.Logger, pipeline *Pipeline, analyzer Analyzer, period, cycleBudget time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if period <= 0 {
		period = time.Minute
	}
	if cycleBudget <= 0 {
		cycleBudget = 90 * time.Second
	}
	if analyzer == nil {
		analyzer = noopAnalyzer{}
	}
	return &Scheduler{
		logger:      logger,
		pipeline:    pipeline,
		analyzer:    analyzer,
		period:      period,
		cycleBudget: cycleBudget,
		latencies:   utils.NewLatencyTracker(512),
	}
}

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately rather than one period in.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle under the configured budget and hands the
// report to the analyzer. All failures are absorbed here; the caller's loop
// must never terminate because one cycle went wrong.
func (s *Scheduler) RunOnce(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleBudget)
	defer cancel()

	start := time.Now()
	report, err := s.pipeline.RunCycle(cycleCtx)
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveCycle(duration, metrics.OutcomeError)
		s.logger.Error("cycle failed", slog.Any("error", err))
		return
	}

	s.latencies.Observe(duration)
	metrics.ObserveCycle(duration, string(report.Outcome))
	s.logger.Debug("cycle complete",
		slog.String("report_id", report.ReportID),
		slog.String("outcome", string(report.Outcome)),
		slog.Duration("duration", duration))

	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("cycle latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}

	analysis, err := s.analyzer.Analyze(cycleCtx, report)
	if err != nil {
		s.logger.Warn("analyzer call failed", slog.Any("error", err))
		return
	}
	if analysis != "" {
		s.logger.Info("analysis received",
			slog.String("report_id", report.ReportID),
			slog.Int("length", len(analysis)))
	}
}

// LatencyP95 returns the current p95 cycle latency.
func (s *Scheduler) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

type noopAnalyzer struct{}

func (noopAnalyzer) Analyze(context.Context, models.CorrelationReport) (string, error) {
	return "", nil
}
