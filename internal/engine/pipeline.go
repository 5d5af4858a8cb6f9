package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stratusops/spikecorr/internal/models"
)

// MetricSource fetches ordered metric samples for the monitored host. An
// empty series means "no data in range" and is not an error.
type MetricSource interface {
	FetchMetricSeries(ctx context.Context, instanceID string, start, end time.Time) ([]models.TimeSeriesPoint, error)
}

// StatusSource reads the host's operational status labels, degrading to
// "unknown" internally rather than returning an error.
type StatusSource interface {
	FetchStatus(ctx context.Context, instanceID string) models.InstanceStatus
}

// Pipeline runs one full correlation cycle: fetch the metric window, detect
// the dominant spike, discover services, count their log volume across the
// spike windows, attribute the spike, and gather raw evidence. Each run is
// self-contained; nothing survives between cycles.
type Pipeline struct {
	logger         *slog.Logger
	instanceID     string
	lookback       time.Duration
	processPattern string

	metricSource MetricSource
	statusSource StatusSource
	executor     RemoteExecutor
	parser       ServiceParser
	counter      *WindowCounter
	detail       *DetailFetcher

	now func() time.Time
}

// PipelineParams groups the collaborators and settings of a Pipeline.
type PipelineParams struct {
	Logger         *slog.Logger
	InstanceID     string
	Lookback       time.Duration
	ProcessPattern string

	MetricSource MetricSource
	StatusSource StatusSource
	Executor     RemoteExecutor
	Parser       ServiceParser
	Counter      *WindowCounter
	Detail       *DetailFetcher
}

// NewPipeline constructs a correlation pipeline.
func NewPipeline(params PipelineParams) *Pipeline {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = time.Hour
	}
	counter := params.Counter
	if counter == nil {
		counter = NewWindowCounter(params.Executor, logger, 0)
	}
	detail := params.Detail
	if detail == nil {
		detail = NewDetailFetcher(params.Executor, logger)
	}

	return &Pipeline{
		logger:         logger,
		instanceID:     params.InstanceID,
		lookback:       lookback,
		processPattern: params.ProcessPattern,
		metricSource:   params.MetricSource,
		statusSource:   params.StatusSource,
		executor:       params.Executor,
		parser:         params.Parser,
		counter:        counter,
		detail:         detail,
		now:            time.Now,
	}
}

// RunCycle executes one monitoring cycle and always returns a complete
// report; degraded stages, including a failed metric fetch, are reflected in
// the report's outcome and placeholder fields rather than in the error value.
// The error is non-nil only when the cycle could not produce a report at all.
func (p *Pipeline) RunCycle(ctx context.Context) (models.CorrelationReport, error) {
	report := models.CorrelationReport{
		ReportID:   uuid.NewString(),
		InstanceID: p.instanceID,
		Outcome:    models.OutcomeAnalyzed,
		Series:     []models.TimeSeriesPoint{},
		Services:   []models.ServiceDescriptor{},
		Counts:     map[string]models.WindowCounts{},
		CreatedAt:  p.now().UTC(),
	}

	report.Status = p.statusSource.FetchStatus(ctx, p.instanceID)

	end := p.now().UTC()
	start := end.Add(-p.lookback)

	series, err := p.metricSource.FetchMetricSeries(ctx, p.instanceID, start, end)
	if err != nil {
		// A failed fetch degrades the same way as an empty one; the consumer
		// still gets the host status for this cycle.
		p.logger.Warn("metric fetch failed, emitting status-only report",
			slog.Any("error", err))
		series = nil
	}
	report.Series = series

	spikePoint, err := DetectSpike(series)
	if errors.Is(err, ErrMetricUnavailable) {
		p.logger.Info("no metric data in range, emitting status-only report",
			slog.Time("start", start), slog.Time("end", end))
		report.Outcome = models.OutcomeNoData
		report.Summary = report.Render()
		return report, nil
	}

	window := models.NewSpikeWindow(spikePoint.Timestamp, spikePoint.Value)
	report.Spike = &window
	p.logger.Info("spike detected",
		slog.Time("spike_time", window.SpikeTime),
		slog.Float64("spike_value", window.SpikeValue))

	services, err := p.discoverServices(ctx)
	if err != nil {
		p.logger.Warn("service discovery failed", slog.Any("error", err))
		services = nil
	}
	if len(services) == 0 {
		report.Outcome = models.OutcomeNoServices
		report.Summary = report.Render()
		return report, nil
	}
	report.Services = services

	report.Counts = p.counter.CountAll(ctx, p.instanceID, window, services)
	report.Attribution = Attribute(services, report.Counts)

	if report.Attribution.Attributed() {
		logPath := logPathFor(services, report.Attribution.ServiceID)
		report.DetailLog = p.detail.FetchWindow(ctx, p.instanceID, logPath, window.PreStart, window.PostEnd)
		p.logger.Info("spike attributed",
			slog.String("service", report.Attribution.ServiceID),
			slog.Int("magnitude", report.Attribution.Magnitude))
	} else {
		report.DetailLog = NoLogsPlaceholder
		p.logger.Info("no clear culprit service")
	}

	report.Summary = report.Render()
	return report, nil
}

// discoverServices lists host processes through the remote channel and hands
// the raw listing to the pluggable parser.
func (p *Pipeline) discoverServices(ctx context.Context) ([]models.ServiceDescriptor, error) {
	listing, err := p.executor.Execute(ctx, p.instanceID, ProcessListingCommand(p.processPattern))
	if err != nil {
		return nil, err
	}
	return p.parser.ParseServices(listing), nil
}

func logPathFor(services []models.ServiceDescriptor, serviceID string) string {
	for _, svc := range services {
		if svc.ServiceID == serviceID {
			return svc.LogPath
		}
	}
	return ""
}
