package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stratusops/spikecorr/internal/models"
)

// RemoteExecutor runs a read-only shell command on the monitored host and
// returns its stdout.
type RemoteExecutor interface {
	Execute(ctx context.Context, instanceID, command string) (string, error)
}

// WindowCounter measures log-event volume per service across the three spike
// windows. Cells are independent; a failed read degrades that cell to zero
// instead of aborting the cycle.
type WindowCounter struct {
	executor      RemoteExecutor
	logger        *slog.Logger
	maxConcurrent int
}

// NewWindowCounter constructs a counter running at most maxConcurrent remote
// reads at a time.
func NewWindowCounter(executor RemoteExecutor, logger *slog.Logger, maxConcurrent int) *WindowCounter {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &WindowCounter{executor: executor, logger: logger, maxConcurrent: maxConcurrent}
}

// CountAll returns one WindowCounts per service ID. The three windows of
// every service are counted concurrently, then aggregated deterministically
// by service ID before attribution runs.
func (c *WindowCounter) CountAll(ctx context.Context, instanceID string, window models.SpikeWindow, services []models.ServiceDescriptor) map[string]models.WindowCounts {
	type cell struct {
		svc        int
		win        int
		start, end time.Time
	}

	cells := make([]cell, 0, len(services)*3)
	for i := range services {
		cells = append(cells,
			cell{svc: i, win: 0, start: window.PreStart, end: window.PreEnd},
			cell{svc: i, win: 1, start: window.SpikeStart, end: window.SpikeEnd},
			cell{svc: i, win: 2, start: window.PostStart, end: window.PostEnd},
		)
	}

	results := make([][3]int, len(services))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for _, cl := range cells {
		cl := cl
		g.Go(func() error {
			svc := services[cl.svc]
			count, err := c.countWindow(gctx, instanceID, svc.LogPath, cl.start, cl.end)
			if err != nil {
				// Partial data beats a failed cycle; this cell stays zero.
				c.logger.Warn("window count failed",
					slog.String("service", svc.ServiceID),
					slog.Int("window", cl.win),
					slog.Any("error", err))
				return nil
			}
			results[cl.svc][cl.win] = count
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[string]models.WindowCounts, len(services))
	for i, svc := range services {
		counts[svc.ServiceID] = models.WindowCounts{
			Before: results[i][0],
			Spike:  results[i][1],
			After:  results[i][2],
		}
	}
	return counts
}

func (c *WindowCounter) countWindow(ctx context.Context, instanceID, logPath string, start, end time.Time) (int, error) {
	raw, err := c.executor.Execute(ctx, instanceID, readLogCommand(logPath))
	if err != nil {
		return 0, err
	}
	return countLinesInWindow(raw, start, end), nil
}

// readLogCommand is the read-only command that streams one access log back
// for local parse-then-compare filtering.
func readLogCommand(logPath string) string {
	return fmt.Sprintf("cat '%s'", logPath)
}
