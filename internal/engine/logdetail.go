package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// NoLogsPlaceholder substitutes for raw evidence when the detailed fetch
// yields nothing or fails.
const NoLogsPlaceholder = "No logs found in the window."

// DetailFetcher retrieves the raw log slice substantiating an attribution.
type DetailFetcher struct {
	executor RemoteExecutor
	logger   *slog.Logger
}

// NewDetailFetcher constructs a fetcher over the remote execution channel.
func NewDetailFetcher(executor RemoteExecutor, logger *slog.Logger) *DetailFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailFetcher{executor: executor, logger: logger}
}

// FetchWindow returns, verbatim, the log lines whose parsed timestamp falls
// in [start, end]. A failed read or an empty match degrades to the
// placeholder text so the report always carries an evidence field.
func (f *DetailFetcher) FetchWindow(ctx context.Context, instanceID, logPath string, start, end time.Time) string {
	raw, err := f.executor.Execute(ctx, instanceID, readLogCommand(logPath))
	if err != nil {
		f.logger.Warn("detailed log fetch failed",
			slog.String("log_path", logPath),
			slog.Any("error", err))
		return NoLogsPlaceholder
	}

	lines := filterLinesInWindow(raw, start, end)
	if len(lines) == 0 {
		return NoLogsPlaceholder
	}
	return strings.Join(lines, "\n")
}
