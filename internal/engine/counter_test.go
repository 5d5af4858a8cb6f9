package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stratusops/spikecorr/internal/models"
	"github.com/stratusops/spikecorr/internal/utils"
)

// scriptedExecutor resolves commands against canned outputs. Safe for
// concurrent use because the counter fans cells out across goroutines.
type scriptedExecutor struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (e *scriptedExecutor) Execute(_ context.Context, _ string, command string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, command)
	if err, ok := e.errs[command]; ok {
		return "", err
	}
	return e.outputs[command], nil
}

func (e *scriptedExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func logLineAt(t time.Time) string {
	return fmt.Sprintf(`127.0.0.1 - - [%s] "GET / HTTP/1.1" 200 512`,
		t.Format("02/Jan/2006:15:04:05 -0700"))
}

func logLinesBetween(start time.Time, step time.Duration, n int) []string {
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, logLineAt(start.Add(time.Duration(i)*step)))
	}
	return lines
}

func TestCountAllWindowPartition(t *testing.T) {
	spikeTime := time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)
	window := models.NewSpikeWindow(spikeTime, 85)

	// One line on each window boundary plus one outside each side. The line
	// at the exact spike minute belongs to the spike window, not before.
	lines := []string{
		logLineAt(window.PreStart.Add(-time.Second)),
		logLineAt(window.PreStart),
		logLineAt(window.PreEnd),
		logLineAt(window.SpikeStart),
		logLineAt(window.SpikeEnd),
		logLineAt(window.PostStart),
		logLineAt(window.PostEnd),
		logLineAt(window.PostEnd.Add(time.Second)),
		"malformed line without a timestamp",
	}

	exec := newScriptedExecutor()
	exec.outputs[readLogCommand("/var/www/shop/logs/access.log")] = strings.Join(lines, "\n")

	counter := NewWindowCounter(exec, utils.NewLogger("error", false), 4)
	counts := counter.CountAll(context.Background(), "i-0abc", window, []models.ServiceDescriptor{
		{ServiceID: "shop", LogPath: "/var/www/shop/logs/access.log"},
	})

	got := counts["shop"]
	want := models.WindowCounts{Before: 2, Spike: 2, After: 2}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}
}

func TestCountAllFailedCellStaysZero(t *testing.T) {
	spikeTime := time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)
	window := models.NewSpikeWindow(spikeTime, 85)

	exec := newScriptedExecutor()
	exec.outputs[readLogCommand("/var/www/shop/logs/access.log")] = strings.Join(
		logLinesBetween(window.SpikeStart, time.Second, 5), "\n")
	exec.errs[readLogCommand("/var/www/blog/logs/access.log")] = errors.New("command failed")

	counter := NewWindowCounter(exec, utils.NewLogger("error", false), 2)
	counts := counter.CountAll(context.Background(), "i-0abc", window, []models.ServiceDescriptor{
		{ServiceID: "shop", LogPath: "/var/www/shop/logs/access.log"},
		{ServiceID: "blog", LogPath: "/var/www/blog/logs/access.log"},
	})

	if got := counts["shop"]; got != (models.WindowCounts{Spike: 5}) {
		t.Fatalf("healthy service counts = %+v, want spike 5", got)
	}
	if got := counts["blog"]; got != (models.WindowCounts{}) {
		t.Fatalf("failed service must degrade to zero counts, got %+v", got)
	}
}

func TestCountAllDeterministicAggregation(t *testing.T) {
	spikeTime := time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)
	window := models.NewSpikeWindow(spikeTime, 85)
	services := []models.ServiceDescriptor{
		{ServiceID: "shop", LogPath: "/var/www/shop/logs/access.log"},
		{ServiceID: "blog", LogPath: "/var/www/blog/logs/access.log"},
	}

	exec := newScriptedExecutor()
	var shopLines []string
	shopLines = append(shopLines, logLinesBetween(window.PreStart, time.Minute, 3)...)
	shopLines = append(shopLines, logLinesBetween(window.SpikeStart, time.Second, 40)...)
	shopLines = append(shopLines, logLinesBetween(window.PostStart, time.Minute, 4)...)
	exec.outputs[readLogCommand("/var/www/shop/logs/access.log")] = strings.Join(shopLines, "\n")
	exec.outputs[readLogCommand("/var/www/blog/logs/access.log")] = strings.Join(
		logLinesBetween(window.PreStart, time.Minute, 2), "\n")

	counter := NewWindowCounter(exec, utils.NewLogger("error", false), 3)
	first := counter.CountAll(context.Background(), "i-0abc", window, services)
	second := counter.CountAll(context.Background(), "i-0abc", window, services)

	if first["shop"] != (models.WindowCounts{Before: 3, Spike: 40, After: 4}) {
		t.Fatalf("shop counts = %+v", first["shop"])
	}
	if first["blog"] != (models.WindowCounts{Before: 2}) {
		t.Fatalf("blog counts = %+v", first["blog"])
	}
	if first["shop"] != second["shop"] || first["blog"] != second["blog"] {
		t.Fatalf("repeated counting over the same input diverged: %+v vs %+v", first, second)
	}
}
