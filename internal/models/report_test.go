package models

import (
	"strings"
	"testing"
	"time"
)

func TestNewSpikeWindowPartition(t *testing.T) {
	spike := time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)
	w := NewSpikeWindow(spike, 85)

	if !w.PreStart.Equal(spike.Add(-10 * time.Minute)) {
		t.Fatalf("PreStart = %v", w.PreStart)
	}
	if !w.PreEnd.Equal(spike.Add(-time.Second)) {
		t.Fatalf("PreEnd = %v", w.PreEnd)
	}
	if !w.SpikeStart.Equal(spike) || !w.SpikeEnd.Equal(spike.Add(59*time.Second)) {
		t.Fatalf("spike window = [%v, %v]", w.SpikeStart, w.SpikeEnd)
	}
	if !w.PostStart.Equal(spike.Add(time.Minute)) || !w.PostEnd.Equal(spike.Add(11*time.Minute)) {
		t.Fatalf("post window = [%v, %v]", w.PostStart, w.PostEnd)
	}

	// The three windows are contiguous: no gap between pre and spike, and
	// none between spike and post.
	if !w.PreEnd.Add(time.Second).Equal(w.SpikeStart) {
		t.Fatal("gap between pre and spike windows")
	}
	if !w.SpikeEnd.Add(time.Second).Equal(w.PostStart) {
		t.Fatal("gap between spike and post windows")
	}
}

func TestWindowCountsMagnitude(t *testing.T) {
	cases := []struct {
		name   string
		counts WindowCounts
		want   int
	}{
		{"flat", WindowCounts{Before: 10, Spike: 10, After: 10}, 0},
		{"spike dominant", WindowCounts{Before: 5, Spike: 50, After: 6}, 45},
		{"decay dominant", WindowCounts{Before: 40, Spike: 42, After: 2}, 40},
		{"before-after spread", WindowCounts{Before: 30, Spike: 25, After: 2}, 28},
		{"all zero", WindowCounts{}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.counts.Magnitude(); got != tc.want {
				t.Fatalf("Magnitude(%+v) = %d, want %d", tc.counts, got, tc.want)
			}
		})
	}
}

func TestRenderAttributedReport(t *testing.T) {
	spike := time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)
	window := NewSpikeWindow(spike, 85)

	r := CorrelationReport{
		InstanceID: "i-0abc",
		Outcome:    OutcomeAnalyzed,
		Status:     InstanceStatus{State: "running", SystemStatus: "ok", InstanceStatus: "ok"},
		Series: []TimeSeriesPoint{
			{Timestamp: spike.Add(-time.Minute), Value: 10},
			{Timestamp: spike, Value: 85},
		},
		Spike:    &window,
		Services: []ServiceDescriptor{{ServiceID: "shop"}, {ServiceID: "blog"}},
		Counts: map[string]WindowCounts{
			"shop": {Before: 3, Spike: 40, After: 4},
			"blog": {Before: 2, Spike: 3, After: 2},
		},
		Attribution: AttributionResult{ServiceID: "shop", Magnitude: 37},
		DetailLog:   "127.0.0.1 - - [14/Jul/2025:09:30:01 +0000] \"GET / HTTP/1.1\" 200 512",
	}

	out := r.Render()
	for _, want := range []string{
		"Instance: i-0abc",
		"EC2 State: running",
		"Highest spike detected at 2025-07-14 09:30:00 with value 85.00.",
		"Service: shop, Before: 3, At Spike: 40, After: 4, Magnitude: 37",
		"Service with the most significant request spike: shop (magnitude 37).",
		r.DetailLog,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderNoData(t *testing.T) {
	r := CorrelationReport{
		InstanceID: "i-0abc",
		Outcome:    OutcomeNoData,
		Status:     UnknownInstanceStatus(),
	}

	out := r.Render()
	if !strings.Contains(out, "No metric data found in the analysis interval.") {
		t.Fatalf("no-data line missing:\n%s", out)
	}
	if strings.Contains(out, "Metric samples") {
		t.Fatalf("no-data summary must stop at the status block:\n%s", out)
	}
}

func TestRenderUnattributed(t *testing.T) {
	spike := time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)
	window := NewSpikeWindow(spike, 85)

	r := CorrelationReport{
		InstanceID: "i-0abc",
		Outcome:    OutcomeAnalyzed,
		Status:     InstanceStatus{State: "running", SystemStatus: "ok", InstanceStatus: "ok"},
		Series:     []TimeSeriesPoint{{Timestamp: spike, Value: 85}},
		Spike:      &window,
		Services:   []ServiceDescriptor{{ServiceID: "shop"}},
		Counts:     map[string]WindowCounts{"shop": {}},
	}

	out := r.Render()
	if !strings.Contains(out, "Could not identify a clear culprit service from log data.") {
		t.Fatalf("unattributed line missing:\n%s", out)
	}
}
