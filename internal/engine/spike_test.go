package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stratusops/spikecorr/internal/models"
)

func TestDetectSpikeMaxValue(t *testing.T) {
	base := time.Date(2025, time.July, 14, 9, 0, 0, 0, time.UTC)
	series := []models.TimeSeriesPoint{
		{Timestamp: base, Value: 10},
		{Timestamp: base.Add(time.Minute), Value: 85},
		{Timestamp: base.Add(2 * time.Minute), Value: 20},
	}

	spike, err := DetectSpike(series)
	if err != nil {
		t.Fatalf("DetectSpike returned error: %v", err)
	}
	if !spike.Timestamp.Equal(base.Add(time.Minute)) || spike.Value != 85 {
		t.Fatalf("unexpected spike %+v", spike)
	}
	for _, p := range series {
		if p.Value > spike.Value {
			t.Fatalf("spike %v is not the maximum, %v is larger", spike.Value, p.Value)
		}
	}
}

func TestDetectSpikeTieFirstWins(t *testing.T) {
	base := time.Date(2025, time.July, 14, 9, 0, 0, 0, time.UTC)
	series := []models.TimeSeriesPoint{
		{Timestamp: base, Value: 50},
		{Timestamp: base.Add(time.Minute), Value: 90},
		{Timestamp: base.Add(2 * time.Minute), Value: 90},
	}

	spike, err := DetectSpike(series)
	if err != nil {
		t.Fatalf("DetectSpike returned error: %v", err)
	}
	if !spike.Timestamp.Equal(base.Add(time.Minute)) {
		t.Fatalf("tie must go to the first occurrence, got %v", spike.Timestamp)
	}
}

func TestDetectSpikeEmptySeries(t *testing.T) {
	if _, err := DetectSpike(nil); !errors.Is(err, ErrMetricUnavailable) {
		t.Fatalf("expected ErrMetricUnavailable, got %v", err)
	}
}
