package models

import "time"

// TimeSeriesPoint is a single metric sample at fixed granularity.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SpikeWindow anchors the three analysis windows to the dominant spike.
// The windows are contiguous and non-overlapping: pre ends one second before
// the spike minute, post starts at the minute after it.
type SpikeWindow struct {
	SpikeTime  time.Time `json:"spike_time"`
	SpikeValue float64   `json:"spike_value"`

	PreStart   time.Time `json:"pre_start"`
	PreEnd     time.Time `json:"pre_end"`
	SpikeStart time.Time `json:"spike_start"`
	SpikeEnd   time.Time `json:"spike_end"`
	PostStart  time.Time `json:"post_start"`
	PostEnd    time.Time `json:"post_end"`
}

// NewSpikeWindow derives the before/spike/after windows from a spike sample.
func NewSpikeWindow(spikeTime time.Time, spikeValue float64) SpikeWindow {
	return SpikeWindow{
		SpikeTime:  spikeTime,
		SpikeValue: spikeValue,
		PreStart:   spikeTime.Add(-10 * time.Minute),
		PreEnd:     spikeTime.Add(-time.Second),
		SpikeStart: spikeTime,
		SpikeEnd:   spikeTime.Add(time.Minute - time.Second),
		PostStart:  spikeTime.Add(time.Minute),
		PostEnd:    spikeTime.Add(11 * time.Minute),
	}
}

// ServiceDescriptor identifies one discovered service and its activity log.
type ServiceDescriptor struct {
	ServiceID string `json:"service_id"`
	LogPath   string `json:"log_path"`
}

// WindowCounts holds log-event volume for the three windows of one service.
type WindowCounts struct {
	Before int `json:"before"`
	Spike  int `json:"spike"`
	After  int `json:"after"`
}

// Magnitude is the largest absolute difference between any two window counts.
func (c WindowCounts) Magnitude() int {
	m := absInt(c.Spike - c.Before)
	if d := absInt(c.After - c.Spike); d > m {
		m = d
	}
	if d := absInt(c.After - c.Before); d > m {
		m = d
	}
	return m
}

// AttributionResult names the most-implicated service, if any.
type AttributionResult struct {
	ServiceID string `json:"service_id,omitempty"`
	Magnitude int    `json:"magnitude"`
}

// Attributed reports whether a clear culprit was identified.
func (a AttributionResult) Attributed() bool {
	return a.ServiceID != ""
}

// InstanceStatus mirrors the three operational status labels of the host.
type InstanceStatus struct {
	State          string `json:"state"`
	SystemStatus   string `json:"system_status"`
	InstanceStatus string `json:"instance_status"`
}

// UnknownInstanceStatus is the degraded value used when the status fetch fails.
func UnknownInstanceStatus() InstanceStatus {
	return InstanceStatus{State: "unknown", SystemStatus: "unknown", InstanceStatus: "unknown"}
}

// Outcome classifies how far a monitoring cycle progressed.
type Outcome string

const (
	// OutcomeAnalyzed means the full pipeline ran to attribution.
	OutcomeAnalyzed Outcome = "analyzed"
	// OutcomeNoData means the metric fetch returned an empty series.
	OutcomeNoData Outcome = "no_data"
	// OutcomeNoServices means discovery found nothing to correlate against.
	OutcomeNoServices Outcome = "no_services"
)

// CorrelationReport is the engine's sole output per monitoring cycle. Every
// field is always populated; degraded stages carry explicit empty or
// placeholder values rather than omissions.
type CorrelationReport struct {
	ReportID   string    `json:"report_id"`
	InstanceID string    `json:"instance_id"`
	Outcome    Outcome   `json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`

	Status   InstanceStatus    `json:"status"`
	Series   []TimeSeriesPoint `json:"series"`
	Spike    *SpikeWindow      `json:"spike,omitempty"`
	Services []ServiceDescriptor `json:"services"`

	// Counts is keyed by service ID; Services preserves discovery order.
	Counts      map[string]WindowCounts `json:"counts"`
	Attribution AttributionResult       `json:"attribution"`
	DetailLog   string                  `json:"detail_log"`

	Summary string `json:"summary"`
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
