package models

import (
	"fmt"
	"strings"
)

// Render produces the human-readable summary that accompanies the structured
// report when it is handed to the reasoning collaborator.
func (r CorrelationReport) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Instance: %s\n", r.InstanceID)
	fmt.Fprintf(&b, "EC2 State: %s\n", r.Status.State)
	fmt.Fprintf(&b, "System Status: %s\n", r.Status.SystemStatus)
	fmt.Fprintf(&b, "Instance Status: %s\n", r.Status.InstanceStatus)

	if r.Outcome == OutcomeNoData {
		b.WriteString("No metric data found in the analysis interval.\n")
		return b.String()
	}

	b.WriteString("Metric samples per minute:\n")
	for _, p := range r.Series {
		fmt.Fprintf(&b, "%s - %.2f\n", p.Timestamp.UTC().Format("2006-01-02 15:04:05"), p.Value)
	}

	if r.Spike != nil {
		fmt.Fprintf(&b, "Highest spike detected at %s with value %.2f.\n",
			r.Spike.SpikeTime.UTC().Format("2006-01-02 15:04:05"), r.Spike.SpikeValue)
	}

	if r.Outcome == OutcomeNoServices {
		b.WriteString("No services found running on the host.\n")
		return b.String()
	}

	b.WriteString("Log counts per service across the spike windows:\n")
	for _, svc := range r.Services {
		counts := r.Counts[svc.ServiceID]
		fmt.Fprintf(&b, "  - Service: %s, Before: %d, At Spike: %d, After: %d, Magnitude: %d\n",
			svc.ServiceID, counts.Before, counts.Spike, counts.After, counts.Magnitude())
	}

	if r.Attribution.Attributed() {
		fmt.Fprintf(&b, "Service with the most significant request spike: %s (magnitude %d).\n",
			r.Attribution.ServiceID, r.Attribution.Magnitude)
		fmt.Fprintf(&b, "Detailed logs for %s during the spike window:\n%s\n",
			r.Attribution.ServiceID, r.DetailLog)
	} else {
		b.WriteString("Could not identify a clear culprit service from log data.\n")
	}

	return b.String()
}
