package engine

import (
	"github.com/stratusops/spikecorr/internal/models"
)

// Attribute selects the single most-implicated service from the per-service
// window counts. Services are considered in discovery order and a candidate
// must strictly exceed the running maximum, so ties go to the first
// encountered service. A zero maximum means no clear culprit.
func Attribute(services []models.ServiceDescriptor, counts map[string]models.WindowCounts) models.AttributionResult {
	result := models.AttributionResult{}
	for _, svc := range services {
		magnitude := counts[svc.ServiceID].Magnitude()
		if magnitude > result.Magnitude {
			result.Magnitude = magnitude
			result.ServiceID = svc.ServiceID
		}
	}
	return result
}
