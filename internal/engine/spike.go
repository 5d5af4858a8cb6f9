package engine

import (
	"errors"

	"github.com/stratusops/spikecorr/internal/models"
)

// ErrMetricUnavailable signals an empty metric series; the pipeline skips all
// spike-dependent stages and emits a status-only report.
var ErrMetricUnavailable = errors.New("no metric data in range")

// ErrDiscoveryEmpty signals that no services were found on the host.
var ErrDiscoveryEmpty = errors.New("no services discovered")

// DetectSpike returns the maximum-value sample of an ordered series. Ties are
// won by the first occurrence in scan order so repeated runs over the same
// series attribute the same minute.
func DetectSpike(series []models.TimeSeriesPoint) (models.TimeSeriesPoint, error) {
	if len(series) == 0 {
		return models.TimeSeriesPoint{}, ErrMetricUnavailable
	}

	spike := series[0]
	for _, point := range series[1:] {
		if point.Value > spike.Value {
			spike = point
		}
	}
	return spike, nil
}
