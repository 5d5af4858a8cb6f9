package repo

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/stratusops/spikecorr/internal/models"
	"github.com/stratusops/spikecorr/internal/utils"
)

// cloudWatchAPI is the subset of the CloudWatch client used by the metric
// source. The SDK ships no mock, so tests provide their own implementation.
type cloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// MetricQuery selects the metric to sample.
type MetricQuery struct {
	Namespace string
	Name      string
	Unit      string
}

// CloudWatchSource fetches per-minute metric samples for one instance.
type CloudWatchSource struct {
	client cloudWatchAPI
	query  MetricQuery
}

// NewCloudWatchSource constructs a metric source over a CloudWatch client.
func NewCloudWatchSource(client cloudWatchAPI, query MetricQuery) *CloudWatchSource {
	return &CloudWatchSource{client: client, query: query}
}

// FetchMetricSeries returns samples ordered by timestamp ascending at
// one-minute granularity. An empty slice means "no data in range" and is not
// an error.
func (s *CloudWatchSource) FetchMetricSeries(ctx context.Context, instanceID string, start, end time.Time) ([]models.TimeSeriesPoint, error) {
	input := &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(s.query.Namespace),
		MetricName: aws.String(s.query.Name),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("InstanceId"), Value: aws.String(instanceID)},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(60),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	}
	if s.query.Unit != "" {
		input.Unit = cwtypes.StandardUnit(s.query.Unit)
	}

	out, err := s.client.GetMetricStatistics(ctx, input)
	if err != nil {
		return nil, utils.NewAppError("cloudwatch.FetchMetricSeries", "metric statistics request failed", err)
	}

	points := make([]models.TimeSeriesPoint, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		if dp.Timestamp == nil || dp.Average == nil {
			continue
		}
		points = append(points, models.TimeSeriesPoint{
			Timestamp: aws.ToTime(dp.Timestamp),
			Value:     aws.ToFloat64(dp.Average),
		})
	}
	// Datapoints arrive unordered; downstream scanning relies on time order.
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}
