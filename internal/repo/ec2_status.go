package repo

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/stratusops/spikecorr/internal/models"
)

// ec2API is the subset of the EC2 client used for status lookups.
type ec2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
}

// EC2StatusSource reads the operational status labels of the monitored host.
type EC2StatusSource struct {
	client ec2API
	logger *slog.Logger
}

// NewEC2StatusSource constructs a status source over an EC2 client.
func NewEC2StatusSource(client ec2API, logger *slog.Logger) *EC2StatusSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &EC2StatusSource{client: client, logger: logger}
}

// FetchStatus returns the instance state and health labels. Any failure
// degrades to "unknown" for all three fields; status is never load-bearing
// enough to abort a cycle.
func (s *EC2StatusSource) FetchStatus(ctx context.Context, instanceID string) models.InstanceStatus {
	status := models.UnknownInstanceStatus()

	described, err := s.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		s.logger.Warn("describe instances failed", slog.Any("error", err))
		return status
	}
	if len(described.Reservations) == 0 || len(described.Reservations[0].Instances) == 0 {
		s.logger.Warn("instance not found", slog.String("instance_id", instanceID))
		return status
	}
	instance := described.Reservations[0].Instances[0]
	if instance.State != nil {
		status.State = string(instance.State.Name)
	}

	health, err := s.client.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		s.logger.Warn("describe instance status failed", slog.Any("error", err))
		return status
	}
	if len(health.InstanceStatuses) == 0 {
		return status
	}
	first := health.InstanceStatuses[0]
	if first.SystemStatus != nil {
		status.SystemStatus = string(first.SystemStatus.Status)
	}
	if first.InstanceStatus != nil {
		status.InstanceStatus = string(first.InstanceStatus.Status)
	}
	return status
}
