package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type fakeEC2 struct {
	describeOut *ec2.DescribeInstancesOutput
	describeErr error
	statusOut   *ec2.DescribeInstanceStatusOutput
	statusErr   error
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return f.describeOut, f.describeErr
}

func (f *fakeEC2) DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error) {
	return f.statusOut, f.statusErr
}

func TestEC2StatusSourceHealthy(t *testing.T) {
	fake := &fakeEC2{
		describeOut: &ec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{
				{Instances: []ec2types.Instance{
					{State: &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning}},
				}},
			},
		},
		statusOut: &ec2.DescribeInstanceStatusOutput{
			InstanceStatuses: []ec2types.InstanceStatus{
				{
					SystemStatus:   &ec2types.InstanceStatusSummary{Status: ec2types.SummaryStatusOk},
					InstanceStatus: &ec2types.InstanceStatusSummary{Status: ec2types.SummaryStatusOk},
				},
			},
		},
	}

	status := NewEC2StatusSource(fake, nil).FetchStatus(context.Background(), "i-123")
	if status.State != "running" || status.SystemStatus != "ok" || status.InstanceStatus != "ok" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestEC2StatusSourceDegradesToUnknown(t *testing.T) {
	fake := &fakeEC2{describeErr: fmt.Errorf("unauthorized")}

	status := NewEC2StatusSource(fake, nil).FetchStatus(context.Background(), "i-123")
	if status.State != "unknown" || status.SystemStatus != "unknown" || status.InstanceStatus != "unknown" {
		t.Fatalf("expected unknown status fields, got %+v", status)
	}
}

func TestEC2StatusSourceNoHealthRecords(t *testing.T) {
	fake := &fakeEC2{
		describeOut: &ec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{
				{Instances: []ec2types.Instance{
					{State: &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped}},
				}},
			},
		},
		statusOut: &ec2.DescribeInstanceStatusOutput{},
	}

	status := NewEC2StatusSource(fake, nil).FetchStatus(context.Background(), "i-123")
	if status.State != "stopped" {
		t.Fatalf("expected stopped state, got %q", status.State)
	}
	if status.SystemStatus != "unknown" || status.InstanceStatus != "unknown" {
		t.Fatalf("health labels should stay unknown, got %+v", status)
	}
}
