package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"weatheralert/internal/types"
)

// mockCloudWatchClient records PutMetricData calls for verification.
type mockCloudWatchClient struct {
	calls     []*cloudwatch.PutMetricDataInput
	returnErr error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func testReport() types.CycleReport {
	r := types.NewCycleReport("cycle-1", time.Date(2026, 10, 14, 6, 10, 0, 0, time.UTC), time.Date(2026, 10, 14, 6, 10, 1, 0, time.UTC))
	r.Outcomes[types.OutcomeEvaluated] = 7
	r.Outcomes[types.OutcomeSkippedTransient] = 2
	r.Notifications[types.AlertKindDailySummary] = 5
	r.DispatchFailures = 1
	r.Duration = 1500 * time.Millisecond
	return r
}

func findDatum(data []cwtypes.MetricDatum, name, dimValue string) *cwtypes.MetricDatum {
	for i := range data {
		d := &data[i]
		if *d.MetricName != name {
			continue
		}
		if dimValue == "" && len(d.Dimensions) == 0 {
			return d
		}
		for _, dim := range d.Dimensions {
			if *dim.Value == dimValue {
				return d
			}
		}
	}
	return nil
}

func TestCloudWatchMetrics_RecordCycle(t *testing.T) {
	cw := &mockCloudWatchClient{}
	NewCloudWatchMetrics(cw, "", nil).RecordCycle(context.Background(), testReport())

	if len(cw.calls) != 1 {
		t.Fatalf("expected 1 PutMetricData call, got %d", len(cw.calls))
	}
	input := cw.calls[0]
	if *input.Namespace != DefaultMetricNamespace {
		t.Errorf("namespace = %q", *input.Namespace)
	}

	tests := []struct {
		metric string
		dim    string
		want   float64
	}{
		{MetricUsersEvaluated, "", 7},
		{MetricDispatchFailures, "", 1},
		{MetricCycleDuration, "", 1500},
		{MetricUserFailures, string(types.OutcomeSkippedTransient), 2},
		{MetricUserFailures, string(types.OutcomeSkippedPermanent), 0},
		{MetricNotificationsEmitted, string(types.AlertKindDailySummary), 5},
		{MetricNotificationsEmitted, string(types.AlertKindForecastChange), 0},
	}
	for _, tt := range tests {
		d := findDatum(input.MetricData, tt.metric, tt.dim)
		if d == nil {
			t.Errorf("missing datum %s[%s]", tt.metric, tt.dim)
			continue
		}
		if *d.Value != tt.want {
			t.Errorf("%s[%s] = %v, want %v", tt.metric, tt.dim, *d.Value, tt.want)
		}
	}
}

func TestCloudWatchMetrics_ErrorIsSwallowed(t *testing.T) {
	cw := &mockCloudWatchClient{returnErr: errors.New("access denied")}
	m := NewCloudWatchMetrics(cw, "Custom", nil)

	m.RecordCycle(context.Background(), testReport())

	if len(cw.calls) != 1 || *cw.calls[0].Namespace != "Custom" {
		t.Fatalf("expected one call to the Custom namespace")
	}
}
