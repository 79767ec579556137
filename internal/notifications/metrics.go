package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"weatheralert/internal/types"
)

// Metric names and dimensions published per cycle.
const (
	DefaultMetricNamespace = "WeatherAlert"

	MetricUsersEvaluated       = "UsersEvaluated"
	MetricUserFailures         = "UserFailures"
	MetricNotificationsEmitted = "NotificationsEmitted"
	MetricDispatchFailures     = "DispatchFailures"
	MetricStateConflicts       = "StateConflicts"
	MetricCycleDuration        = "CycleDuration"

	DimAlertKind = "AlertKind"
	DimOutcome   = "Outcome"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics publishes a cycle report as one PutMetricData call.
// Failures are logged and never returned; metrics must not fail a cycle.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a publisher. An empty namespace uses
// DefaultMetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = DefaultMetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordCycle emits the counters of report.
func (m *CloudWatchMetrics) RecordCycle(ctx context.Context, report types.CycleReport) {
	ts := report.StartedAt
	data := []cwtypes.MetricDatum{
		count(MetricUsersEvaluated, report.Outcomes[types.OutcomeEvaluated], ts),
		count(MetricDispatchFailures, report.DispatchFailures, ts),
		count(MetricStateConflicts, report.Conflicts, ts),
		{
			MetricName: aws.String(MetricCycleDuration),
			Value:      aws.Float64(float64(report.Duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  aws.Time(ts),
		},
	}

	for _, outcome := range []types.UserOutcome{
		types.OutcomeSkippedTransient,
		types.OutcomeSkippedPermanent,
		types.OutcomeStoreUnavailable,
	} {
		d := count(MetricUserFailures, report.Outcomes[outcome], ts)
		d.Dimensions = []cwtypes.Dimension{{Name: aws.String(DimOutcome), Value: aws.String(string(outcome))}}
		data = append(data, d)
	}

	for _, kind := range types.AllAlertKinds {
		d := count(MetricNotificationsEmitted, report.Notifications[kind], ts)
		d.Dimensions = []cwtypes.Dimension{{Name: aws.String(DimAlertKind), Value: aws.String(string(kind))}}
		data = append(data, d)
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record cycle metrics",
			"error", err.Error(),
			"cycle_id", report.CycleID,
		)
	}
}

func count(name string, v int, ts time.Time) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(float64(v)),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  aws.Time(ts),
	}
}

// LogMetrics writes the cycle report to the log. Used for local runs.
type LogMetrics struct {
	logger *slog.Logger
}

// NewLogMetrics creates a LogMetrics.
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{logger: logger}
}

// RecordCycle logs report.
func (m *LogMetrics) RecordCycle(ctx context.Context, report types.CycleReport) {
	m.logger.InfoContext(ctx, "cycle metrics",
		"cycle_id", report.CycleID,
		"users_total", report.UsersTotal,
		"outcomes", report.Outcomes,
		"notifications", report.NotificationsTotal(),
		"dispatch_failures", report.DispatchFailures,
		"duration_ms", report.Duration.Milliseconds(),
	)
}
