// Package notifications hands committed notification requests to the
// delivery side and publishes cycle metrics.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"weatheralert/internal/types"
)

// Dispatcher delivers a NotificationRequest to the messaging collaborator.
// Delivery is fire-and-forget: the state machine has already committed.
type Dispatcher interface {
	Send(ctx context.Context, req types.NotificationRequest) error
}

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSDispatcher publishes requests to a FIFO queue. Messages are grouped by
// user and deduplicated by the request's dedupe key, so a request re-sent
// within the SQS deduplication interval is dropped by the queue.
type SQSDispatcher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

var _ Dispatcher = (*SQSDispatcher)(nil)

// NewSQSDispatcher creates a dispatcher targeting queueURL.
func NewSQSDispatcher(client SQSSender, queueURL string, logger *slog.Logger) *SQSDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSDispatcher{client: client, queueURL: queueURL, logger: logger}
}

// Send serializes req and enqueues it.
func (d *SQSDispatcher) Send(ctx context.Context, req types.NotificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeDispatchFailed, "failed to marshal notification request", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:               aws.String(d.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(req.UserID),
		MessageDeduplicationId: aws.String(req.DedupeKey),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"alert_kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(req.Kind)),
			},
		},
	}

	if _, err := d.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeDispatchFailed,
			fmt.Sprintf("failed to send notification to %s", d.queueURL), err)
	}

	d.logger.InfoContext(ctx, "notification dispatched",
		"user_id", req.UserID,
		"alert_kind", string(req.Kind),
		"dedupe_key", req.DedupeKey,
	)
	return nil
}

// LogDispatcher writes requests to the log instead of a queue. Used for
// local runs.
type LogDispatcher struct {
	logger *slog.Logger
}

var _ Dispatcher = (*LogDispatcher)(nil)

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Send logs req at info level.
func (d *LogDispatcher) Send(ctx context.Context, req types.NotificationRequest) error {
	d.logger.InfoContext(ctx, "notification",
		"user_id", req.UserID,
		"alert_kind", string(req.Kind),
		"dedupe_key", req.DedupeKey,
		"payload", req.Payload,
	)
	return nil
}
