// Package sqsqueue implements the change queue on Amazon SQS.
package sqsqueue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
)

// maxBatch is the ReceiveMessage limit.
const maxBatch = 10

// API is the subset of the SQS client used here.
type API interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, opts ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, opts ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, opts ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

type Queue struct {
	api        API
	url        string
	visibility time.Duration
	wait       time.Duration
}

// New uses the queue's configured visibility timeout when visibility is 0.
func New(api API, queueURL string, visibility time.Duration) *Queue {
	return &Queue{api: api, url: queueURL, visibility: visibility, wait: 10 * time.Second}
}

func (q *Queue) Send(ctx context.Context, body []byte, attributes map[string]string) error {
	attrs := make(map[string]types.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	_, err := q.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(q.url),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return queueError("send message", err)
	}
	return nil
}

// Receive long-polls for up to limit messages, capped at maxBatch.
func (q *Queue) Receive(ctx context.Context, limit int) ([]output.Message, error) {
	in := &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(q.url),
		MaxNumberOfMessages:         int32(min(max(limit, 1), maxBatch)),
		WaitTimeSeconds:             int32(q.wait / time.Second),
		MessageAttributeNames:       []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
	}
	if q.visibility > 0 {
		in.VisibilityTimeout = int32(q.visibility / time.Second)
	}

	out, err := q.api.ReceiveMessage(ctx, in)
	if err != nil {
		return nil, queueError("receive message", err)
	}

	msgs := make([]output.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := output.Message{
			ID:         aws.ToString(m.MessageId),
			Body:       []byte(aws.ToString(m.Body)),
			Receipt:    aws.ToString(m.ReceiptHandle),
			Attributes: make(map[string]string, len(m.MessageAttributes)),
		}
		for k, v := range m.MessageAttributes {
			if v.StringValue != nil {
				msg.Attributes[k] = *v.StringValue
			}
		}
		if n, err := strconv.Atoi(m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil {
			msg.ReceiveCount = n
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (q *Queue) Ack(ctx context.Context, msg output.Message) error {
	_, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(msg.Receipt),
	})
	if err != nil {
		return queueError("delete message", err)
	}
	return nil
}

// Release zeroes the visibility timeout so the message is redelivered at once.
func (q *Queue) Release(ctx context.Context, msg output.Message) error {
	_, err := q.api.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.url),
		ReceiptHandle:     aws.String(msg.Receipt),
		VisibilityTimeout: 0,
	})
	if err != nil {
		return queueError("change visibility", err)
	}
	return nil
}

func queueError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransientQueue, op, err)
}

var _ output.ChangeQueue = (*Queue)(nil)
