// Package redisqueue implements the change queue on a Redis stream with a
// consumer group.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
)

const (
	fieldBody       = "body"
	fieldAttributes = "attributes"
)

// Queue delivers each stream entry to one consumer of the group. Entries
// left pending longer than the visibility timeout are reclaimed, which gives
// at-least-once delivery across crashed consumers.
type Queue struct {
	client     *redis.Client
	stream     string
	group      string
	consumer   string
	visibility time.Duration
	block      time.Duration
}

type Option func(*Queue)

func WithVisibilityTimeout(d time.Duration) Option {
	return func(q *Queue) { q.visibility = d }
}

// WithBlock sets how long Receive waits for new entries. A negative value
// does not wait.
func WithBlock(d time.Duration) Option {
	return func(q *Queue) { q.block = d }
}

func New(client *redis.Client, stream, group, consumer string, opts ...Option) *Queue {
	q := &Queue{
		client:     client,
		stream:     stream,
		group:      group,
		consumer:   consumer,
		visibility: 30 * time.Second,
		block:      time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Connect dials Redis and checks the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (q *Queue) Send(ctx context.Context, body []byte, attributes map[string]string) error {
	values, err := entryValues(body, attributes)
	if err != nil {
		return err
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.stream, Values: values}).Err(); err != nil {
		return queueError("xadd", err)
	}
	return nil
}

func entryValues(body []byte, attributes map[string]string) (map[string]interface{}, error) {
	attrs, err := json.Marshal(attributes)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return map[string]interface{}{
		fieldBody:       string(body),
		fieldAttributes: string(attrs),
	}, nil
}

// Receive first reclaims entries whose consumer went quiet, then reads new ones.
func (q *Queue) Receive(ctx context.Context, limit int) ([]output.Message, error) {
	msgs, err := q.reclaim(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(msgs) >= limit {
		return msgs, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(limit - len(msgs)),
		Block:    q.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return msgs, nil
		}
		return msgs, queueError("xreadgroup", err)
	}

	for _, s := range streams {
		for _, m := range s.Messages {
			msgs = append(msgs, toMessage(m, 1))
		}
	}
	return msgs, nil
}

func (q *Queue) reclaim(ctx context.Context, limit int) ([]output.Message, error) {
	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.visibility,
		Start:    "0-0",
		Count:    int64(limit),
	}).Result()
	if err != nil {
		return nil, queueError("xautoclaim", err)
	}

	msgs := make([]output.Message, 0, len(claimed))
	for _, m := range claimed {
		msgs = append(msgs, toMessage(m, q.deliveries(ctx, m.ID)))
	}
	return msgs, nil
}

// deliveries reads the delivery counter of a pending entry, 0 if unknown.
func (q *Queue) deliveries(ctx context.Context, id string) int {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

func toMessage(m redis.XMessage, count int) output.Message {
	msg := output.Message{ID: m.ID, Receipt: m.ID, ReceiveCount: count}
	if body, ok := m.Values[fieldBody].(string); ok {
		msg.Body = []byte(body)
	}
	if raw, ok := m.Values[fieldAttributes].(string); ok {
		_ = json.Unmarshal([]byte(raw), &msg.Attributes)
	}
	return msg
}

// Ack acknowledges and deletes the entry.
func (q *Queue) Ack(ctx context.Context, msg output.Message) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.XAck(ctx, q.stream, q.group, msg.Receipt)
		p.XDel(ctx, q.stream, msg.Receipt)
		return nil
	})
	if err != nil {
		return queueError("xack", err)
	}
	return nil
}

// Release re-appends the entry and acknowledges the old one in one
// transaction, so it is redelivered at once instead of after the timeout.
func (q *Queue) Release(ctx context.Context, msg output.Message) error {
	values, err := entryValues(msg.Body, msg.Attributes)
	if err != nil {
		return err
	}
	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.XAdd(ctx, &redis.XAddArgs{Stream: q.stream, Values: values})
		p.XAck(ctx, q.stream, q.group, msg.Receipt)
		p.XDel(ctx, q.stream, msg.Receipt)
		return nil
	})
	if err != nil {
		return queueError("release", err)
	}
	return nil
}

func queueError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransientQueue, op, err)
}

var _ output.ChangeQueue = (*Queue)(nil)
