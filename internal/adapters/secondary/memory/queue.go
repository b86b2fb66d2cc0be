package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	output "spec-registry-service/internal/core/ports/output"
)

type entry struct {
	msg            output.Message
	invisibleUntil time.Time
}

// Queue is an at-least-once queue with a visibility timeout. Delivery order
// follows send order among visible messages.
type Queue struct {
	mu         sync.Mutex
	visibility time.Duration
	now        func() time.Time
	entries    []*entry
}

type QueueOption func(*Queue)

func WithVisibilityTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.visibility = d }
}

func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{visibility: 30 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Send(_ context.Context, body []byte, attributes map[string]string) error {
	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, &entry{msg: output.Message{
		ID:         uuid.NewString(),
		Body:       append([]byte(nil), body...),
		Attributes: attrs,
	}})
	return nil
}

func (q *Queue) Receive(ctx context.Context, limit int) ([]output.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var out []output.Message
	for _, e := range q.entries {
		if len(out) >= limit {
			break
		}
		if now.Before(e.invisibleUntil) {
			continue
		}
		e.invisibleUntil = now.Add(q.visibility)
		e.msg.Receipt = uuid.NewString()
		e.msg.ReceiveCount++
		out = append(out, e.msg)
	}
	return out, nil
}

// Ack is a no-op for a stale receipt: the message was already redelivered.
func (q *Queue) Ack(_ context.Context, msg output.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.msg.ID == msg.ID && e.msg.Receipt == msg.Receipt {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *Queue) Release(_ context.Context, msg output.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.msg.ID == msg.ID && e.msg.Receipt == msg.Receipt {
			e.invisibleUntil = time.Time{}
			return nil
		}
	}
	return nil
}

// Len counts messages not yet acked, visible or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

var _ output.ChangeQueue = (*Queue)(nil)
