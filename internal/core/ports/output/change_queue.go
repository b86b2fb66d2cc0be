package ports

import "context"

// Message is one delivery of a queued change notification.
type Message struct {
	ID         string
	Body       []byte
	Attributes map[string]string
	// Receipt identifies this delivery for Ack and Release.
	Receipt string
	// ReceiveCount is 1 on first delivery where the backend tracks it.
	ReceiveCount int
}

// ChangeQueue is an at-least-once queue. A received message stays invisible
// to other consumers until it is acked, released, or its visibility timeout
// lapses.
type ChangeQueue interface {
	Send(ctx context.Context, body []byte, attributes map[string]string) error
	// Receive waits briefly for up to limit messages and may return none.
	Receive(ctx context.Context, limit int) ([]Message, error)
	// Ack removes the message permanently.
	Ack(ctx context.Context, msg Message) error
	// Release makes the message visible again for redelivery.
	Release(ctx context.Context, msg Message) error
}
