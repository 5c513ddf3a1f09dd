package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is a jobQueue over a buffered channel, for local development
// and tests.
type MemoryQueue struct {
	jobs chan jobMessage
}

// NewMemoryQueue creates a MemoryQueue with the given capacity; zero or
// negative picks a sensible default.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 128
	}
	return &MemoryQueue{jobs: make(chan jobMessage, capacity)}
}

// Send enqueues a payload, blocking until there is room or ctx is done.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case q.jobs <- jobMessage{ID: uuid.NewString(), Body: body, ReceiptHandle: uuid.NewString()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for at least one message, then drains up to maxMessages
// without blocking further. A zero waitSeconds waits indefinitely.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]jobMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var deadline <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}

	var first jobMessage
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-deadline:
		return nil, nil
	case first = <-q.jobs:
	}

	batch := append(make([]jobMessage, 0, maxMessages), first)
	for len(batch) < maxMessages {
		select {
		case msg := <-q.jobs:
			batch = append(batch, msg)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

// Delete is a no-op; channel receives already consume the message.
func (q *MemoryQueue) Delete(_ context.Context, _ string) error {
	return nil
}
