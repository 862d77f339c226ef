package attendance

import (
	"context"
	"encoding/json"

	"timeclock/internal/queue"
)

// MessageRecorded is the queue message type for committed events.
const MessageRecorded = "attendance.recorded"

// QueuePublisher announces events on a queue.
type QueuePublisher struct {
	q queue.Queue
}

// NewQueuePublisher wraps q.
func NewQueuePublisher(q queue.Queue) *QueuePublisher {
	return &QueuePublisher{q: q}
}

// Publish implements Publisher.
func (p *QueuePublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.q.Publish(ctx, queue.Message{Type: MessageRecorded, Body: body})
}

// DecodeRecorded extracts the event carried by a MessageRecorded message.
func DecodeRecorded(msg queue.Message) (Event, error) {
	var evt Event
	err := json.Unmarshal(msg.Body, &evt)
	return evt, err
}
