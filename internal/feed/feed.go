// Package feed pushes submission review events to open review screens.
// Events fan out over a redis pub/sub channel per assignment, so every
// subscribed client sees every event.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is one submission lifecycle change.
type Event struct {
	Type         string    `json:"type"` // submitted | graded
	AssignmentID string    `json:"assignment_id"`
	SubmissionID string    `json:"submission_id"`
	StudentID    string    `json:"student_id"`
	At           time.Time `json:"at"`
}

// Feed publishes and subscribes submission events.
type Feed struct {
	client *redis.Client
}

// New creates a feed over a redis client.
func New(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func channel(assignmentID string) string {
	return "classadmin:review:" + assignmentID
}

// Publish broadcasts an event to the assignment's channel.
func (f *Feed) Publish(ctx context.Context, evt Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channel(evt.AssignmentID), payload).Err()
}

// Subscribe streams events for one assignment until the context is done.
// The returned close func must be called to release the connection.
func (f *Feed) Subscribe(ctx context.Context, assignmentID string) (<-chan Event, func(), error) {
	ps := f.client.Subscribe(ctx, channel(assignmentID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-ps.Channel():
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}
