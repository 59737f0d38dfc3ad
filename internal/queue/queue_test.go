package queue

import (
	"context"
	"testing"
	"time"
)

func TestEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{name: "plain", msg: Message{Type: "submitted", Body: []byte("asg1_s1")}},
		{name: "body with separator", msg: Message{Type: "graded", Body: []byte("a|b|c")}},
		{name: "empty body", msg: Message{Type: "submitted", Body: []byte("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := encode(tt.msg)
			if err != nil {
				t.Fatalf("encode() error = %v", err)
			}
			got, err := decode(payload)
			if err != nil {
				t.Fatalf("decode() error = %v", err)
			}
			if got.Type != tt.msg.Type || string(got.Body) != string(tt.msg.Body) {
				t.Errorf("round trip = %+v, want %+v", got, tt.msg)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := decode("not json"); err == nil {
		t.Errorf("decode() accepted garbage")
	}
}

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: "submitted", Body: []byte("x")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	select {
	case msg := <-out:
		if msg.Type != "submitted" || string(msg.Body) != "x" {
			t.Errorf("got %+v", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(ctx, Message{Type: "submitted"}); err == nil {
		t.Errorf("Publish() on cancelled context = nil, want error")
	}
}
