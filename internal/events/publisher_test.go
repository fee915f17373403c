package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/exam-attempt-service/internal/config"
)

func TestTopic(t *testing.T) {
	if got := Topic("exam", AttemptSubmitted); got != "exam.attempt.submitted" {
		t.Errorf("Topic() = %q", got)
	}
	if got := Topic("", AttemptStarted); got != "attempt.started" {
		t.Errorf("Topic() = %q", got)
	}
}

func TestNewEventPublisherWithoutBrokers(t *testing.T) {
	pub, err := NewEventPublisher(config.KafkaConfig{TopicPrefix: "exam"}, slog.Default())
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}
	defer pub.Close()

	if _, ok := pub.(*watermillPublisher); !ok {
		t.Fatalf("expected in-process watermill publisher, got %T", pub)
	}
	if err := pub.Publish(context.Background(), AttemptStarted, AttemptStartedPayload{AttemptID: 1}); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestWatermillPublisherDelivers(t *testing.T) {
	logger := slog.Default()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "exam.attempt.submitted")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	pub := &watermillPublisher{publisher: pubSub, topicPrefix: "exam", logger: logger}
	payload := AttemptSubmittedPayload{AttemptID: 9, ExamID: 2, StudentID: "s1", Score: 3, TotalPoints: 4}
	if err := pub.Publish(ctx, AttemptSubmitted, payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.Metadata.Get("event_type") != string(AttemptSubmitted) {
			t.Errorf("event_type = %q", msg.Metadata.Get("event_type"))
		}
		var got struct {
			Type    EventType               `json:"type"`
			Payload AttemptSubmittedPayload `json:"payload"`
		}
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if got.Type != AttemptSubmitted || got.Payload.AttemptID != 9 || got.Payload.Score != 3 || got.Payload.StudentID != "s1" {
			t.Errorf("event = %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(nil)
	ctx := context.Background()

	_ = mock.Publish(ctx, AttemptStarted, AttemptStartedPayload{AttemptID: 1})
	_ = mock.Publish(ctx, AttemptSubmitted, AttemptSubmittedPayload{AttemptID: 1})
	_ = mock.Publish(ctx, AttemptStarted, AttemptStartedPayload{AttemptID: 2})

	if got := len(mock.Events(AttemptStarted)); got != 2 {
		t.Errorf("started events = %d, want 2", got)
	}
	if got := len(mock.Events(ScoringIntegrityFault)); got != 0 {
		t.Errorf("integrity events = %d, want 0", got)
	}
}
