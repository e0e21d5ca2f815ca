package network

import (
	"errors"
	"testing"
	"time"
)

func startTestPublisher(t *testing.T) *Publisher {
	t.Helper()

	pub := NewPublisher("tcp://127.0.0.1:0")
	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(pub.Stop)

	if pub.Addr() == "" {
		t.Fatal("publisher has no bound address")
	}
	return pub
}

func TestPublisherLifecycle(t *testing.T) {
	pub := startTestPublisher(t)

	if !pub.IsRunning() {
		t.Error("publisher should be running after Start")
	}

	if err := pub.Start(); err == nil {
		t.Error("second Start should fail")
	}

	pub.Stop()
	if pub.IsRunning() {
		t.Error("publisher should not be running after Stop")
	}

	// Idempotent stop
	pub.Stop()
}

func TestPublishNotRunning(t *testing.T) {
	pub := NewPublisher("tcp://127.0.0.1:0")

	err := pub.Publish(&StepEvent{Type: EventStepCompleted, StepID: "s1"})
	if !errors.Is(err, ErrPublisherNotRunning) {
		t.Errorf("Expected ErrPublisherNotRunning, got %v", err)
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	pub := startTestPublisher(t)

	sub, err := NewSubscriber("tcp://" + pub.Addr())
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	defer sub.Close()

	// Slow joiner: give the SUB socket time to finish the handshake.
	time.Sleep(200 * time.Millisecond)

	sent := &StepEvent{
		Type:       EventStepCompleted,
		StepID:     "normalize-1",
		Success:    true,
		DurationMs: 12.5,
		WorkerID:   3,
	}

	// Publish repeatedly until the subscriber sees it or we time out.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-sub.Events():
			if event.Type != EventStepCompleted {
				t.Errorf("Expected type %q, got %q", EventStepCompleted, event.Type)
			}
			if event.StepID != "normalize-1" {
				t.Errorf("Expected step normalize-1, got %s", event.StepID)
			}
			if !event.Success {
				t.Error("Expected success=true")
			}
			if event.DurationMs != 12.5 {
				t.Errorf("Expected duration 12.5, got %v", event.DurationMs)
			}
			if event.Timestamp.IsZero() {
				t.Error("Timestamp should be filled in on publish")
			}
			return
		case <-ticker.C:
			if err := pub.Publish(sent); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPublishFailedEvent(t *testing.T) {
	pub := startTestPublisher(t)

	sub, err := NewSubscriber("tcp://" + pub.Addr())
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	defer sub.Close()

	time.Sleep(200 * time.Millisecond)

	sent := &StepEvent{
		Type:    EventStepFailed,
		StepID:  "divide-2",
		Success: false,
		Error:   "operation would divide by zero",
	}

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-sub.Events():
			if event.Type != EventStepFailed {
				t.Errorf("Expected type %q, got %q", EventStepFailed, event.Type)
			}
			if event.Success {
				t.Error("Expected success=false")
			}
			if event.Error == "" {
				t.Error("Expected error text to survive the round trip")
			}
			return
		case <-ticker.C:
			if err := pub.Publish(sent); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSubscriberBadEndpoint(t *testing.T) {
	if _, err := NewSubscriber("bogus://nowhere"); err == nil {
		t.Error("Expected error for invalid endpoint")
	}
}

func TestSubscriberCloseIdempotent(t *testing.T) {
	pub := startTestPublisher(t)

	sub, err := NewSubscriber("tcp://" + pub.Addr())
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}

	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("Events channel should be closed")
	}
}
