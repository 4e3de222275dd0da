package ws

import (
	"errors"
	"testing"
	"time"
)

type channelSubscriber struct {
	received chan []byte
	sendErr  error
	closed   chan struct{}
}

func newChannelSubscriber() *channelSubscriber {
	return &channelSubscriber{
		received: make(chan []byte, 8),
		closed:   make(chan struct{}, 1),
	}
}

func (s *channelSubscriber) Send(payload []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.received <- payload
	return nil
}

func (s *channelSubscriber) Close() {
	select {
	case s.closed <- struct{}{}:
	default:
	}
}

func TestHubBroadcastsOnlyToOwningUser(t *testing.T) {
	hub := NewHub(4)
	mine := newChannelSubscriber()
	theirs := newChannelSubscriber()

	hub.Register("user-1", mine)
	hub.Register("user-2", theirs)

	hub.Broadcast("user-1", []byte(`{"status":"SUCCESS"}`))

	select {
	case payload := <-mine.received:
		if string(payload) != `{"status":"SUCCESS"}` {
			t.Fatalf("unexpected payload %s", payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected user-1 subscriber to receive the event")
	}

	select {
	case payload := <-theirs.received:
		t.Fatalf("user-2 should not receive user-1 events, got %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub(4)
	broken := newChannelSubscriber()
	broken.sendErr = errors.New("connection reset")

	hub.Register("user-1", broken)
	hub.Broadcast("user-1", []byte("first"))

	select {
	case <-broken.closed:
	case <-time.After(time.Second):
		t.Fatalf("expected failing subscriber to be closed")
	}

	// A later registration for the same user still works.
	healthy := newChannelSubscriber()
	hub.Register("user-1", healthy)
	hub.Broadcast("user-1", []byte("second"))

	select {
	case payload := <-healthy.received:
		if string(payload) != "second" {
			t.Fatalf("unexpected payload %s", payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected healthy subscriber to receive the event")
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(4)
	sub := newChannelSubscriber()

	hub.Register("user-1", sub)
	hub.Unregister("user-1", sub)
	hub.Broadcast("user-1", []byte("late"))

	select {
	case payload := <-sub.received:
		t.Fatalf("unregistered subscriber should not receive events, got %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}
