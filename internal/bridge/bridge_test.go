package bridge

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LemmyAI/unitsim/internal/engine"
	"github.com/LemmyAI/unitsim/internal/model"
	"github.com/LemmyAI/unitsim/internal/state"
	"github.com/LemmyAI/unitsim/internal/wire"
)

func newTestBridge() *Bridge {
	eng := engine.New(state.DefaultConfig(), noopPublisherOverride{}, time.Hour)
	return New(eng)
}

// noopPublisherOverride satisfies engine.Publisher for bridge construction
// in tests that never start the engine loop.
type noopPublisherOverride struct{}

func (noopPublisherOverride) SendTo(model.PlayerID, wire.Event) error { return nil }
func (noopPublisherOverride) Broadcast(wire.Event)                    {}

func TestParsePlayerIDMissingHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/shapes", nil)
	if _, err := parsePlayerID(r); err == nil {
		t.Fatal("expected error for missing player-id header")
	}
}

func TestParsePlayerIDMalformedHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/shapes", nil)
	r.Header.Set("player-id", "not-a-number")
	if _, err := parsePlayerID(r); err == nil {
		t.Fatal("expected error for malformed player-id header")
	}
}

func TestParsePlayerIDValid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/shapes", nil)
	r.Header.Set("player-id", "42")
	id, err := parsePlayerID(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("expected player id 42, got %d", id)
	}
}

func TestDeliverTerminatesLaggingSubscriber(t *testing.T) {
	b := newTestBridge()
	sub := newSubscriber()
	b.register(1, sub)

	// Fill the outbox to capacity so the next send observes it full.
	for i := 0; i < outboxSize; i++ {
		sub.out <- wire.Event{Type: wire.EventTypeSynchronize}
	}

	err := b.SendTo(1, wire.Event{Type: wire.EventTypeSynchronize})
	if err == nil {
		t.Fatal("expected error when outbox is full")
	}

	b.mu.RLock()
	_, stillRegistered := b.subs[1]
	b.mu.RUnlock()
	if stillRegistered {
		t.Error("expected lagging subscriber to be unregistered")
	}
}

func TestSendToUnknownPlayerIsNoop(t *testing.T) {
	b := newTestBridge()
	if err := b.SendTo(999, wire.Event{Type: wire.EventTypeSynchronize}); err != nil {
		t.Errorf("expected nil error for unknown player, got %v", err)
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := newTestBridge()
	s1, s2 := newSubscriber(), newSubscriber()
	b.register(1, s1)
	b.register(2, s2)

	b.Broadcast(wire.Event{Type: wire.EventTypeSynchronize})

	select {
	case ev := <-s1.out:
		if ev.Type != wire.EventTypeSynchronize {
			t.Errorf("unexpected event for subscriber 1: %v", ev)
		}
	default:
		t.Error("expected subscriber 1 to receive broadcast")
	}
	select {
	case ev := <-s2.out:
		if ev.Type != wire.EventTypeSynchronize {
			t.Errorf("unexpected event for subscriber 2: %v", ev)
		}
	default:
		t.Error("expected subscriber 2 to receive broadcast")
	}
}
