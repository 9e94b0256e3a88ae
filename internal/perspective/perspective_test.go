package perspective

import (
	"testing"

	"github.com/LemmyAI/unitsim/internal/model"
)

func TestDiffShowsUnknownUnits(t *testing.T) {
	b := New()
	b.Join(1)

	events := b.Diff(1, map[model.UnitID]model.SequenceNumber{10: 0, 20: 0})
	if len(events) != 2 {
		t.Fatalf("expected 2 Show events, got %d", len(events))
	}
	for _, e := range events {
		if e.Kind != EventShow {
			t.Errorf("expected EventShow, got %v", e.Kind)
		}
	}
}

func TestDiffIsQuietOnRepeat(t *testing.T) {
	b := New()
	b.Join(1)
	current := map[model.UnitID]model.SequenceNumber{10: 0}

	b.Diff(1, current)
	events := b.Diff(1, current)
	if len(events) != 0 {
		t.Errorf("expected no events on unchanged sequence, got %v", events)
	}
}

func TestDiffUpdatesOnSequenceAdvance(t *testing.T) {
	b := New()
	b.Join(1)

	b.Diff(1, map[model.UnitID]model.SequenceNumber{10: 0})
	events := b.Diff(1, map[model.UnitID]model.SequenceNumber{10: 1})
	if len(events) != 1 || events[0].Kind != EventUpdate || events[0].UnitID != 10 {
		t.Errorf("expected single Update for unit 10, got %v", events)
	}
}

func TestDiffHidesRemovedUnits(t *testing.T) {
	b := New()
	b.Join(1)

	b.Diff(1, map[model.UnitID]model.SequenceNumber{10: 0})
	events := b.Diff(1, map[model.UnitID]model.SequenceNumber{})
	if len(events) != 1 || events[0].Kind != EventHide || events[0].UnitID != 10 {
		t.Errorf("expected single Hide for unit 10, got %v", events)
	}

	// A subsequent diff with the unit gone should stay quiet.
	events = b.Diff(1, map[model.UnitID]model.SequenceNumber{})
	if len(events) != 0 {
		t.Errorf("expected no further events, got %v", events)
	}
}

func TestTwoSubscribersStaggeredShow(t *testing.T) {
	b := New()
	b.Join(1)

	current := map[model.UnitID]model.SequenceNumber{10: 0}
	b.Diff(1, current)

	b.Join(2)
	events := b.Diff(2, current)
	if len(events) != 1 || events[0].Kind != EventShow {
		t.Errorf("expected newly joined player to get a Show, got %v", events)
	}
}

func TestPlayersSortedDeterministically(t *testing.T) {
	b := New()
	b.Join(3)
	b.Join(1)
	b.Join(2)

	got := b.Players()
	want := []model.PlayerID{1, 2, 3}
	for i, p := range want {
		if got[i] != p {
			t.Errorf("position %d: expected player %d, got %d", i, p, got[i])
		}
	}
}
