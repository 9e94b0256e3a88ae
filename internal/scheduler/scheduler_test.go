package scheduler

import (
	"testing"

	"github.com/LemmyAI/unitsim/internal/model"
)

func TestPushPopOrdersByFinishTime(t *testing.T) {
	s := New()
	s.Push(model.CompletionEntry{FinishTime: 300, SimulationID: 1, UnitID: 1})
	s.Push(model.CompletionEntry{FinishTime: 100, SimulationID: 2, UnitID: 2})
	s.Push(model.CompletionEntry{FinishTime: 200, SimulationID: 3, UnitID: 3})

	want := []model.TimeStamp{100, 200, 300}
	for _, ft := range want {
		e, ok := s.Pop()
		if !ok {
			t.Fatal("expected entry")
		}
		if e.FinishTime != ft {
			t.Errorf("expected finish time %d, got %d", ft, e.FinishTime)
		}
	}
	if s.Len() != 0 {
		t.Errorf("expected empty scheduler, got len %d", s.Len())
	}
}

func TestTieBreaksBySimulationID(t *testing.T) {
	s := New()
	s.Push(model.CompletionEntry{FinishTime: 100, SimulationID: 5, UnitID: 1})
	s.Push(model.CompletionEntry{FinishTime: 100, SimulationID: 2, UnitID: 2})
	s.Push(model.CompletionEntry{FinishTime: 100, SimulationID: 3, UnitID: 3})

	var got []model.SimulationID
	for s.Len() > 0 {
		e, _ := s.Pop()
		got = append(got, e.SimulationID)
	}
	want := []model.SimulationID{2, 3, 5}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("position %d: expected sim %d, got %d", i, id, got[i])
		}
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	s := New()
	s.Push(model.CompletionEntry{FinishTime: 10, SimulationID: 1})

	if _, ok := s.Peek(); !ok {
		t.Fatal("expected entry")
	}
	if s.Len() != 1 {
		t.Errorf("expected peek to leave entry in place, len=%d", s.Len())
	}
}

func TestRemoveWhere(t *testing.T) {
	s := New()
	s.Push(model.CompletionEntry{FinishTime: 10, SimulationID: 1, UnitID: 1})
	s.Push(model.CompletionEntry{FinishTime: 20, SimulationID: 2, UnitID: 1})
	s.Push(model.CompletionEntry{FinishTime: 30, SimulationID: 3, UnitID: 2})

	s.RemoveWhere(func(e model.CompletionEntry) bool { return e.UnitID == 1 })

	if s.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", s.Len())
	}
	e, _ := s.Pop()
	if e.SimulationID != 3 {
		t.Errorf("expected surviving entry to be sim 3, got %d", e.SimulationID)
	}
}

func TestPopEmpty(t *testing.T) {
	s := New()
	if _, ok := s.Pop(); ok {
		t.Fatal("expected ok=false on empty scheduler")
	}
}
