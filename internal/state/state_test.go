package state

import (
	"math"
	"testing"

	"github.com/LemmyAI/unitsim/internal/model"
)

func originPoint() model.OrientedPoint {
	return model.OrientedPoint{Point: model.Point{X: 0, Y: 0}}
}

func TestCreateUnitIsFixedAtOrigin(t *testing.T) {
	g := New(DefaultConfig())
	unit := g.CreateUnit(1, originPoint())

	loc, err := g.LocationOf(unit, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.X != 0 || loc.Y != 0 {
		t.Errorf("expected unit at origin, got (%v, %v)", loc.X, loc.Y)
	}
}

func TestSetQueueMovesUnitOverTime(t *testing.T) {
	g := New(DefaultConfig())
	unit := g.CreateUnit(1, originPoint())

	_, err := g.SetQueue(unit, []model.Task{
		{Kind: model.TaskMoveTo, Destination: model.Point{X: 3, Y: 4}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, err := g.LocationOf(unit, 2500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(loc.X-1.5) > 1e-9 || math.Abs(loc.Y-2.0) > 1e-9 {
		t.Errorf("expected (1.5, 2.0) at t=2500, got (%v, %v)", loc.X, loc.Y)
	}
}

func TestDrainCompletionsFixesUnitAtDestination(t *testing.T) {
	g := New(DefaultConfig())
	unit := g.CreateUnit(1, originPoint())

	if _, err := g.SetQueue(unit, []model.Task{
		{Kind: model.TaskMoveTo, Destination: model.Point{X: 3, Y: 4}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.SetCurrentTime(5000)
	completed, err := g.DrainCompletions(5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(completed))
	}

	loc, err := g.LocationOf(unit, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(loc.X-3) > 1e-9 || math.Abs(loc.Y-4) > 1e-9 {
		t.Errorf("expected unit fixed at (3,4), got (%v, %v)", loc.X, loc.Y)
	}
}

func TestChainedQueueStartsSecondTaskFromFirstsEnd(t *testing.T) {
	g := New(DefaultConfig())
	unit := g.CreateUnit(1, originPoint())

	if _, err := g.SetQueue(unit, []model.Task{
		{Kind: model.TaskMoveTo, Destination: model.Point{X: 1, Y: 0}},
		{Kind: model.TaskMoveTo, Destination: model.Point{X: 1, Y: 1}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.SetCurrentTime(1000)
	if _, err := g.DrainCompletions(1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, err := g.LocationOf(unit, 1500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(loc.X-1) > 1e-9 || math.Abs(loc.Y-0.5) > 1e-9 {
		t.Errorf("expected (1, 0.5) midway through second leg, got (%v, %v)", loc.X, loc.Y)
	}
}

func TestSetQueueReplacesMidFlightDiscardsOldSimulation(t *testing.T) {
	g := New(DefaultConfig())
	unit := g.CreateUnit(1, originPoint())

	if _, err := g.SetQueue(unit, []model.Task{
		{Kind: model.TaskMoveTo, Destination: model.Point{X: 10, Y: 0}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.SetCurrentTime(2000)
	if _, err := g.SetQueue(unit, []model.Task{
		{Kind: model.TaskMoveTo, Destination: model.Point{X: 0, Y: 5}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.sched.Len() != 1 {
		t.Errorf("expected exactly one pending completion after replace, got %d", g.sched.Len())
	}
}

func TestClearQueueFixesUnitInPlace(t *testing.T) {
	g := New(DefaultConfig())
	unit := g.CreateUnit(1, originPoint())

	if _, err := g.SetQueue(unit, []model.Task{
		{Kind: model.TaskMoveTo, Destination: model.Point{X: 10, Y: 0}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.SetCurrentTime(5000)
	if _, err := g.ClearQueue(unit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.sched.Len() != 0 {
		t.Errorf("expected scheduler empty after clear, got %d", g.sched.Len())
	}
	loc, err := g.LocationOf(unit, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(loc.X-5) > 1e-9 {
		t.Errorf("expected unit fixed at its in-flight position (5,0), got (%v, %v)", loc.X, loc.Y)
	}
}

func TestUnknownUnitErrors(t *testing.T) {
	g := New(DefaultConfig())
	if _, err := g.LocationOf(99, 0); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}
