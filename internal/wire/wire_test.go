package wire

import (
	"testing"

	"github.com/LemmyAI/unitsim/internal/model"
)

func TestToModelTaskAcceptsMove(t *testing.T) {
	dest := Point{X: 1, Y: 2}
	back, ok := Task{Kind: "Move", Destination: &dest}.ToModelTask()
	if !ok {
		t.Fatal("expected successful conversion")
	}
	want := model.Task{Kind: model.TaskMoveTo, Destination: model.Point{X: 1, Y: 2}}
	if back.Kind != want.Kind || back.Destination != want.Destination {
		t.Errorf("conversion mismatch: got %+v, want %+v", back, want)
	}
}

func TestToModelTaskRejectsMissingDestination(t *testing.T) {
	_, ok := Task{Kind: "Move"}.ToModelTask()
	if ok {
		t.Error("expected failure for Move task with no destination")
	}
}

func TestToModelTaskRejectsUnknownKind(t *testing.T) {
	_, ok := Task{Kind: "Teleport"}.ToModelTask()
	if ok {
		t.Error("expected failure for unrecognized task kind")
	}
}

func TestFromModelAnimationSegmentOmitsZeroDelta(t *testing.T) {
	seg := model.AnimationSegment{BeginTime: 0, BeginLocation: model.Point{X: 1, Y: 1}}
	out := FromModelAnimationSegment(seg, 0)
	if out.Delta != nil {
		t.Errorf("expected nil delta for stationary segment, got %+v", out.Delta)
	}
}

func TestFromModelAnimationSegmentIncludesNonzeroDelta(t *testing.T) {
	seg := model.AnimationSegment{Delta: model.Delta{DX: 0.5, DY: 0}}
	out := FromModelAnimationSegment(seg, 100)
	if out.Delta == nil || out.Delta.DX != 0.5 {
		t.Errorf("expected delta to be carried through, got %+v", out.Delta)
	}
	if out.FinishTime != 100 {
		t.Errorf("expected finish time 100, got %d", out.FinishTime)
	}
}
