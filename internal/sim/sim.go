// Package sim implements the Motion Simulator: the pure function that turns
// a requested Task, a starting position, and a speed into a closed-form
// AnimationSegment plus the absolute time it finishes.
package sim

import (
	"math"

	"github.com/LemmyAI/unitsim/internal/apperr"
	"github.com/LemmyAI/unitsim/internal/model"
)

// Epsilon is the tolerance below which a speed or distance is treated as
// zero, to avoid division by (near) zero and degenerate zero-duration
// segments.
const Epsilon = 1e-6

// millisPerSecond converts a meters-per-second speed into the engine's
// native meters-per-millisecond unit.
const millisPerSecond = 1000.0

// Simulate resolves one Task into an AnimationSegment beginning at startTime
// from start, moving at speedMetersPerSecond. It returns the segment and the
// absolute TimeStamp at which it finishes.
func Simulate(start model.OrientedPoint, startTime model.TimeStamp, speedMetersPerSecond float64, task model.Task) (model.AnimationSegment, model.TimeStamp, error) {
	switch task.Kind {
	case model.TaskMoveTo:
		return simulateMoveTo(start, startTime, speedMetersPerSecond, task.Destination)
	default:
		return model.AnimationSegment{}, 0, apperr.New(apperr.MalformedRequest, "sim.Simulate", nil)
	}
}

func simulateMoveTo(start model.OrientedPoint, startTime model.TimeStamp, speedMetersPerSecond float64, destination model.Point) (model.AnimationSegment, model.TimeStamp, error) {
	if speedMetersPerSecond < Epsilon {
		return model.AnimationSegment{}, 0, apperr.New(apperr.MalformedRequest, "sim.Simulate", nil)
	}

	dx := destination.X - start.X
	dy := destination.Y - start.Y
	distance := math.Hypot(dx, dy)

	if distance < Epsilon {
		return model.AnimationSegment{}, 0, apperr.New(apperr.MalformedRequest, "sim.Simulate", nil)
	}

	speedPerMS := speedMetersPerSecond / millisPerSecond

	durationMS := distance / speedPerMS
	finish := startTime + model.TimeStamp(math.Round(durationMS))

	orientation := math.Atan2(dy, dx)

	segment := model.AnimationSegment{
		BeginTime:     startTime,
		BeginLocation: start.Point,
		Delta: model.Delta{
			DX: dx / distance * speedPerMS,
			DY: dy / distance * speedPerMS,
		},
		BeginOrientation: orientation,
	}
	return segment, finish, nil
}
