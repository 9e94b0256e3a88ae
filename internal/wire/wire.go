// Package wire is the external message contract: the JSON shapes that
// cross the WebSocket and HTTP boundary, matching spec.md §6's event field
// schema. These are deliberately separate from internal/model so the wire
// format can evolve (field names, widened float types) without touching
// the simulation core, the same separation the teacher draws between
// internal/protocol and internal/game.
package wire

import "github.com/LemmyAI/unitsim/internal/model"

// Point is a wire-format location. Coordinates are narrowed to float32 on
// the wire per spec.md §6, independent of the float64 used internally.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Delta is a wire-format rate of change, f64 per spec.md §6.
type Delta struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// AnimationSegment mirrors model.AnimationSegment for transmission. Delta
// is omitted (nil) for a unit that isn't moving.
type AnimationSegment struct {
	BeginTime        uint64  `json:"begin_time"`
	BeginLocation    Point   `json:"begin_location"`
	Delta            *Delta  `json:"delta,omitempty"`
	BeginOrientation float64 `json:"begin_orientation"`
	FinishTime       uint64  `json:"finish_time"`
}

// Task is the wire form of a requested task: a tagged kind with the field
// relevant to it populated.
type Task struct {
	Kind        string `json:"kind"`
	Destination *Point `json:"destination,omitempty"`
}

// Animatable is the full materialized view of a unit's queue, sent on Show
// and Update.
type Animatable struct {
	UnitID      uint64             `json:"unit_id"`
	DisplayType string             `json:"display_type"`
	Queue       []AnimationSegment `json:"queue"`
}

// Event is the tagged union of everything Subscribe can emit. Exactly one
// of the pointer fields matching Type is non-nil.
type Event struct {
	Type string `json:"type"`

	PlayerIdentity *PlayerIdentityEvent `json:"player_identity,omitempty"`
	Synchronize    *SynchronizeEvent    `json:"synchronize,omitempty"`
	Show           *ShowEvent           `json:"show,omitempty"`
	Update         *UpdateEvent         `json:"update,omitempty"`
	Hide           *HideEvent           `json:"hide,omitempty"`
	Warning        *WarningEvent        `json:"warning,omitempty"`
}

const (
	EventTypePlayerIdentity = "player_identity"
	EventTypeSynchronize    = "synchronize"
	EventTypeShow           = "show"
	EventTypeUpdate         = "update"
	EventTypeHide           = "hide"
	EventTypeWarning        = "warning"
)

// PlayerIdentityEvent is always the first event sent on a new subscription.
type PlayerIdentityEvent struct {
	PlayerID uint64 `json:"player_id"`
}

// SynchronizeEvent is emitted once per tick.
type SynchronizeEvent struct {
	WallTime uint64 `json:"wall_time"`
	GameTime uint64 `json:"game_time"`
}

// ShowEvent introduces a unit the subscriber has not seen before.
type ShowEvent struct {
	UnitID uint64     `json:"unit_id"`
	Anim   Animatable `json:"anim"`
}

// UpdateEvent reports a change to a unit the subscriber already knows
// about.
type UpdateEvent struct {
	UnitID uint64     `json:"unit_id"`
	Queue  Animatable `json:"queue"`
}

// HideEvent reports that a unit is no longer part of the subscriber's
// visible world.
type HideEvent struct {
	ID uint64 `json:"id"`
}

// WarningEvent carries non-fatal gameplay feedback.
type WarningEvent struct {
	Message string `json:"message"`
}

// CreateShapeResponse is returned by the CreateShape HTTP handler.
type CreateShapeResponse struct {
	ID uint64 `json:"id"`
}

// SetQueueRequest is the body of a SetQueue HTTP request.
type SetQueueRequest struct {
	UnitID uint64 `json:"unit_id"`
	Tasks  []Task `json:"tasks"`
}

// SetQueueResponse reports whether the request was accepted.
type SetQueueResponse struct {
	Valid bool `json:"valid"`
}

// ClearQueueRequest is the body of a ClearQueue HTTP request.
type ClearQueueRequest struct {
	UnitID uint64 `json:"unit_id"`
}

// ToModelPoint converts a wire Point to the internal representation.
func (p Point) ToModelPoint() model.Point {
	return model.Point{X: float64(p.X), Y: float64(p.Y)}
}

// FromModelPoint converts an internal Point to its wire representation.
func FromModelPoint(p model.Point) Point {
	return Point{X: float32(p.X), Y: float32(p.Y)}
}

// ToModelTask converts a wire Task into the internal representation,
// returning ok=false for an unrecognized or malformed kind.
func (t Task) ToModelTask() (model.Task, bool) {
	switch t.Kind {
	case "Move":
		if t.Destination == nil {
			return model.Task{}, false
		}
		return model.Task{Kind: model.TaskMoveTo, Destination: t.Destination.ToModelPoint()}, true
	default:
		return model.Task{}, false
	}
}

// FromModelAnimationSegment converts an internal AnimationSegment and its
// absolute finish time to the wire representation. A segment with zero
// delta (a stationary unit) omits Delta entirely.
func FromModelAnimationSegment(seg model.AnimationSegment, finish model.TimeStamp) AnimationSegment {
	out := AnimationSegment{
		BeginTime:        uint64(seg.BeginTime),
		BeginLocation:    FromModelPoint(seg.BeginLocation),
		BeginOrientation: seg.BeginOrientation,
		FinishTime:       uint64(finish),
	}
	if seg.Delta.DX != 0 || seg.Delta.DY != 0 {
		out.Delta = &Delta{DX: seg.Delta.DX, DY: seg.Delta.DY}
	}
	return out
}
