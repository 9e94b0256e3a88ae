// Package state implements Game State: the single authoritative table of
// units, their locations, and their task queues, plus the identifier
// counter every other id in the engine is minted from. Every method here
// assumes single-goroutine ownership — the Engine Loop is the only caller,
// exactly as spec.md §5 requires, so nothing in this package takes a lock.
package state

import (
	"fmt"

	"github.com/LemmyAI/unitsim/internal/apperr"
	"github.com/LemmyAI/unitsim/internal/model"
	"github.com/LemmyAI/unitsim/internal/scheduler"
	"github.com/LemmyAI/unitsim/internal/sim"
	"github.com/LemmyAI/unitsim/internal/tasks"
)

// Config holds defaults applied to newly created units, mirroring the
// teacher's Config/DefaultConfig pattern.
type Config struct {
	DefaultSpeed       float64 // meters per second
	DefaultHealth      int
	DefaultDisplayType string
}

// DefaultConfig returns the defaults the original engine's UnitTemplate
// used: speed 1 m/s, 100/100 health, a generic display type.
func DefaultConfig() Config {
	return Config{
		DefaultSpeed:       1.0,
		DefaultHealth:      100,
		DefaultDisplayType: "SimpleUnit",
	}
}

type unitRecord struct {
	owner       model.PlayerID
	health      model.Health
	speed       float64
	displayType string
	location    model.UnitLocation
}

// GameState is the authoritative world. Create one with New and drive it
// exclusively from the Engine Loop's goroutine.
type GameState struct {
	cfg         Config
	nextID      uint64
	currentTime model.TimeStamp

	units     map[model.UnitID]*unitRecord
	simulated map[model.SimulationID]*model.SimulatedTask

	tasks *tasks.Manager
	sched *scheduler.Scheduler
}

// New returns an empty GameState.
func New(cfg Config) *GameState {
	return &GameState{
		cfg:       cfg,
		units:     make(map[model.UnitID]*unitRecord),
		simulated: make(map[model.SimulationID]*model.SimulatedTask),
		tasks:     tasks.NewManager(),
		sched:     scheduler.New(),
	}
}

func (g *GameState) nextIDValue() uint64 {
	id := g.nextID
	g.nextID++
	return id
}

// AllocatePlayerID mints a fresh PlayerID from the shared id counter.
func (g *GameState) AllocatePlayerID() model.PlayerID {
	return model.PlayerID(g.nextIDValue())
}

// CurrentTime reports the last time the engine advanced to.
func (g *GameState) CurrentTime() model.TimeStamp { return g.currentTime }

// SetCurrentTime advances the game clock. The Engine Loop calls this once
// per tick after draining completions.
func (g *GameState) SetCurrentTime(t model.TimeStamp) { g.currentTime = t }

// CreateUnit mints a fresh UnitID owned by owner, placed at location, using
// configured defaults for health, speed, and display type.
func (g *GameState) CreateUnit(owner model.PlayerID, location model.OrientedPoint) model.UnitID {
	unit := model.UnitID(g.nextIDValue())
	g.units[unit] = &unitRecord{
		owner:       owner,
		health:      model.Health{Current: g.cfg.DefaultHealth, Max: g.cfg.DefaultHealth},
		speed:       g.cfg.DefaultSpeed,
		displayType: g.cfg.DefaultDisplayType,
		location:    model.UnitLocation{Kind: model.LocationFixed, Fixed: location},
	}
	g.tasks.UnitCreated(unit)
	return unit
}

// Exists reports whether unit has been created.
func (g *GameState) Exists(unit model.UnitID) bool {
	_, ok := g.units[unit]
	return ok
}

func (g *GameState) record(unit model.UnitID) (*unitRecord, error) {
	r, ok := g.units[unit]
	if !ok {
		return nil, apperr.New(apperr.InvalidUnitID, "state.GameState", fmt.Errorf("unit %d", unit))
	}
	return r, nil
}

// LocationOf returns unit's location at time at, evaluating its current
// AnimationSegment if it is mid-move.
func (g *GameState) LocationOf(unit model.UnitID, at model.TimeStamp) (model.OrientedPoint, error) {
	r, err := g.record(unit)
	if err != nil {
		return model.OrientedPoint{}, err
	}
	return g.locationFrom(r.location, at)
}

func (g *GameState) locationFrom(loc model.UnitLocation, at model.TimeStamp) (model.OrientedPoint, error) {
	switch loc.Kind {
	case model.LocationFixed:
		return loc.Fixed, nil
	case model.LocationByMoveTask:
		st, ok := g.simulated[loc.SimulationID]
		if !ok {
			return model.OrientedPoint{}, apperr.New(apperr.InternalError, "state.GameState.locationFrom",
				fmt.Errorf("missing simulated task %d", loc.SimulationID))
		}
		if at < st.Animation.BeginTime || at > st.FinishTime {
			return model.OrientedPoint{}, apperr.New(apperr.InternalError, "state.GameState.locationFrom",
				fmt.Errorf("time %d outside [%d, %d] for simulation %d", at, st.Animation.BeginTime, st.FinishTime, loc.SimulationID))
		}
		return st.Animation.PlaceAt(at), nil
	default:
		return model.OrientedPoint{}, apperr.New(apperr.InternalError, "state.GameState.locationFrom", nil)
	}
}

// SpeedOf returns unit's configured speed in meters per second.
func (g *GameState) SpeedOf(unit model.UnitID) (float64, error) {
	r, err := g.record(unit)
	if err != nil {
		return 0, err
	}
	return r.speed, nil
}

// SetQueue resolves reqTasks against unit's current position and speed,
// installs them as unit's new queue, and updates the scheduler and
// simulated-task table to match. It implements spec.md §4.4's SetQueue
// operation: replace-wholesale semantics, chaining each task's start from
// the previous task's computed end.
func (g *GameState) SetQueue(unit model.UnitID, reqTasks []model.Task) (tasks.Transition, error) {
	r, err := g.record(unit)
	if err != nil {
		return tasks.Transition{}, err
	}

	now := g.currentTime
	cursorTime := now
	cursorLoc, err := g.locationFrom(r.location, now)
	if err != nil {
		return tasks.Transition{}, err
	}
	currentLoc := cursorLoc

	sims := make([]model.SimulatedTask, 0, len(reqTasks))
	ids := make([]model.SimulationID, 0, len(reqTasks))
	for _, task := range reqTasks {
		segment, finish, err := sim.Simulate(cursorLoc, cursorTime, r.speed, task)
		if err != nil {
			return tasks.Transition{}, err
		}
		id := model.SimulationID(g.nextIDValue())
		st := model.SimulatedTask{ID: id, Task: task, Animation: segment, FinishTime: finish}
		sims = append(sims, st)
		ids = append(ids, id)

		cursorTime = finish
		cursorLoc = segment.PlaceAt(finish)
	}

	transition, err := g.tasks.SetQueue(unit, ids)
	if err != nil {
		return tasks.Transition{}, err
	}

	for _, st := range sims {
		st := st
		g.simulated[st.ID] = &st
	}

	discard := discardSet(transition.Discarded)
	g.purgeDiscarded(discard)

	if transition.To != nil {
		r.location = model.UnitLocation{Kind: model.LocationByMoveTask, SimulationID: transition.To.SimulationID}
		st := g.simulated[transition.To.SimulationID]
		g.sched.Push(model.CompletionEntry{FinishTime: st.FinishTime, SimulationID: st.ID, UnitID: unit})
	} else {
		r.location = model.UnitLocation{Kind: model.LocationFixed, Fixed: currentLoc}
	}

	return transition, nil
}

// ClearQueue empties unit's queue, equivalent to SetQueue with no tasks.
func (g *GameState) ClearQueue(unit model.UnitID) (tasks.Transition, error) {
	return g.SetQueue(unit, nil)
}

func discardSet(ids []model.SimulationID) map[model.SimulationID]struct{} {
	set := make(map[model.SimulationID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (g *GameState) purgeDiscarded(discard map[model.SimulationID]struct{}) {
	if len(discard) == 0 {
		return
	}
	for id := range discard {
		delete(g.simulated, id)
	}
	g.sched.RemoveWhere(func(e model.CompletionEntry) bool {
		_, ok := discard[e.SimulationID]
		return ok
	})
}

// DrainCompletions advances every task whose finish time has passed now,
// applying each one's effect on Game State in finish-time order, and
// returns the entries that completed.
func (g *GameState) DrainCompletions(now model.TimeStamp) ([]model.CompletionEntry, error) {
	var completed []model.CompletionEntry
	for {
		entry, ok := g.sched.Peek()
		if !ok || entry.FinishTime > now {
			break
		}
		g.sched.Pop()
		if err := g.applyCompletion(entry); err != nil {
			return completed, err
		}
		completed = append(completed, entry)
	}
	return completed, nil
}

func (g *GameState) applyCompletion(entry model.CompletionEntry) error {
	r, err := g.record(entry.UnitID)
	if err != nil {
		return err
	}
	st, ok := g.simulated[entry.SimulationID]
	if !ok {
		return apperr.New(apperr.InternalError, "state.GameState.applyCompletion",
			fmt.Errorf("missing simulated task %d", entry.SimulationID))
	}

	transition, err := g.tasks.TaskCompleted(entry.UnitID, entry.SimulationID)
	if err != nil {
		return err
	}

	discard := discardSet(transition.Discarded)
	g.purgeDiscarded(discard)

	if transition.To != nil {
		next, ok := g.simulated[transition.To.SimulationID]
		if !ok {
			return apperr.New(apperr.InternalError, "state.GameState.applyCompletion",
				fmt.Errorf("missing simulated task %d", transition.To.SimulationID))
		}
		r.location = model.UnitLocation{Kind: model.LocationByMoveTask, SimulationID: next.ID}
		g.sched.Push(model.CompletionEntry{FinishTime: next.FinishTime, SimulationID: next.ID, UnitID: entry.UnitID})
	} else {
		end := st.Animation.PlaceAt(st.FinishTime)
		r.location = model.UnitLocation{Kind: model.LocationFixed, Fixed: end}
	}

	return nil
}

// UnitSequences returns every known unit's current SequenceNumber, for the
// Perspective Broadcaster to diff against.
func (g *GameState) UnitSequences() map[model.UnitID]model.SequenceNumber {
	return g.tasks.Sequences()
}

// UnitSnapshot is the materialized view of a unit the wire layer turns into
// an Animatable: its display type and the ordered queue of simulated tasks
// still ahead of it (including the one currently running).
type UnitSnapshot struct {
	UnitID      model.UnitID
	DisplayType string
	Queue       []model.SimulatedTask
}

// Snapshot materializes unit's current state for transmission. ok is false
// if unit does not exist.
func (g *GameState) Snapshot(unit model.UnitID) (UnitSnapshot, bool) {
	r, ok := g.units[unit]
	if !ok {
		return UnitSnapshot{}, false
	}

	ids, err := g.tasks.Queue(unit)
	if err != nil {
		return UnitSnapshot{}, false
	}

	queue := make([]model.SimulatedTask, 0, len(ids))
	if len(ids) == 0 {
		queue = append(queue, model.SimulatedTask{
			Animation: model.AnimationSegment{
				BeginTime:        g.currentTime,
				BeginLocation:    r.location.Fixed.Point,
				BeginOrientation: r.location.Fixed.Orientation,
			},
			FinishTime: g.currentTime,
		})
	} else {
		for _, id := range ids {
			if st, ok := g.simulated[id]; ok {
				queue = append(queue, *st)
			}
		}
	}

	return UnitSnapshot{UnitID: unit, DisplayType: r.displayType, Queue: queue}, true
}
