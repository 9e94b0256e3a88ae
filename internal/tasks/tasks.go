// Package tasks implements the Task Queue Manager: per-unit bookkeeping of
// which SimulatedTask is running, what is queued behind it, and the
// SequenceNumber subscribers use to notice a queue change. The rules here
// are grounded directly on the original engine's TaskManager
// (set_task_queue_requested / task_completed / show_perspective).
package tasks

import (
	"fmt"

	"github.com/LemmyAI/unitsim/internal/apperr"
	"github.com/LemmyAI/unitsim/internal/model"
)

// Transition describes the task-queue side effects of a SetQueue or
// TaskCompleted call: what was running before (From), what should run next
// (To), and which SimulationIDs are no longer referenced anywhere and must
// be purged from the simulated-task table and the Completion Scheduler.
type Transition struct {
	From      *FromTask
	To        *ToTask
	Discarded []model.SimulationID
}

// FromTask identifies the task that was current before the transition.
type FromTask struct {
	SimulationID model.SimulationID
	// Completed is true when the transition was driven by the task
	// finishing naturally rather than being replaced by SetQueue.
	Completed bool
}

// ToTask identifies the task that is current after the transition.
type ToTask struct {
	SimulationID model.SimulationID
}

// Manager holds UnitTasks for every known unit.
type Manager struct {
	byUnit map[model.UnitID]*model.UnitTasks
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{byUnit: make(map[model.UnitID]*model.UnitTasks)}
}

// UnitCreated registers a fresh, idle unit.
func (m *Manager) UnitCreated(unit model.UnitID) {
	m.byUnit[unit] = &model.UnitTasks{}
}

func (m *Manager) get(unit model.UnitID) (*model.UnitTasks, error) {
	ut, ok := m.byUnit[unit]
	if !ok {
		return nil, apperr.New(apperr.InvalidUnitID, "tasks.Manager", fmt.Errorf("unit %d", unit))
	}
	return ut, nil
}

// SetQueue replaces unit's queue wholesale with sims (already-resolved
// SimulatedTasks, in order). Every previously queued SimulationID — whether
// it was running or merely pending — is reported as Discarded, since
// set_task_queue_requested in the original always tears down the old
// simulated-task entries rather than trying to splice the new queue onto
// the old one. The SequenceNumber increments unless both the old and new
// queues are empty (an empty-to-empty SetQueue is not an observable
// change).
func (m *Manager) SetQueue(unit model.UnitID, sims []model.SimulationID) (Transition, error) {
	ut, err := m.get(unit)
	if err != nil {
		return Transition{}, err
	}

	var from *FromTask
	if ut.CurrentSimulationID != nil {
		from = &FromTask{SimulationID: *ut.CurrentSimulationID, Completed: false}
	}

	changed := len(ut.Tasks) != 0 || len(sims) != 0

	discarded := append([]model.SimulationID(nil), ut.Tasks...)

	var to *ToTask
	if len(sims) > 0 {
		first := sims[0]
		ut.CurrentSimulationID = &first
		to = &ToTask{SimulationID: first}
	} else {
		ut.CurrentSimulationID = nil
	}

	ut.Tasks = append([]model.SimulationID(nil), sims...)

	if changed {
		ut.SequenceNumber++
	}

	return Transition{From: from, To: to, Discarded: discarded}, nil
}

// TaskCompleted advances unit past its current task, which must be
// completedSim — the Completion Scheduler only ever reports the task that
// is actually at the head of the queue, so a mismatch here is a bug in the
// engine, not a client error, hence InternalError rather than
// MalformedRequest.
func (m *Manager) TaskCompleted(unit model.UnitID, completedSim model.SimulationID) (Transition, error) {
	ut, err := m.get(unit)
	if err != nil {
		return Transition{}, err
	}

	if ut.CurrentSimulationID == nil || *ut.CurrentSimulationID != completedSim {
		return Transition{}, apperr.New(apperr.InternalError, "tasks.Manager.TaskCompleted",
			fmt.Errorf("unit %d: completed task %d does not match current task", unit, completedSim))
	}
	if len(ut.Tasks) == 0 || ut.Tasks[0] != completedSim {
		return Transition{}, apperr.New(apperr.InternalError, "tasks.Manager.TaskCompleted",
			fmt.Errorf("unit %d: completed task %d is not at the front of the queue", unit, completedSim))
	}

	ut.Tasks = ut.Tasks[1:]

	var to *ToTask
	if len(ut.Tasks) > 0 {
		next := ut.Tasks[0]
		ut.CurrentSimulationID = &next
		to = &ToTask{SimulationID: next}
	} else {
		ut.CurrentSimulationID = nil
	}

	ut.SequenceNumber++

	return Transition{
		From:      &FromTask{SimulationID: completedSim, Completed: true},
		To:        to,
		Discarded: []model.SimulationID{completedSim},
	}, nil
}

// SequenceOf returns the current SequenceNumber for unit.
func (m *Manager) SequenceOf(unit model.UnitID) (model.SequenceNumber, error) {
	ut, err := m.get(unit)
	if err != nil {
		return 0, err
	}
	return ut.SequenceNumber, nil
}

// Queue returns a copy of unit's queued SimulationIDs, in order.
func (m *Manager) Queue(unit model.UnitID) ([]model.SimulationID, error) {
	ut, err := m.get(unit)
	if err != nil {
		return nil, err
	}
	return append([]model.SimulationID(nil), ut.Tasks...), nil
}

// Sequences returns every known unit's current SequenceNumber, for diffing
// against subscriber perspectives.
func (m *Manager) Sequences() map[model.UnitID]model.SequenceNumber {
	out := make(map[model.UnitID]model.SequenceNumber, len(m.byUnit))
	for unit, ut := range m.byUnit {
		out[unit] = ut.SequenceNumber
	}
	return out
}
