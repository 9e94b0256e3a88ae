// Package scheduler implements the Completion Scheduler: a min-heap of
// pending task completions ordered by (finish_time ASC, simulation_id ASC),
// the tie-break the original engine encodes in CompletedTask's Ord impl
// (unit_id then simulation_id) and spec.md §4.6 calls for on finish time.
package scheduler

import (
	"container/heap"

	"github.com/LemmyAI/unitsim/internal/model"
)

// Scheduler is a priority queue of model.CompletionEntry, least finish time
// first, ties broken by SimulationID so completion order is deterministic
// even when two tasks finish at the identical millisecond.
type Scheduler struct {
	h innerHeap
}

// New returns an empty Scheduler.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.h)
	return s
}

// Push adds entry to the schedule.
func (s *Scheduler) Push(entry model.CompletionEntry) {
	heap.Push(&s.h, entry)
}

// Peek returns the earliest entry without removing it. ok is false if the
// scheduler is empty.
func (s *Scheduler) Peek() (entry model.CompletionEntry, ok bool) {
	if len(s.h) == 0 {
		return model.CompletionEntry{}, false
	}
	return s.h[0], true
}

// Pop removes and returns the earliest entry. ok is false if the scheduler
// is empty.
func (s *Scheduler) Pop() (entry model.CompletionEntry, ok bool) {
	if len(s.h) == 0 {
		return model.CompletionEntry{}, false
	}
	return heap.Pop(&s.h).(model.CompletionEntry), true
}

// Len reports the number of pending entries.
func (s *Scheduler) Len() int { return len(s.h) }

// RemoveWhere deletes every entry matching pred — used when SetQueue or
// TaskCompleted discards SimulationIDs that are no longer meaningful, so
// their completions must never fire.
func (s *Scheduler) RemoveWhere(pred func(model.CompletionEntry) bool) {
	kept := s.h[:0]
	for _, e := range s.h {
		if !pred(e) {
			kept = append(kept, e)
		}
	}
	s.h = kept
	heap.Init(&s.h)
}

type innerHeap []model.CompletionEntry

func (h innerHeap) Len() int { return len(h) }

func (h innerHeap) Less(i, j int) bool {
	if h[i].FinishTime != h[j].FinishTime {
		return h[i].FinishTime < h[j].FinishTime
	}
	return h[i].SimulationID < h[j].SimulationID
}

func (h innerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *innerHeap) Push(x any) {
	*h = append(*h, x.(model.CompletionEntry))
}

func (h *innerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
