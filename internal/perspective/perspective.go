// Package perspective implements the Perspective Broadcaster: per-player
// bookkeeping of which units a subscriber has been told about and at what
// SequenceNumber, and the diff that turns a tick's Game State into
// Show/Update/Hide events. Grounded on the original engine's
// PlayersGamePerspective/PerspectiveUpdates (show_perspective,
// unit_exists, apply_changes).
package perspective

import (
	"sort"

	"github.com/LemmyAI/unitsim/internal/model"
)

// EventKind is the three-way classification a diff produces for one unit.
type EventKind int

const (
	// EventShow means the subscriber has never seen this unit before.
	EventShow EventKind = iota
	// EventUpdate means the subscriber has seen this unit, but its
	// SequenceNumber has advanced since the last update they received.
	EventUpdate
	// EventHide means the subscriber's perspective holds a unit that no
	// longer exists in Game State.
	EventHide
)

// StagedEvent is one unit's worth of diff output, ready for the caller to
// materialize into a wire event.
type StagedEvent struct {
	Kind   EventKind
	UnitID model.UnitID
}

// Broadcaster tracks one PlayerPerspective per joined player.
type Broadcaster struct {
	perspectives map[model.PlayerID]*model.PlayerPerspective
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{perspectives: make(map[model.PlayerID]*model.PlayerPerspective)}
}

// Join starts tracking player, with an empty perspective so their first
// diff against current state produces a Show for every unit.
func (b *Broadcaster) Join(player model.PlayerID) {
	b.perspectives[player] = model.NewPlayerPerspective()
}

// Leave stops tracking player.
func (b *Broadcaster) Leave(player model.PlayerID) {
	delete(b.perspectives, player)
}

// Players returns every joined player, sorted for deterministic iteration
// order across ticks.
func (b *Broadcaster) Players() []model.PlayerID {
	out := make([]model.PlayerID, 0, len(b.perspectives))
	for p := range b.perspectives {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Diff compares player's perspective against current (the authoritative
// unit -> SequenceNumber table for this tick) and returns every Show,
// Update, and Hide event due, applying the resulting changes to the
// perspective as it goes — mirroring apply_changes/unit_exists in the
// original.
func (b *Broadcaster) Diff(player model.PlayerID, current map[model.UnitID]model.SequenceNumber) []StagedEvent {
	persp, ok := b.perspectives[player]
	if !ok {
		return nil
	}

	var events []StagedEvent

	units := make([]model.UnitID, 0, len(current))
	for u := range current {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })

	for _, unit := range units {
		seq := current[unit]
		last, known := persp.LastUpdate[unit]
		switch {
		case !known:
			events = append(events, StagedEvent{Kind: EventShow, UnitID: unit})
			persp.LastUpdate[unit] = seq
		case last < seq:
			events = append(events, StagedEvent{Kind: EventUpdate, UnitID: unit})
			persp.LastUpdate[unit] = seq
		}
	}

	var gone []model.UnitID
	for unit := range persp.LastUpdate {
		if _, stillExists := current[unit]; !stillExists {
			gone = append(gone, unit)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, unit := range gone {
		events = append(events, StagedEvent{Kind: EventHide, UnitID: unit})
		delete(persp.LastUpdate, unit)
	}

	return events
}
