// Package engine implements the Engine Loop: the single goroutine that owns
// Game State and the Perspective Broadcaster, driven by a tick channel and a
// request channel exactly as spec.md §4.1/§5 describes. Every other
// component reaches the simulation only through the methods here, which
// enqueue a request and, except for Leave, wait for the loop's reply.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/LemmyAI/unitsim/internal/clock"
	"github.com/LemmyAI/unitsim/internal/model"
	"github.com/LemmyAI/unitsim/internal/perspective"
	"github.com/LemmyAI/unitsim/internal/state"
	"github.com/LemmyAI/unitsim/internal/wire"
)

// requestQueueSize is the bound on the Engine Loop's inbound request
// channel, per spec.md §5 ("request channel is bounded (e.g., 1024);
// senders block when full").
const requestQueueSize = 1024

// Publisher is how the Engine Loop reaches subscribers. Implementations
// (the Subscriber Bridge) must never block the caller for long — spec.md
// §5 requires slow subscribers to be dropped, not to slow the engine.
type Publisher interface {
	SendTo(player model.PlayerID, ev wire.Event) error
	Broadcast(ev wire.Event)
}

// Engine owns Game State and runs the tick loop in its own goroutine.
type Engine struct {
	gameState *state.GameState
	persp     *perspective.Broadcaster
	pub       Publisher
	clk       *clock.Clock

	reqCh  chan request
	doneCh chan struct{}
}

// New returns an Engine configured to tick every tickInterval. Call Start
// to begin running it. pub may be nil and supplied later via SetPublisher
// — the Subscriber Bridge needs a reference to the Engine to construct,
// so the two are necessarily wired up in two steps.
func New(cfg state.Config, pub Publisher, tickInterval time.Duration) *Engine {
	return &Engine{
		gameState: state.New(cfg),
		persp:     perspective.New(),
		pub:       pub,
		clk:       clock.New(tickInterval),
		reqCh:     make(chan request, requestQueueSize),
		doneCh:    make(chan struct{}),
	}
}

// SetPublisher assigns the Engine's outbound Publisher. Call it before
// Start; the Engine Loop only reads e.pub from its own goroutine once
// running, so assigning it before Start avoids any synchronization.
func (e *Engine) SetPublisher(pub Publisher) {
	e.pub = pub
}

// Start runs the Engine Loop in a new goroutine.
func (e *Engine) Start() {
	go e.run()
	log.Printf("🎮 engine started: tick interval %s", e.clk.Interval())
}

// Stop shuts down the Engine Loop.
func (e *Engine) Stop() {
	close(e.doneCh)
	log.Println("🛑 engine stopped")
}

func (e *Engine) run() {
	ticks := e.clk.Ticks(e.doneCh)
	for {
		select {
		case <-e.doneCh:
			return
		case t := <-ticks:
			e.tick(t)
		case req := <-e.reqCh:
			e.handle(req)
		}
	}
}

// tick drains completions, advances game time, and pushes a perspective
// diff to every joined player, matching spec.md §4.1's tick body.
func (e *Engine) tick(wall time.Time) {
	now := e.clk.Now()

	if _, err := e.gameState.DrainCompletions(now); err != nil {
		log.Printf("engine: error draining completions: %v", err)
	}
	e.gameState.SetCurrentTime(now)

	sequences := e.gameState.UnitSequences()
	for _, player := range e.persp.Players() {
		for _, staged := range e.persp.Diff(player, sequences) {
			ev, ok := e.materialize(staged)
			if !ok {
				continue
			}
			if err := e.pub.SendTo(player, ev); err != nil {
				log.Printf("engine: send to player %d failed: %v", player, err)
			}
		}
	}

	e.pub.Broadcast(wire.Event{
		Type: wire.EventTypeSynchronize,
		Synchronize: &wire.SynchronizeEvent{
			WallTime: uint64(wall.UnixMilli()),
			GameTime: uint64(now),
		},
	})
}

func (e *Engine) materialize(staged perspective.StagedEvent) (wire.Event, bool) {
	if staged.Kind == perspective.EventHide {
		return wire.Event{
			Type: wire.EventTypeHide,
			Hide: &wire.HideEvent{ID: uint64(staged.UnitID)},
		}, true
	}

	snap, ok := e.gameState.Snapshot(staged.UnitID)
	if !ok {
		return wire.Event{}, false
	}

	segments := make([]wire.AnimationSegment, 0, len(snap.Queue))
	for _, st := range snap.Queue {
		segments = append(segments, wire.FromModelAnimationSegment(st.Animation, st.FinishTime))
	}
	animatable := wire.Animatable{
		UnitID:      uint64(staged.UnitID),
		DisplayType: snap.DisplayType,
		Queue:       segments,
	}

	switch staged.Kind {
	case perspective.EventShow:
		return wire.Event{
			Type: wire.EventTypeShow,
			Show: &wire.ShowEvent{UnitID: uint64(staged.UnitID), Anim: animatable},
		}, true
	case perspective.EventUpdate:
		return wire.Event{
			Type:   wire.EventTypeUpdate,
			Update: &wire.UpdateEvent{UnitID: uint64(staged.UnitID), Queue: animatable},
		}, true
	default:
		return wire.Event{}, false
	}
}

// handle dispatches one request to Game State or the Broadcaster and
// replies, if the request expects a reply.
func (e *Engine) handle(req request) {
	switch r := req.(type) {
	case joinReq:
		player := e.gameState.AllocatePlayerID()
		e.persp.Join(player)
		r.reply <- player
	case leaveReq:
		e.persp.Leave(r.player)
	case createUnitReq:
		unit := e.gameState.CreateUnit(r.owner, r.location)
		r.reply <- createUnitResult{unit: unit}
	case setQueueReq:
		_, err := e.gameState.SetQueue(r.unit, r.tasks)
		r.reply <- err
	case clearQueueReq:
		_, err := e.gameState.ClearQueue(r.unit)
		r.reply <- err
	}
}

type request interface{ isRequest() }

type joinReq struct {
	reply chan model.PlayerID
}

func (joinReq) isRequest() {}

type leaveReq struct {
	player model.PlayerID
}

func (leaveReq) isRequest() {}

type createUnitResult struct {
	unit model.UnitID
	err  error
}

type createUnitReq struct {
	owner    model.PlayerID
	location model.OrientedPoint
	reply    chan createUnitResult
}

func (createUnitReq) isRequest() {}

type setQueueReq struct {
	unit  model.UnitID
	tasks []model.Task
	reply chan error
}

func (setQueueReq) isRequest() {}

type clearQueueReq struct {
	unit  model.UnitID
	reply chan error
}

func (clearQueueReq) isRequest() {}

// enqueue sends req to the Engine Loop, blocking if the request channel is
// full (spec.md §5 backpressure), or returns ctx.Err() if ctx is cancelled
// first.
func (e *Engine) enqueue(ctx context.Context, req request) error {
	select {
	case e.reqCh <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join registers a new player and returns their freshly minted PlayerID.
func (e *Engine) Join(ctx context.Context) (model.PlayerID, error) {
	reply := make(chan model.PlayerID, 1)
	if err := e.enqueue(ctx, joinReq{reply: reply}); err != nil {
		return 0, err
	}
	select {
	case player := <-reply:
		return player, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Leave stops tracking player's perspective.
func (e *Engine) Leave(player model.PlayerID) {
	select {
	case e.reqCh <- leaveReq{player: player}:
	case <-e.doneCh:
	}
}

// defaultSpawnLocation is where newly created units appear absent any
// placement request in the external interface (spec.md §6 CreateShape
// takes no location argument).
var defaultSpawnLocation = model.OrientedPoint{}

// CreateUnit spawns a unit owned by owner at the default spawn location and
// returns its UnitID.
func (e *Engine) CreateUnit(ctx context.Context, owner model.PlayerID) (model.UnitID, error) {
	reply := make(chan createUnitResult, 1)
	req := createUnitReq{owner: owner, location: defaultSpawnLocation, reply: reply}
	if err := e.enqueue(ctx, req); err != nil {
		return 0, err
	}
	select {
	case res := <-reply:
		return res.unit, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// SetQueue replaces unit's task queue with tasks.
func (e *Engine) SetQueue(ctx context.Context, unit model.UnitID, tasks []model.Task) error {
	reply := make(chan error, 1)
	req := setQueueReq{unit: unit, tasks: tasks, reply: reply}
	if err := e.enqueue(ctx, req); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearQueue empties unit's task queue.
func (e *Engine) ClearQueue(ctx context.Context, unit model.UnitID) error {
	reply := make(chan error, 1)
	req := clearQueueReq{unit: unit, reply: reply}
	if err := e.enqueue(ctx, req); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
