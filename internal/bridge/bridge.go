// Package bridge implements the Subscriber Bridge: per-connection
// WebSocket plumbing that turns an engine.Engine into something browsers
// and the manual CLI client can talk to. Each live subscriber gets a
// bounded outbound buffer; a subscriber that can't keep up is dropped
// rather than slowing the engine, per spec.md §5. The read/ping/publish
// pump layout is adapted from niceyeti-tabular's fastview client.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"github.com/LemmyAI/unitsim/internal/apperr"
	"github.com/LemmyAI/unitsim/internal/engine"
	"github.com/LemmyAI/unitsim/internal/model"
	"github.com/LemmyAI/unitsim/internal/wire"
)

const (
	writeWait      = 5 * time.Second
	pingResolution = 5 * time.Second
	pongWait       = pingResolution * 3

	// outboxSize is the per-subscriber buffer spec.md §5/§8 scenario 6
	// refers to as "the configured buffer"; a subscriber whose outbox
	// fills is terminated rather than allowed to block the engine.
	outboxSize = 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type subscriber struct {
	id   uuid.UUID
	out  chan wire.Event
	once sync.Once
}

func newSubscriber() *subscriber {
	return &subscriber{id: uuid.New(), out: make(chan wire.Event, outboxSize)}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.out) })
}

// Bridge fans engine events out to connected WebSocket subscribers and
// turns CreateShape/SetQueue/ClearQueue HTTP requests into engine calls.
type Bridge struct {
	engine *engine.Engine

	mu   sync.RWMutex
	subs map[model.PlayerID]*subscriber
}

// New returns a Bridge fronting eng.
func New(eng *engine.Engine) *Bridge {
	return &Bridge{engine: eng, subs: make(map[model.PlayerID]*subscriber)}
}

// SendTo implements engine.Publisher: a non-blocking send to player's
// outbox, terminating the connection if it's full.
func (b *Bridge) SendTo(player model.PlayerID, ev wire.Event) error {
	b.mu.RLock()
	sub, ok := b.subs[player]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	return b.deliver(player, sub, ev)
}

// Broadcast implements engine.Publisher: the same non-blocking-or-terminate
// send, applied to every connected subscriber.
func (b *Bridge) Broadcast(ev wire.Event) {
	b.mu.RLock()
	targets := make(map[model.PlayerID]*subscriber, len(b.subs))
	for player, sub := range b.subs {
		targets[player] = sub
	}
	b.mu.RUnlock()

	for player, sub := range targets {
		_ = b.deliver(player, sub, ev)
	}
}

func (b *Bridge) deliver(player model.PlayerID, sub *subscriber, ev wire.Event) error {
	select {
	case sub.out <- ev:
		return nil
	default:
		log.Printf("bridge: player %d lagging, terminating connection", player)
		b.unregister(player)
		sub.close()
		return apperr.New(apperr.UnableToSend, "bridge.deliver", fmt.Errorf("player %d outbox full", player))
	}
}

func (b *Bridge) register(player model.PlayerID, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[player] = sub
}

func (b *Bridge) unregister(player model.PlayerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, player)
}

// HandleSubscribe upgrades r to a WebSocket and streams Event values to it
// until the connection drops. It implements spec.md §6's Subscribe RPC
// over a plain WebSocket rather than a gRPC stream — the transport choice
// spec.md treats as an external-collaborator concern.
func (b *Bridge) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("bridge: upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	player, err := b.engine.Join(ctx)
	if err != nil {
		log.Printf("bridge: join failed: %v", err)
		conn.Close()
		return
	}
	sub := newSubscriber()
	b.register(player, sub)

	log.Printf("✅ bridge: subscriber connected, player %d (%s)", player, sub.id)

	defer func() {
		b.unregister(player)
		sub.close()
		b.engine.Leave(player)
		conn.Close()
		log.Printf("❎ bridge: subscriber disconnected, player %d", player)
	}()

	if err := conn.WriteJSON(wire.Event{
		Type:           wire.EventTypePlayerIdentity,
		PlayerIdentity: &wire.PlayerIdentityEvent{PlayerID: uint64(player)},
	}); err != nil {
		log.Printf("bridge: failed to send identity to player %d: %v", player, err)
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return readPump(groupCtx, conn) })
	group.Go(func() error { return pingPong(groupCtx, conn) })
	group.Go(func() error { return publishPump(groupCtx, conn, sub.out) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("bridge: connection for player %d ended: %v", player, err)
	}
}

func readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// errPongDeadlineExceeded is returned by pingPong when a subscriber stops
// answering pings, so HandleSubscribe's errgroup tears the connection down
// instead of holding it open indefinitely.
var errPongDeadlineExceeded = errors.New("subscriber disconnect: pong deadline exceeded")

// pingPong sends a ping every pingResolution and watches for the matching
// pong via conn's pong handler, adapted from niceyeti-tabular's fastview
// client liveness check. It requires readPump to be running concurrently,
// since pongs only arrive while ReadMessage is being called.
func pingPong(ctx context.Context, conn *websocket.Conn) error {
	pong := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	lastPong := time.Now()
	ticks := channerics.NewTicker(ctx.Done(), pingResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pong:
			lastPong = time.Now()
		case <-ticks:
			if time.Since(lastPong) > pongWait {
				return errPongDeadlineExceeded
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func publishPump(ctx context.Context, conn *websocket.Conn, out <-chan wire.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-out:
			if !ok {
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return err
			}
		}
	}
}

// parsePlayerID reads the player-id header spec.md §6 requires CreateShape
// to carry. The SetQueue and ClearQueue handlers do not read it.
func parsePlayerID(r *http.Request) (model.PlayerID, error) {
	header := r.Header.Get("player-id")
	if header == "" {
		return 0, apperr.New(apperr.MalformedRequest, "bridge.parsePlayerID", fmt.Errorf("missing player-id header"))
	}
	var id uint64
	if _, err := fmt.Sscanf(header, "%d", &id); err != nil {
		return 0, apperr.New(apperr.MalformedRequest, "bridge.parsePlayerID", err)
	}
	return model.PlayerID(id), nil
}

// HandleCreateShape implements spec.md §6's CreateShape RPC: it spawns a
// unit owned by the caller and returns its id.
func (b *Bridge) HandleCreateShape(w http.ResponseWriter, r *http.Request) {
	player, err := parsePlayerID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	unit, err := b.engine.CreateUnit(r.Context(), player)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, wire.CreateShapeResponse{ID: uint64(unit)})
}

// HandleSetQueue implements spec.md §6's SetQueue RPC.
func (b *Bridge) HandleSetQueue(w http.ResponseWriter, r *http.Request) {
	var req wire.SetQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	tasks := make([]model.Task, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		mt, ok := t.ToModelTask()
		if !ok {
			http.Error(w, "malformed task", http.StatusBadRequest)
			return
		}
		tasks = append(tasks, mt)
	}

	if err := b.engine.SetQueue(r.Context(), model.UnitID(req.UnitID), tasks); err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, wire.SetQueueResponse{Valid: true})
}

// HandleClearQueue implements spec.md §6's ClearQueue RPC.
func (b *Bridge) HandleClearQueue(w http.ResponseWriter, r *http.Request) {
	var req wire.ClearQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	if err := b.engine.ClearQueue(r.Context(), model.UnitID(req.UnitID)); err != nil {
		writeAppErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeAppErr(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.MalformedRequest, apperr.InvalidUnitID:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("bridge: internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("bridge: failed to encode response: %v", err)
	}
}
