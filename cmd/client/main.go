// Command client is a simple manual test client for the unitsim server: it
// subscribes over WebSocket, logs every event, and lets the operator drive
// CreateShape/SetQueue/ClearQueue from a line-oriented prompt.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/LemmyAI/unitsim/internal/wire"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "server address")
	flag.Parse()

	wsURL := url.URL{Scheme: "ws", Host: *addr, Path: "/subscribe"}
	log.Printf("🎮 connecting to %s...", wsURL.String())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var playerID uint64
	received := make(chan struct{})

	go func() {
		for {
			var ev wire.Event
			if err := conn.ReadJSON(&ev); err != nil {
				log.Printf("read error: %v", err)
				close(received)
				return
			}
			switch ev.Type {
			case wire.EventTypePlayerIdentity:
				playerID = ev.PlayerIdentity.PlayerID
				log.Printf("✅ player identity: %d", playerID)
			case wire.EventTypeSynchronize:
				log.Printf("synchronize: game_time=%d", ev.Synchronize.GameTime)
			case wire.EventTypeShow:
				log.Printf("show: unit=%d display=%s", ev.Show.UnitID, ev.Show.Anim.DisplayType)
			case wire.EventTypeUpdate:
				log.Printf("update: unit=%d queue_len=%d", ev.Update.UnitID, len(ev.Update.Queue.Queue))
			case wire.EventTypeHide:
				log.Printf("hide: unit=%d", ev.Hide.ID)
			case wire.EventTypeWarning:
				log.Printf("warning: %s", ev.Warning.Message)
			}
		}
	}()

	fmt.Println("Commands: create | queue <unit> <x> <y> [x y ...] | clear <unit> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	httpBase := "http://" + *addr

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit":
			log.Println("👋 goodbye!")
			return
		case "create":
			id, err := createShape(httpBase, playerID)
			if err != nil {
				log.Printf("create failed: %v", err)
				continue
			}
			log.Printf("created unit %d", id)
		case "queue":
			if err := sendQueue(httpBase, fields[1:]); err != nil {
				log.Printf("queue failed: %v", err)
			}
		case "clear":
			if len(fields) != 2 {
				log.Printf("usage: clear <unit>")
				continue
			}
			if err := clearQueue(httpBase, fields[1]); err != nil {
				log.Printf("clear failed: %v", err)
			}
		default:
			log.Printf("unknown command: %s", fields[0])
		}
	}

	<-received
}

func createShape(base string, playerID uint64) (uint64, error) {
	req, err := http.NewRequest(http.MethodPost, base+"/shapes", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("player-id", strconv.FormatUint(playerID, 10))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var out wire.CreateShapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func sendQueue(base string, args []string) error {
	if len(args) < 3 || (len(args)-1)%2 != 0 {
		return fmt.Errorf("usage: queue <unit> <x> <y> [x y ...]")
	}
	unit, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}

	var tasks []wire.Task
	for i := 1; i+1 < len(args); i += 2 {
		x, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return err
		}
		y, err := strconv.ParseFloat(args[i+1], 32)
		if err != nil {
			return err
		}
		tasks = append(tasks, wire.Task{
			Kind:        "Move",
			Destination: &wire.Point{X: float32(x), Y: float32(y)},
		})
	}

	body, err := json.Marshal(wire.SetQueueRequest{UnitID: unit, Tasks: tasks})
	if err != nil {
		return err
	}

	resp, err := http.Post(base+"/queue", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out wire.SetQueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	log.Printf("queue accepted: %v", out.Valid)
	return nil
}

func clearQueue(base, unitArg string) error {
	unit, err := strconv.ParseUint(unitArg, 10, 64)
	if err != nil {
		return err
	}

	body, err := json.Marshal(wire.ClearQueueRequest{UnitID: unit})
	if err != nil {
		return err
	}

	resp, err := http.Post(base+"/queue/clear", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
