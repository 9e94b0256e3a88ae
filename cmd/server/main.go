// Command server runs the authoritative unit-movement simulation server:
// an Engine Loop driving Game State, fronted by a Subscriber Bridge over
// WebSocket and plain HTTP.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/LemmyAI/unitsim/internal/bridge"
	"github.com/LemmyAI/unitsim/internal/engine"
	"github.com/LemmyAI/unitsim/internal/state"
)

const (
	defaultBindAddr = "127.0.0.1:50051"
	defaultTickMS   = 30
)

func main() {
	log.Println("🎮 unitsim server starting...")

	bindAddr := envOr("BIND_ADDR", defaultBindAddr)
	tickMS := envIntOr("TICK_MS", defaultTickMS)
	tickInterval := time.Duration(tickMS) * time.Millisecond

	eng := engine.New(state.DefaultConfig(), nil, tickInterval)
	br := bridge.New(eng)
	eng.SetPublisher(br)

	eng.Start()
	defer eng.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/subscribe", br.HandleSubscribe)
	mux.HandleFunc("/shapes", br.HandleCreateShape)
	mux.HandleFunc("/queue", br.HandleSetQueue)
	mux.HandleFunc("/queue/clear", br.HandleClearQueue)

	server := &http.Server{
		Addr:    bindAddr,
		Handler: cors(mux),
	}

	go func() {
		log.Printf("🌐 listening on %s (tick interval %s)", bindAddr, tickInterval)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("fatal: bind failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	log.Println("👋 bye")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, player-id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
