package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"holdem-lite/internal/auth"
	"holdem-lite/internal/gateway"
	"holdem-lite/internal/lobby"
	"holdem-lite/internal/persistence"
	"holdem-lite/internal/registry"
	"holdem-lite/internal/store"
)

func main() {
	st, driver, err := newStoreFromEnv()
	if err != nil {
		log.Fatalf("[server] failed to init store: %v", err)
	}
	defer st.Close()
	log.Printf("[server] persistence driver: %s", driver)

	persist := persistence.New(st)
	accounts := auth.NewManager()
	gw := gateway.New(accounts)
	reg := registry.New(persist, gw)
	gw.SetRegistry(reg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := reg.RehydrateAll(ctx); err != nil {
		log.Printf("[server] room rehydration failed: %v", err)
	}
	cancel()

	lby := lobby.New(accounts, persist, reg)

	httpAddr := addrFromEnv("HTTP_ADDR", ":8080")
	realtimeAddr := addrFromEnv("REALTIME_ADDR", httpAddr)

	lobbyMux := http.NewServeMux()
	lobbyMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	lby.RegisterRoutes(lobbyMux)

	if realtimeAddr == httpAddr {
		// Single process, single listener: lobby HTTP and the websocket
		// upgrade share one mux, as the reference server does.
		lobbyMux.HandleFunc("GET /ws", gw.HandleWebSocket)
		log.Printf("[server] listening on %s (lobby + realtime)", httpAddr)
		if err := http.ListenAndServe(httpAddr, lobbyMux); err != nil {
			log.Fatalf("[server] failed to start: %v", err)
		}
		return
	}

	realtimeMux := http.NewServeMux()
	realtimeMux.HandleFunc("GET /ws", gw.HandleWebSocket)

	errCh := make(chan error, 2)
	go func() {
		log.Printf("[server] lobby listening on %s", httpAddr)
		errCh <- http.ListenAndServe(httpAddr, lobbyMux)
	}()
	go func() {
		log.Printf("[server] realtime listening on %s", realtimeAddr)
		errCh <- http.ListenAndServe(realtimeAddr, realtimeMux)
	}()
	log.Fatalf("[server] listener exited: %v", <-errCh)
}

func newStoreFromEnv() (store.Store, string, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_DRIVER")))
	switch driver {
	case "postgres":
		s, err := store.NewPostgresStoreFromEnv()
		return s, "postgres", err
	case "sqlite", "":
		s, err := store.NewSQLiteStoreFromEnv()
		return s, "sqlite", err
	default:
		s, err := store.NewSQLiteStoreFromEnv()
		return s, "sqlite", err
	}
}

func addrFromEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
