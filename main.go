package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"cursor-presence-server/domain"
	"cursor-presence-server/hub"
	"cursor-presence-server/presence"
	ws "cursor-presence-server/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	setupLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	minInterval := cursorMinInterval()

	cursorHub := hub.New()
	labelHub := hub.New()
	cursors := presence.NewCursorHandler(cursorHub, minInterval)
	labels := presence.NewLabelHandler(labelHub)

	r := mux.NewRouter()
	r.HandleFunc("/ws/cursors", wsHandler(cursorHub, cursors))
	r.HandleFunc("/ws/labels", wsHandler(labelHub, labels))
	r.HandleFunc("/health", healthHandler)
	r.HandleFunc("/stats", statsHandler(cursorHub, labelHub))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", port, "minInterval", minInterval)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger() {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func cursorMinInterval() time.Duration {
	raw := os.Getenv("CURSOR_MIN_INTERVAL_MS")
	if raw == "" {
		return presence.DefaultMinInterval
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		slog.Warn("invalid CURSOR_MIN_INTERVAL_MS, using default", "value", raw)
		return presence.DefaultMinInterval
	}
	return time.Duration(ms) * time.Millisecond
}

func wsHandler(broadcaster domain.Broadcaster, handler domain.SessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		room := r.URL.Query().Get("room")
		if room == "" {
			room = "default"
		}

		wsConn := ws.NewConn(uuid.New().String(), room, conn, broadcaster, handler)
		wsConn.Start()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(hubs ...*hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rooms, clients int
		for _, h := range hubs {
			hr, hc := h.Stats()
			rooms += hr
			clients += hc
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "clients": clients})
	}
}
