package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"gamebook/server/internal/config"
	"gamebook/server/internal/play"
	"gamebook/server/internal/scenario"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

type Handlers struct {
	config   *config.Config
	hub      *EventHub
	machine  *play.Machine
	importer *scenario.Importer
}

func NewHandlers(cfg *config.Config, hub *EventHub, machine *play.Machine, importer *scenario.Importer) *Handlers {
	return &Handlers{
		config:   cfg,
		hub:      hub,
		machine:  machine,
		importer: importer,
	}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "gamebook",
		"observers": h.hub.GetClientCount(),
	})
}

// ServeEvents upgrades the connection and registers a play-event observer.
func (h *Handlers) ServeEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Web] WebSocket upgrade failed: %v", err)
		return
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		conn.Close()
		return
	}

	client := &Client{
		ID:   hex.EncodeToString(buf),
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  h.hub,
	}
	h.hub.register <- client
	go client.readPump()
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func NewRouter(cfg *config.Config, machine *play.Machine, importer *scenario.Importer, hub *EventHub) *chi.Mux {
	r := chi.NewRouter()

	// Request logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("REQUEST: %s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	})

	r.Use(corsMiddleware)

	h := NewHandlers(cfg, hub, machine, importer)

	r.Get("/healthz", h.HealthCheck)
	r.Get("/ws/events", h.ServeEvents)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scenarios", h.ImportScenario)
		r.Get("/scenarios", h.ListScenarios)
		r.Get("/scenarios/{scenarioID}/stats", h.ScenarioStats)

		r.Route("/play/{scenarioID}", func(r chi.Router) {
			r.Post("/start", h.StartSession)
			r.Post("/select/{selectionID}", h.ChooseSelection)
			r.Get("/", h.CurrentView)
			r.Get("/history", h.HistoryView)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Web] Failed to encode response: %v", err)
	}
}
