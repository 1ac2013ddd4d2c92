package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chaintwin/graph"
	"chaintwin/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for prototype
	},
}

// BroadcastMessage is one frame pushed to the visual frontend.
type BroadcastMessage struct {
	Type    string      `json:"type"`    // "graph_update", "simulation_result", "rule_update", "scenario_pending", "chat_reply"
	Payload interface{} `json:"payload"` // The actual data
}

type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan BroadcastMessage
	model     *graph.Model
	mu        sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan BroadcastMessage, 16),
	}
}

// SetModel attaches the graph model so new clients get an initial snapshot.
func (h *Hub) SetModel(m *graph.Model) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.model = m
}

func (h *Hub) Run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		for client := range h.clients {
			err := client.WriteJSON(msg)
			if err != nil {
				logger.Warn(logger.StatusWS, "WS write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) Broadcast(msgType string, payload interface{}) {
	h.broadcast <- BroadcastMessage{
		Type:    msgType,
		Payload: payload,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(logger.StatusWS, "Upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	model := h.model
	h.mu.Unlock()

	conn.WriteJSON(BroadcastMessage{Type: "system", Payload: "Connected to ChainTwin Stream"})
	if model != nil {
		conn.WriteJSON(BroadcastMessage{Type: "graph_update", Payload: model.Snapshot()})
	}
}

func StartServer(h *Hub, port string) {
	http.HandleFunc("/ws", h.HandleWebSocket)
	http.Handle("/", http.FileServer(http.Dir("./public")))

	logger.Info(logger.StatusWS, "WebSocket server on ws://localhost%s/ws", port)
	logger.Info(logger.StatusWS, "Dashboard at http://localhost%s", port)

	go func() {
		if err := http.ListenAndServe(port, nil); err != nil {
			logger.Error(logger.StatusErr, "ListenAndServe: %v", err)
		}
	}()
}
