package apiserver

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// hub fans each handle's broadcasts out only to the clients subscribed to
// that handle, grounded on the teacher's internal/api/websocket.go Hub.
// Unlike the teacher's version there's no register/unregister channel
// loop — connection churn on a handful of live-chart viewers doesn't need
// one, so register/unregister just take the mutex directly.
type hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[uuid.UUID]map[*wsClient]bool)}
}

func (h *hub) register(id uuid.UUID, c *wsClient) {
	h.mu.Lock()
	if h.clients[id] == nil {
		h.clients[id] = make(map[*wsClient]bool)
	}
	h.clients[id][c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(id uuid.UUID, c *wsClient) {
	h.mu.Lock()
	if set, ok := h.clients[id]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, id)
		}
	}
	h.mu.Unlock()
}

// broadcast pushes message to every client subscribed to id, dropping any
// client whose send buffer is already full rather than blocking the
// caller.
func (h *hub) broadcast(id uuid.UUID, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[id] {
		select {
		case c.send <- message:
		default:
			delete(h.clients[id], c)
			close(c.send)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket upgrades the connection and subscribes it to one
// handle's broadcasts; every subsequent POST .../values for that handle
// pushes its computed rows here. The read loop exists only to notice the
// client disconnecting, matching the teacher's handleWebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "malformed handle id", http.StatusBadRequest)
		return
	}
	if _, ok := s.cache.Get(id); !ok {
		http.Error(w, "unknown handle", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("apiserver: websocket upgrade:", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 256)}
	s.hub.register(id, client)

	go func() {
		defer conn.Close()
		for message := range client.send {
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			w.Close()
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.unregister(id, client)
}
