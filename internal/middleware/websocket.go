package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

// sameOrigin accepts clients without an Origin header and browsers on the
// serving host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// Event is a typed push message.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans out events to connected websocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *utils.Logger
}

// activeHub feeds the websocket client gauge.
var activeHub atomic.Pointer[Hub]

func NewHub(logger *utils.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
	activeHub.Store(h)
	return h
}

// Run serves hub channels until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.clients[conn] = true
			h.mutex.Unlock()
			h.logf("WebSocket client connected")

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()
			h.logf("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logf("WebSocket write error: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Close stops Run and disconnects all clients.
func (h *Hub) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Broadcast queues a raw message. When the queue is full the message is
// dropped so publishers never block on slow clients.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logf("WebSocket broadcast queue full; dropping message")
	}
}

// Publish encodes and broadcasts a typed event.
func (h *Hub) Publish(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logf("WebSocket encode error for %s: %v", eventType, err)
		return
	}
	h.Broadcast(payload)
}

func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("WebSocket upgrade error: %v", err)
			return
		}

		select {
		case h.register <- conn:
		case <-h.done:
			conn.Close()
			return
		}

		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logf("WebSocket error: %v", err)
				}
				break
			}
		}
	}
}

func (h *Hub) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if h.logger != nil {
		h.logger.Write(msg)
		return
	}
	log.Println(msg)
}
