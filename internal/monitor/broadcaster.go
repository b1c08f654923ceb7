package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/loom/pkg/queue"
)

// MessageType identifies a websocket message.
type MessageType string

const (
	MessageStats MessageType = "stats"
	MessageBye   MessageType = "bye"
)

// StatsMessage is sent to websocket clients.
type StatsMessage struct {
	Type   MessageType   `json:"type"`
	Time   time.Time     `json:"time"`
	Queues []queue.Stats `json:"queues,omitempty"`
}

// broadcaster fans messages out to connected websocket clients.
type broadcaster struct {
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// handleWebSocket upgrades the request and keeps the client registered
// until it disconnects.
func (b *broadcaster) handleWebSocket(w http.ResponseWriter, req *http.Request, hello StatsMessage) {
	conn, err := b.upgrader.Upgrade(w, req, nil)
	if err != nil {
		b.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	wmu := &sync.Mutex{}
	b.mu.Lock()
	b.clients[conn] = wmu
	b.mu.Unlock()

	b.send(conn, wmu, hello)

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	b.drop(conn)
}

// broadcast sends msg to all connected clients.
func (b *broadcaster) broadcast(msg StatsMessage) {
	b.mu.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(b.clients))
	for conn, wmu := range b.clients {
		clients[conn] = wmu
	}
	b.mu.RUnlock()

	for conn, wmu := range clients {
		b.send(conn, wmu, msg)
	}
}

func (b *broadcaster) send(conn *websocket.Conn, wmu *sync.Mutex, msg StatsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("encode stats message", "error", err)
		return
	}

	wmu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	wmu.Unlock()
	if err != nil {
		b.drop(conn)
	}
}

func (b *broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	_, ok := b.clients[conn]
	delete(b.clients, conn)
	b.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (b *broadcaster) clientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// close says goodbye to every client and closes its connection.
func (b *broadcaster) close() {
	b.broadcast(StatsMessage{Type: MessageBye, Time: time.Now()})

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		conn.Close()
		delete(b.clients, conn)
	}
}
