package progress

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"anime-dubber/internal/logger"
)

// Event is the JSON message pushed to websocket subscribers.
type Event struct {
	JobID   string    `json:"job_id,omitempty"`
	Percent int       `json:"percent"`
	Label   string    `json:"label"`
	Time    time.Time `json:"time"`
}

const hubWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts progress to websocket clients, letting a browser or another
// tool watch a running job. Late subscribers receive the latest event first.
type Hub struct {
	jobID string
	log   *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    *Event
	now     func() time.Time
}

// NewHub creates a hub for jobID.
func NewHub(jobID string, log *logger.Logger) *Hub {
	return &Hub{
		jobID:   jobID,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
		now:     time.Now,
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Progress websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	last := h.last
	if last != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := conn.WriteJSON(last); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
	h.mu.Unlock()

	// Drain client frames so close and ping control messages are handled.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *Hub) Report(percent int, label string) {
	ev := Event{JobID: h.jobID, Percent: Clamp(percent), Label: label, Time: h.now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &ev
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug("Dropping progress subscriber: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}
