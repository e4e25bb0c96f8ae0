package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
)

type subscriber struct {
	userID uint
	role   string
}

func (s subscriber) wants(evt Event) bool {
	if s.role == models.RoleAdmin {
		return true
	}
	if evt.AdminOnly {
		return false
	}
	return evt.UserID == 0 || evt.UserID == s.userID
}

const (
	// clientBuffer is how many events may queue for one client before it is
	// considered too slow and dropped.
	clientBuffer = 32
	writeWait    = 10 * time.Second
	pingPeriod   = 50 * time.Second
)

// client is one registered connection. Only its writer goroutine writes to
// conn; Publish only queues into send.
type client struct {
	conn      *websocket.Conn
	sub       subscriber
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub menampung semua client websocket (customer dan admin) dan meneruskan
// event ke client yang berhak menerimanya.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

// Register -> menambahkan connection ke set dengan user dan role, lalu
// menjalankan writer untuk connection tersebut
func (h *Hub) Register(conn *websocket.Conn, userID uint, role string) {
	c := &client{
		conn: conn,
		sub:  subscriber{userID: userID, role: role},
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}
	h.mutex.Lock()
	h.clients[conn] = c
	h.mutex.Unlock()

	go h.writePump(c)
}

// Unregister -> melepaskan connection
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	c, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.mutex.Unlock()

	if ok {
		c.close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// writePump delivers queued events and keepalive pings. Every write has a
// deadline, so a peer that stops reading ends here instead of blocking.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Unregister(c.conn)
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				utils.ErrorLogger.Printf("Error sending to user %d: %v", c.sub.userID, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Publish queues evt for every interested client and never waits on the
// network. A client whose queue is full is dropped; that is not reported as
// an error.
func (h *Hub) Publish(_ context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	var slow []*client
	sent := 0

	h.mutex.Lock()
	for conn, c := range h.clients {
		if !c.sub.wants(evt) {
			continue
		}
		select {
		case c.send <- data:
			sent++
		default:
			delete(h.clients, conn)
			slow = append(slow, c)
		}
	}
	total := len(h.clients)
	h.mutex.Unlock()

	for _, c := range slow {
		utils.ErrorLogger.Printf("Dropping slow websocket client user=%d, %s not delivered", c.sub.userID, evt.Type)
		c.close()
	}
	utils.InfoLogger.Debugf("Broadcast %s to %d of %d clients", evt.Type, sent, total)
	return nil
}
