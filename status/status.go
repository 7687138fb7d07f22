// Package status fans compose progress out to websocket clients.
package status

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/composer"
	"github.com/mogaika/scene_composer/logger"
)

const (
	INFO = iota
	ERROR
	PROGRESS
)

const (
	CLIENT_QUEUE_SIZE = 32
	PING_INTERVAL     = 30 * time.Second
	WRITE_TIMEOUT     = 40 * time.Second
)

type Status struct {
	Message  string                  `json:"message"`
	Time     time.Time               `json:"time"`
	Type     int                     `json:"type"`
	Progress float32                 `json:"progress"`
	Event    *composer.ProgressEvent `json:"event,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Debug("ws write msg error", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.log.Debug("ws write ping error", zap.Error(err))
				return
			}
		}
	}
}

// readPump drains control frames so the connection notices a closing peer.
func (c *client) readPump() {
	defer c.hub.unregister(c)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

// Hub keeps the last status and the set of listening clients. Slow clients miss
// messages instead of blocking publishers.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

func NewHub() *Hub {
	return &Hub{
		log:     logger.Named("status"),
		clients: make(map[*client]struct{}),
	}
}

// Serve starts streaming to conn, beginning with the last published status.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{hub: h, conn: conn, send: make(chan []byte, CLIENT_QUEUE_SIZE)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	go c.writePump()
	go c.readPump()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Last returns the last published status as json, nil before the first one.
func (h *Hub) Last() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Hub) Publish(s *Status) {
	if math.IsNaN(float64(s.Progress)) || math.IsInf(float64(s.Progress), 0) {
		s.Progress = 0
	}
	if s.Time.IsZero() {
		s.Time = time.Now()
	}
	data, err := json.Marshal(s)
	if err != nil {
		h.log.Error("Failed to marshal status", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("Dropping status for slow client")
		}
	}
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Publish(&Status{Message: fmt.Sprintf(format, a...), Type: INFO})
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Publish(&Status{Message: fmt.Sprintf(format, a...), Type: ERROR})
}

// Progress is a composer.ProgressFunc.
func (h *Hub) Progress(ev composer.ProgressEvent) {
	var progress float32
	if ev.Total > 0 {
		progress = float32(ev.Progress) / float32(ev.Total)
	}
	msg := ev.Name
	if ev.Child != nil {
		msg = fmt.Sprintf("%s: %s (%d/%d)", ev.Name, ev.Child.Name, ev.Child.Progress, ev.Child.Total)
	}
	h.Publish(&Status{Message: msg, Type: PROGRESS, Progress: progress, Event: &ev})
}
