// Package ws streams appended audit entries to connected WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/metrics"
)

// Hub channel buffer sizes.
const (
	broadcastBuffer = 256
	registerBuffer  = 64
)

// Connection caps.
const (
	maxConnections        = 1000
	maxConnectionsPerUser = 5
)

// Hub manages active stream clients and broadcasts events to all of them.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	userCount  map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	shutdown   chan struct{} // signals Run to begin graceful drain
	done       chan struct{} // closed when Run has finished draining
	count      atomic.Int64
	log        *logrus.Logger
	seq        *EventSequence
	buffer     *EventBuffer
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		userCount:  make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan []byte, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
}

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

// Run starts the hub event loop. It exits when Shutdown is called or the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
			}
			h.log.WithField("total", len(h.clients)).Info("stream client unregistered")

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer; it reconnects and replays from its last event ID.
					h.remove(client)
				}
			}
		}

		h.count.Store(int64(len(h.clients)))
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
}

func (h *Hub) add(client *Client) {
	if len(h.clients) >= maxConnections {
		h.log.Warn("global connection limit reached, dropping client")
		client.closeSend()

		return
	}

	if h.userCount[client.UserID] >= maxConnectionsPerUser {
		h.log.WithField("user_id", client.UserID).Warn("per-user connection limit reached, dropping client")
		client.closeSend()

		return
	}

	h.clients[client] = true
	h.userCount[client.UserID]++
	h.log.WithFields(logrus.Fields{
		"user_id": client.UserID,
		"total":   len(h.clients),
	}).Info("stream client registered")
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	client.closeSend()

	h.userCount[client.UserID]--
	if h.userCount[client.UserID] <= 0 {
		delete(h.userCount, client.UserID)
	}
}

// maxBroadcastPayload is the maximum allowed event size (8 KB).
const maxBroadcastPayload = 8192

func (h *Hub) enqueue(msg []byte) {
	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"payload_size": len(msg),
			"max_size":     maxBroadcastPayload,
		}).Warn("dropping oversized broadcast payload")

		return
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastEvent assigns a sequence ID, stores the event for replay and
// fans it out to every subscriber.
func (h *Hub) BroadcastEvent(eventType string, data json.RawMessage) {
	evt := Event{
		Type: eventType,
		ID:   h.seq.Next(),
		Data: data,
		Time: time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")

		return
	}

	h.buffer.Append(&evt)
	h.enqueue(msg)
}

// Shutdown sends a shutdown frame to every client, waits for their write
// pumps to flush, then closes all connections. It blocks until the drain
// completes or times out.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining stream clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		select {
		case client.send <- shutdownMsg:
		default:
		}
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

wait:
	for !h.flushed() {
		select {
		case <-deadline:
			h.log.Warn("stream drain timeout, closing remaining clients")

			break wait
		case <-ticker.C:
		}
	}

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.userCount = make(map[string]int)
	h.count.Store(0)
	metrics.WSConnections.Set(0)
}

func (h *Hub) flushed() bool {
	for client := range h.clients {
		if len(client.send) > 0 {
			return false
		}
	}

	return true
}

// ReplayEvents sends buffered events after lastEventID to the client.
// It returns false if the requested ID has already been evicted.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID()
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		select {
		case client.send <- msg:
		default:
			return true // channel full, stop replay
		}
	}

	return true
}
