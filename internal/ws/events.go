package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Event is the structured message sent to stream subscribers.
type Event struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"lastEventId"`
}

// ResetMsg tells the client to reload the audit trail over REST.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence hands out monotonic event IDs for this process.
type EventSequence struct {
	counter atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{}
}

// Next returns the next event ID.
func (es *EventSequence) Next() uint64 {
	return es.counter.Add(1)
}
