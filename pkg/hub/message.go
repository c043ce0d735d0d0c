// Package hub fans committed crowd analyses out to websocket clients
// using a channel-based broadcast loop.
package hub

import (
	"encoding/json"
	"time"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., PNG overlays)
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Update is the JSON payload pushed for every committed analysis.
type Update struct {
	Type     string          `json:"type"`
	Time     time.Time       `json:"time"`
	Analysis *crowd.Analysis `json:"analysis"`
	Status   crowd.Status    `json:"status"`
	Advice   string          `json:"advice"`
}

// NewUpdate builds the payload for a.
func NewUpdate(a *crowd.Analysis, now time.Time) Update {
	st := a.Status()
	return Update{
		Type:     "analysis",
		Time:     now.UTC(),
		Analysis: a,
		Status:   st.Label,
		Advice:   st.Advice,
	}
}

func encodeUpdate(a *crowd.Analysis, now time.Time) (Message, error) {
	data, err := json.Marshal(NewUpdate(a, now))
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
