package server

import (
	"fmt"
	"time"

	"github.com/san-kum/choreo/internal/broadcast"
	"github.com/san-kum/choreo/internal/host"
)

const (
	TypePulse = "pulse"
	TypeState = "state"
)

// Message is one inbound websocket frame. Only the fields relevant to Type
// are read.
type Message struct {
	Type string  `json:"type"`
	T    float64 `json:"t,omitempty"` // host timestamp, ms

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	Offset float64 `json:"offset,omitempty"`
	Max    float64 `json:"max,omitempty"`

	ID    string  `json:"id,omitempty"`
	Ratio float64 `json:"ratio,omitempty"`
	On    bool    `json:"on,omitempty"`

	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`

	Intensity float64 `json:"intensity,omitempty"`
}

// Event converts m into a document event. ok is false for pulses, which
// bypass the document.
func (m Message) Event() (ev host.Event, ok bool, err error) {
	if m.Type == TypePulse {
		return host.Event{}, false, nil
	}
	kind, known := host.ParseKind(m.Type)
	if !known {
		return host.Event{}, false, fmt.Errorf("unknown message type %q", m.Type)
	}
	return host.Event{
		Kind:    kind,
		At:      time.Duration(m.T * float64(time.Millisecond)),
		X:       m.X,
		Y:       m.Y,
		Offset:  m.Offset,
		Max:     m.Max,
		Target:  m.ID,
		Ratio:   m.Ratio,
		On:      m.On,
		Added:   m.Added,
		Removed: m.Removed,
	}, true, nil
}

// Outbound is one server to client frame.
type Outbound struct {
	Type    string            `json:"type"`
	Payload broadcast.Payload `json:"payload"`
}
