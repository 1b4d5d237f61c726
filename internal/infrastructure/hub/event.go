package hub

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventKind discriminates fan-out events on the wire.
type EventKind string

const (
	EventConnected EventKind = "connected"
)

// Event is an immutable fan-out message. It carries no addressing.
type Event struct {
	ID      string
	Kind    EventKind
	Payload any
}

// NewEvent builds an event with a fresh id.
func NewEvent(kind EventKind, payload any) *Event {
	return &Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: payload,
	}
}

type eventEnvelope struct {
	Type    EventKind `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

type connectedEnvelope struct {
	Type     EventKind `json:"type"`
	ClientID string    `json:"clientId"`
}

// Encode serializes the event into the frame shared by all recipients.
func (e *Event) Encode() (*Frame, error) {
	if e.Kind == "" {
		return nil, fmt.Errorf("event kind cannot be empty")
	}
	data, err := json.Marshal(eventEnvelope{Type: e.Kind, Payload: e.Payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", e.Kind, err)
	}
	return &Frame{ID: e.ID, Event: string(e.Kind), Data: data}, nil
}

func connectedFrame(clientID string) *Frame {
	// Marshalling two strings cannot fail.
	data, _ := json.Marshal(connectedEnvelope{Type: EventConnected, ClientID: clientID})
	return &Frame{Event: string(EventConnected), Data: data}
}
