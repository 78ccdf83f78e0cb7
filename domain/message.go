// Package domain contains the core concepts of the load-test harness.
// This file defines the transient Message sent between two sessions.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Message is never persisted by the harness.
type Message struct {
	Content  string `json:"content"`
	Receiver string `json:"receiver"`
}

// NewMessage builds a message with random content addressed to receiverID.
func NewMessage(receiverID string) Message {
	return Message{Content: uuid.NewString(), Receiver: receiverID}
}

// DeliveryMode selects how the traffic generator hands a message to the backend.
type DeliveryMode string

const (
	// DeliveryWebsocket writes the message on the sender's duplex connection.
	DeliveryWebsocket DeliveryMode = "websocket"
	// DeliveryHTTP posts the message with the sender's bearer token.
	DeliveryHTTP DeliveryMode = "http"
)

func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch m := DeliveryMode(s); m {
	case DeliveryWebsocket, DeliveryHTTP:
		return m, nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", s)
	}
}
