package services

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"chat-stress/errors"
	"context"
	"fmt"
)

// WebsocketDelivery writes the message on the sender's own connection.
type WebsocketDelivery struct{}

func (WebsocketDelivery) Deliver(_ context.Context, from *domain.Session, message domain.Message) error {
	if err := from.Send(message); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrDeliveryFailed, err)
	}
	return nil
}

// HTTPDelivery posts the message out-of-band with the sender's bearer token.
type HTTPDelivery struct {
	backend contract.IBackend
}

func (d HTTPDelivery) Deliver(ctx context.Context, from *domain.Session, message domain.Message) error {
	return d.backend.Send(ctx, from.Token, message)
}

// NewDelivery picks one mode for the whole run. Both paths are never used
// for the same logical send.
func NewDelivery(mode domain.DeliveryMode, backend contract.IBackend) (contract.IDelivery, error) {
	switch mode {
	case domain.DeliveryWebsocket:
		return WebsocketDelivery{}, nil
	case domain.DeliveryHTTP:
		return HTTPDelivery{backend: backend}, nil
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", mode)
	}
}
