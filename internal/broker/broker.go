// Package broker fans chat messages out to live subscribers of a room.
package broker

import (
	"context"

	"github.com/harentsoaR/counsel-api/internal/models"
)

// Broker delivers each published message, in publish order, to every
// subscription open on the room at the time. Cancelling a subscription
// closes its channel.
type Broker interface {
	Publish(ctx context.Context, roomID string, msg models.Message) error
	Subscribe(ctx context.Context, roomID string) (<-chan models.Message, func(), error)
}

const subscriberBuffer = 64
