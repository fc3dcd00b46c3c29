package messaging

import (
	"context"

	"github.com/feral-file/ff-distributor/internal/domain"
)

// Publisher defines the interface for publishing ledger events to a message broker
type Publisher interface {
	// PublishEvent publishes a ledger event to the message broker
	PublishEvent(ctx context.Context, event *domain.LedgerEvent) error
	// Close closes the connection
	Close()
}
