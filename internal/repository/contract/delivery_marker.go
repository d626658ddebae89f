package contract

import "context"

// DeliveryMarker remembers webhook event ids that were fully processed so a
// redelivery can be acknowledged without re-running handlers. It is an
// optimization only; handlers stay idempotent without it.
type DeliveryMarker interface {
	IsProcessed(ctx context.Context, eventId string) (bool, error)
	MarkProcessed(ctx context.Context, eventId string) error
}
