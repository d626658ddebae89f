package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

type DeliveryMarker struct {
	cache *cache.Cache
}

func NewDeliveryMarker(ttl time.Duration) *DeliveryMarker {
	// purge expired ids every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &DeliveryMarker{
		cache: c,
	}
}

func (m *DeliveryMarker) IsProcessed(ctx context.Context, eventId string) (bool, error) {
	_, found := m.cache.Get(eventId)
	return found, nil
}

func (m *DeliveryMarker) MarkProcessed(ctx context.Context, eventId string) error {
	m.cache.Set(eventId, struct{}{}, cache.DefaultExpiration)
	return nil
}
