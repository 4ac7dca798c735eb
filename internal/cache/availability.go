// Package cache provides a short-lived Redis cache for the free-slot
// calendar. The calendar is the hottest read path of the public listing
// page; a small TTL keeps the data fresh enough while shedding most of the
// query load. A nil client disables caching and every call degrades to a
// miss.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gmc453/workshop-booker/internal/model"
	"github.com/redis/go-redis/v9"
)

const availabilityTTL = 30 * time.Second

type AvailabilityCache struct {
	client *redis.Client
}

func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// Get returns the cached calendar and whether the lookup hit.
func (c *AvailabilityCache) Get(ctx context.Context, workshopID int64, from, to time.Time) ([]model.AvailableSlotDTO, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key(workshopID, from, to)).Bytes()
	if err != nil {
		return nil, false
	}

	var slots []model.AvailableSlotDTO
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false
	}

	return slots, true
}

// Set stores the calendar under a short TTL. Failures are swallowed: the
// cache is an optimization, never a source of truth.
func (c *AvailabilityCache) Set(ctx context.Context, workshopID int64, from, to time.Time, slots []model.AvailableSlotDTO) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}

	_ = c.client.Set(ctx, key(workshopID, from, to), raw, availabilityTTL).Err()
}

func key(workshopID int64, from, to time.Time) string {
	return fmt.Sprintf("availability:%d:%d:%d", workshopID, from.UTC().Unix(), to.UTC().Unix())
}
