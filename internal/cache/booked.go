// Package cache keeps short-lived copies of per-date booked times in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"barbershop/internal/booking"
	"barbershop/internal/events"
	"barbershop/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// BookedTimes serves availability listings from Redis and falls back to the
// wrapped reader on a miss. It is never consulted when booking.
type BookedTimes struct {
	next   booking.BookedTimesReader
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewBookedTimes(next booking.BookedTimesReader, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *BookedTimes {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "booked_times_cache").Logger()
	}
	return &BookedTimes{next: next, redis: client, ttl: ttl, logger: l}
}

func key(shopID, date string) string {
	return fmt.Sprintf("booked:%s:%s", shopID, date)
}

// BookedTimes implements booking.BookedTimesReader.
func (c *BookedTimes) BookedTimes(ctx context.Context, shopID, date string) ([]string, error) {
	if c.redis == nil || c.ttl <= 0 {
		return c.next.BookedTimes(ctx, shopID, date)
	}

	k := key(shopID, date)
	if val, err := c.redis.Get(ctx, k).Result(); err == nil {
		var times []string
		if err := json.Unmarshal([]byte(val), &times); err == nil {
			metrics.IncCache("hit")
			return times, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Str("key", k).Msg("cache read failed")
	}

	metrics.IncCache("miss")
	times, err := c.next.BookedTimes(ctx, shopID, date)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(times)
	if err == nil {
		if err := c.redis.Set(ctx, k, data, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", k).Msg("cache write failed")
		}
	}
	return times, nil
}

// Invalidate drops the cached entry for a date.
func (c *BookedTimes) Invalidate(ctx context.Context, shopID, date string) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, key(shopID, date)).Err()
}

// HandleEvent invalidates on slot changes.
func (c *BookedTimes) HandleEvent(e events.Event) error {
	if e.Date == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Invalidate(ctx, e.ShopID, e.Date); err != nil {
		return fmt.Errorf("invalidate %s: %w", key(e.ShopID, e.Date), err)
	}
	return nil
}

// Attach subscribes the cache to slot events on bus.
func (c *BookedTimes) Attach(bus *events.EventBus) {
	bus.Subscribe(events.TypeSlotBooked, c.HandleEvent)
	bus.Subscribe(events.TypeSlotReleased, c.HandleEvent)
	bus.Subscribe(events.TypeSlotUncertain, c.HandleEvent)
}
