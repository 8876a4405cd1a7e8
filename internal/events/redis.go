package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the redis channel shared by all instances of one shop.
const DefaultChannel = "barbershop:events"

// RedisRelay mirrors local events to a redis channel and replays events
// from other instances onto the local bus.
type RedisRelay struct {
	bus     *EventBus
	client  *redis.Client
	channel string
	origin  string
	logger  zerolog.Logger
}

// NewRedisRelay creates a relay with a random instance origin.
func NewRedisRelay(bus *EventBus, client *redis.Client, channel string, logger *zerolog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		bus:     bus,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.With().Str("component", "event_relay").Logger(),
	}
}

// Start subscribes to the channel and hooks the relay into the bus.
// It returns once the redis subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	for _, t := range Types {
		r.bus.Subscribe(t, r.forward)
	}

	go r.listen(ctx, sub)
	r.logger.Info().Str("channel", r.channel).Msg("event relay started")
	return nil
}

func (r *RedisRelay) forward(event Event) error {
	if event.Origin != "" {
		return nil // already relayed from another instance
	}
	event.Origin = r.origin

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *RedisRelay) listen(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn().Err(err).Msg("drop malformed event")
				continue
			}
			if event.Origin == r.origin {
				continue
			}
			r.bus.Publish(event)
		}
	}
}
