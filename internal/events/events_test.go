package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishByType(t *testing.T) {
	bus := NewEventBus(nil)

	var booked, released int
	bus.Subscribe(TypeSlotBooked, func(Event) error { booked++; return nil })
	bus.Subscribe(TypeSlotReleased, func(Event) error { released++; return nil })

	bus.Publish(Event{Type: TypeSlotBooked, ShopID: "main", Date: "2030-06-03"})
	bus.Publish(Event{Type: TypeSlotBooked, ShopID: "main", Date: "2030-06-04"})

	assert.Equal(t, 2, booked)
	assert.Equal(t, 0, released)
}

func TestEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bus := NewEventBus(&logger)

	var called bool
	var stamped time.Time
	bus.Subscribe(TypeSlotReleased, func(Event) error { return errors.New("boom") })
	bus.Subscribe(TypeSlotReleased, func(e Event) error {
		called = true
		stamped = e.CreatedAt
		return nil
	})

	bus.Publish(Event{Type: TypeSlotReleased})
	assert.True(t, called)
	assert.False(t, stamped.IsZero())
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestRedisRelay_CrossInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := zerolog.New(io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()

	busA, busB := NewEventBus(&logger), NewEventBus(&logger)
	require.NoError(t, NewRedisRelay(busA, clientA, "test", &logger).Start(ctx))
	require.NoError(t, NewRedisRelay(busB, clientB, "test", &logger).Start(ctx))

	var onA, onB collector
	busA.Subscribe(TypeSlotBooked, onA.handle)
	busB.Subscribe(TypeSlotBooked, onB.handle)

	busA.Publish(Event{Type: TypeSlotBooked, ShopID: "main", Date: "2030-06-03", Time: "09:00"})

	assert.Eventually(t, func() bool { return onB.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	// The originating bus must not receive its own event back.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, onA.len())

	onB.mu.Lock()
	got := onB.events[0]
	onB.mu.Unlock()
	assert.Equal(t, "2030-06-03", got.Date)
	assert.Equal(t, "09:00", got.Time)
	assert.NotEmpty(t, got.Origin)
}
