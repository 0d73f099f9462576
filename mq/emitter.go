// Package mq publishes order lifecycle events.
package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event names
const (
	OrderCreated = "order.created"
	OrderShipped = "order.shipped"
)

type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	Status     string    `json:"status,omitempty"`
	Total      int       `json:"total,omitempty"`
	Carrier    string    `json:"carrier,omitempty"`
	Tracking   string    `json:"trackingNumber,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Emitter publishes events. Publishing is best effort: failures are logged
// and never reach the caller.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// RedisEmitter publishes events as JSON on a Redis channel.
type RedisEmitter struct {
	conn    *redis.Client
	channel string
}

func NewRedisEmitter(conn *redis.Client, channel string) *RedisEmitter {
	return &RedisEmitter{conn: conn, channel: channel}
}

func (e *RedisEmitter) Emit(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event %s: %v", ev.Type, err)
		return
	}

	// detached so a finished request does not cancel the publish
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := e.conn.Publish(ctx, e.channel, data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish %s for %s: %v", ev.Type, ev.OrderID, err)
		return
	}
	log.Printf("[Emit] %s %s published to '%s'", ev.Type, ev.OrderID, e.channel)
}

// Listen subscribes to channel and hands every decoded event to handle
// until ctx is done.
func Listen(ctx context.Context, conn *redis.Client, channel string, handle func(Event)) {
	sub := conn.Subscribe(ctx, channel)
	defer sub.Close()
	ch := sub.Channel()

	log.Printf("[EventListener] Listening on '%s'", channel)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[EventListener] Failed to parse event: %v", err)
				continue
			}
			handle(ev)
		}
	}
}
