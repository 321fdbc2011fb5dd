package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casedesk/internal/core/domain"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

// envelope tags relayed events with the instance that published them
type envelope struct {
	Origin string           `json:"origin"`
	Event  domain.CaseEvent `json:"event"`
}

// RedisRelay fans case events out to every API instance through a redis
// channel. Each instance delivers to its own local subscribers. When redis is
// unreachable the event still reaches local subscribers.
type RedisRelay struct {
	rdb     goredis.UniversalClient
	channel string
	origin  string
	local   services.EventBroadcaster
	timeout time.Duration
	log     *logger.Logger
}

// NewRedisRelay connects to addr and verifies the connection
func NewRedisRelay(addr, channel, origin string, local services.EventBroadcaster, log *logger.Logger) (*RedisRelay, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisRelayWithClient(rdb, channel, origin, local, log), nil
}

// NewRedisRelayWithClient wraps an existing client
func NewRedisRelayWithClient(rdb goredis.UniversalClient, channel, origin string, local services.EventBroadcaster, log *logger.Logger) *RedisRelay {
	if channel == "" {
		channel = "case-events"
	}
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		origin:  origin,
		local:   local,
		timeout: 2 * time.Second,
		log:     log.With("component", "RedisRelay"),
	}
}

// Publish delivers locally right away and relays to the other instances
func (r *RedisRelay) Publish(event domain.CaseEvent) {
	r.local.Publish(event)

	raw, err := json.Marshal(envelope{Origin: r.origin, Event: event})
	if err != nil {
		r.log.Error("failed to encode event", "type", event.Type, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		r.log.Warn("redis publish failed, event delivered locally only", "type", event.Type, "case_id", event.CaseID, "error", err)
	}
}

// StartForwarder subscribes to the channel and hands events from other
// instances to the local broadcaster until ctx is done
func (r *RedisRelay) StartForwarder(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				r.forward([]byte(m.Payload))
			}
		}
	}()
	return nil
}

func (r *RedisRelay) forward(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warn("bad relayed event payload", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.local.Publish(env.Event)
}

// Close releases the redis client
func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}

var _ services.EventBroadcaster = (*RedisRelay)(nil)
