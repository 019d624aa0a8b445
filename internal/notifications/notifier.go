// Package notifications publishes request events into Redis channels for
// downstream consumers. Delivery to end users happens elsewhere.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"approvals/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event names published by the API.
const (
	EventRequestCreated      = "request_created"
	EventRequestUpdated      = "request_updated"
	EventRequestDeleted      = "request_deleted"
	EventRequestTransitioned = "request_transitioned"
)

const broadcastChannel = "approvals:broadcast"

// Event is the envelope of every published message.
type Event struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, ev Event) error {
	return n.publish(ctx, UserChannel(userID), ev)
}

// PublishRole sends an event to everyone holding role.
func (n *Notifier) PublishRole(ctx context.Context, role string, ev Event) error {
	return n.publish(ctx, RoleChannel(role), ev)
}

// PublishBroadcast sends an event to every subscriber.
func (n *Notifier) PublishBroadcast(ctx context.Context, ev Event) error {
	return n.publish(ctx, broadcastChannel, ev)
}

func (n *Notifier) publish(ctx context.Context, channel string, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe listens on the user, role and broadcast channels and calls
// onEvent for each decoded message until ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(channel string, ev Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "approvals:user:*", "approvals:role:*", broadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
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
					middleware.Logger.Warn("dropping malformed event",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onEvent(msg.Channel, ev)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "approvals:user:" + strconv.FormatUint(uint64(userID), 10)
}

// RoleChannel derives the Redis channel name for a role.
func RoleChannel(role string) string {
	return "approvals:role:" + role
}
