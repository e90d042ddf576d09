package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"ecoquest-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ChangesChannel carries quiz collection snapshots between instances.
const ChangesChannel = "ecoquest:quizzes:updated"

type changeMessage struct {
	Origin string                `json:"origin"`
	Update domain.QuizzesUpdated `json:"update"`
}

// ChangeFeed relays store change events over Redis pub/sub so that every instance
// can push them to its own websocket clients.
type ChangeFeed struct {
	client *redis.Client
	origin string
	log    *slog.Logger
}

// NewChangeFeed creates a feed; origin identifies this instance so it can skip its
// own messages.
func NewChangeFeed(client *redis.Client, origin string, logger *slog.Logger) *ChangeFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeFeed{client: client, origin: origin, log: logger}
}

// Publish sends a single snapshot.
func (f *ChangeFeed) Publish(ctx context.Context, evt domain.QuizzesUpdated) error {
	payload, err := json.Marshal(changeMessage{Origin: f.origin, Update: evt})
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, ChangesChannel, payload).Err()
}

// Forward publishes every local event from updates until the channel closes or ctx
// ends. Remote events are skipped so snapshots do not bounce between instances.
func (f *ChangeFeed) Forward(ctx context.Context, updates <-chan domain.QuizzesUpdated) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-updates:
			if !ok {
				return
			}
			if evt.Remote {
				continue
			}
			if err := f.Publish(ctx, evt); err != nil {
				f.log.Warn("publishing quiz update failed", "error", err)
			}
		}
	}
}

// Listen calls fn for each snapshot published by other instances until ctx ends.
func (f *ChangeFeed) Listen(ctx context.Context, fn func(domain.QuizzesUpdated)) error {
	sub := f.client.Subscribe(ctx, ChangesChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var cm changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
				f.log.Warn("dropping malformed quiz update", "error", err)
				continue
			}
			if cm.Origin == f.origin {
				continue
			}
			cm.Update.Remote = true
			fn(cm.Update)
		}
	}
}
