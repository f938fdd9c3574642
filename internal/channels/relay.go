package channels

import (
	"context"
	"fmt"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message []byte) (int64, error)
	PushChannel(userID string) string
}

// RedisRelay is a Registry whose single session publishes to the user's
// Redis channel. The websocket gateways subscribed to that channel own the
// actual connections.
type RedisRelay struct {
	client publisher
}

// NewRedisRelay wraps a redis client.
func NewRedisRelay(client publisher) *RedisRelay {
	return &RedisRelay{client: client}
}

func (r *RedisRelay) SessionsFor(userID string) []Session {
	if r == nil || r.client == nil || userID == "" {
		return nil
	}
	return []Session{&relaySession{client: r.client, channel: r.client.PushChannel(userID)}}
}

type relaySession struct {
	client  publisher
	channel string
}

func (s *relaySession) Send(ctx context.Context, frame []byte) error {
	receivers, err := s.client.Publish(ctx, s.channel, frame)
	if err != nil {
		return fmt.Errorf("publish %s: %w", s.channel, err)
	}
	if receivers == 0 {
		return ErrNoSession
	}
	return nil
}
