package channels

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	receivers int64
	err       error
	channels  []string
	frames    [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message []byte) (int64, error) {
	f.channels = append(f.channels, channel)
	f.frames = append(f.frames, message)
	return f.receivers, f.err
}

func (f *fakePublisher) PushChannel(userID string) string {
	return "tw:push:" + userID
}

func TestRedisRelayCountsReceivers(t *testing.T) {
	pub := &fakePublisher{receivers: 1}
	d := newTestDispatcher(t, NewRedisRelay(pub), &fakeGateway{}, 0)
	userID := uuid.New()

	delivered := d.DeliverPush(context.Background(), userID, PushPayload{ID: "n1", Type: "balance"})
	assert.Equal(t, 1, delivered)
	require.Len(t, pub.channels, 1)
	assert.Equal(t, "tw:push:"+userID.String(), pub.channels[0])
	assert.Contains(t, string(pub.frames[0]), `"type":"notification"`)
}

func TestRedisRelayWithoutSubscribers(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(t, NewRedisRelay(pub), &fakeGateway{}, 0)
	assert.Equal(t, 0, d.DeliverPush(context.Background(), uuid.New(), PushPayload{ID: "n1"}))
}

func TestRedisRelayPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	relay := NewRedisRelay(pub)
	sessions := relay.SessionsFor("user-1")
	require.Len(t, sessions, 1)
	err := sessions[0].Send(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
	assert.Nil(t, relay.SessionsFor(""))
}
