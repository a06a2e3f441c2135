package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
)

func TestPublishLogout(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, LogoutTopic)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishLogout(ctx, 3, "admin", true))

	select {
	case msg := <-messages:
		var got LogoutEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		require.Equal(t, LogoutEvent{UserID: 3, UserName: "admin", Revoked: true}, got)
		require.NotEmpty(t, msg.UUID)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("logout event was not delivered")
	}
}

func TestPublishLogout_Closed(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	require.NoError(t, pubSub.Close())

	err := NewWatermillPublisher(pubSub).PublishLogout(context.Background(), 1, "admin", false)
	require.Error(t, err)
}
