package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/scraper-service/internal/events"
)

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, events.ChannelJobsUploaded)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := events.NewRedisPublisher(rdb)
	ev := events.JobsUploaded{Type: events.ChannelJobsUploaded, Location: "Austin, TX", Role: "data engineer", URL: "https://x", Count: 4}
	require.NoError(t, pub.Publish(ctx, events.ChannelJobsUploaded, ev))

	select {
	case msg := <-sub.Channel():
		var got events.JobsUploaded
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, ev, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, events.Discard{}.Publish(context.Background(), "x", struct{}{}))
}
