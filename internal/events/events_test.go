package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/saga-engine/pkg/turn"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupBroadcaster(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroadcaster(client, testLogger()), client
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "game-events:w-1", Channel("w-1"))
}

func TestBroadcaster_NotifyPublishesToWorldChannel(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()

	sub := b.Subscribe(ctx, "w-1")
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	b.Notify(ctx, turn.Notification{
		Kind:        turn.KindQuestNew,
		WorldID:     "w-1",
		CharacterID: "c-1",
		Message:     "New quest: Find the map",
		Data:        map[string]any{"quest_id": "q-1"},
	})

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "game-events:w-1", msg.Channel)
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, turn.KindQuestNew, event.Type)
		assert.Equal(t, "c-1", event.CharacterID)
		assert.Equal(t, "q-1", event.Data["quest_id"])
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcaster_PublishFailure(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	mr.Close()

	b := NewBroadcaster(client, testLogger())
	err := b.Publish(context.Background(), Event{Type: turn.KindError, WorldID: "w-1"})
	assert.Error(t, err)

	// Notify swallows the failure
	b.Notify(context.Background(), turn.Notification{Kind: turn.KindError, WorldID: "w-1"})
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	n.Notify(context.Background(), turn.Notification{Kind: turn.KindPersistenceWarning, WorldID: "w-1", Message: "disk full"})

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "kind=persistence_warning")
	assert.Contains(t, out, "world_id=w-1")
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b}

	m.Notify(context.Background(), turn.Notification{Kind: turn.KindBuy})
	m.Notify(context.Background(), turn.Notification{Kind: turn.KindSell})

	assert.Equal(t, []string{turn.KindBuy, turn.KindSell}, a.Kinds())
	assert.Equal(t, a.Notifications(), b.Notifications())
}
