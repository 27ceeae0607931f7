package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silentcry/silentcry/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	a := New(Scores{Audio: 0.75, Video: 0.2}, now)

	id, err := ulid.Parse(a.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), id.Time())
	assert.Equal(t, TypeDistress, a.Type)
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.Equal(t, 0.75, a.Scores.Audio)
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	a := New(Scores{Audio: 0.75}, time.Now())
	require.NoError(t, bus.Publish(ctx, a))

	select {
	case got := <-ch:
		assert.Equal(t, a.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("alert not delivered")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close when the subscriber context ends")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus()
	ch, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok, "subscriber channel should be closed")

	assert.True(t, errors.Is(bus.Publish(context.Background(), Alert{}), ErrBusClosed))
	_, err = bus.Subscribe(context.Background())
	assert.True(t, errors.Is(err, ErrBusClosed))
}

func TestMemoryBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewMemoryBus()
	_, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = bus.Publish(context.Background(), Alert{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHub_DeliversToWebsocketClients(t *testing.T) {
	rec := metrics.NewInMemory()
	hub := NewHub(discardLogger(), rec)
	bus := NewMemoryBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	go func() { _ = hub.Pump(ctx, bus) }()
	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return len(bus.subs) == 1
	}, time.Second, 10*time.Millisecond)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn)
		if !hub.Register(r.Context(), c) {
			conn.Close()
			return
		}
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.TotalClients() == 1 }, time.Second, 10*time.Millisecond)

	a := New(Scores{Audio: 0.75, Video: 0.6}, time.Now())
	require.NoError(t, bus.Publish(ctx, a))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Alert
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, 0.6, got.Scores.Video)

	require.Eventually(t, func() bool { return rec.Snapshot().AlertsDelivered == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.TotalClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(discardLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := &Client{hub: hub, send: make(chan []byte, 1)}
	require.True(t, hub.Register(context.Background(), c))
	require.Eventually(t, func() bool { return hub.TotalClients() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client send channel not closed on shutdown")
	}

	assert.False(t, hub.Register(context.Background(), &Client{hub: hub, send: make(chan []byte)}))
}
