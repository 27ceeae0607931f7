package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silentcry/silentcry/internal/testutil"
)

func TestServer_ShutdownHooksRunInReverseOrder(t *testing.T) {
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, testutil.DiscardLogger())

	var mu sync.Mutex
	var order []string
	hook := func(name string, err error) ShutdownFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return err
		}
	}
	srv.OnShutdown("redis", hook("redis", nil))
	srv.OnShutdown("hub", hook("hub", errors.New("hub stuck")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hub stuck")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	assert.Equal(t, []string{"hub", "redis"}, order)
}

func TestServer_ListenError(t *testing.T) {
	srv := New(http.NotFoundHandler(), -1, time.Second, time.Second, time.Second, testutil.DiscardLogger())

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestServer_Addr(t *testing.T) {
	srv := New(http.NotFoundHandler(), 3000, time.Second, time.Second, time.Second, testutil.DiscardLogger())
	assert.Equal(t, ":3000", srv.Addr())
}
