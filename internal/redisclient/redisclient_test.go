package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/silentcry/silentcry/internal/testutil"
)

func TestConnect_InvalidURL(t *testing.T) {
	if _, err := Connect(context.Background(), "not-a-redis-url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Connect(ctx, "redis://127.0.0.1:1/0"); err == nil {
		t.Fatal("expected error for unreachable Redis")
	}
}

func TestConnect_Ping(t *testing.T) {
	url := testutil.RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	c, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if c.Redis() == nil {
		t.Fatal("expected underlying client")
	}
}
