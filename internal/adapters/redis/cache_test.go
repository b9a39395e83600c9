package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "review_store/internal/adapters/redis"
)

type page struct {
	Items []string `json:"items"`
	Total int64    `json:"total"`
}

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetDel(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var out page
	ok, err := c.Get(ctx, "k", &out)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "k", page{Items: []string{"a", "b"}, Total: 2}, 30); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, err = c.Get(ctx, "k", &out)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if out.Total != 2 || len(out.Items) != 2 || out.Items[1] != "b" {
		t.Fatalf("unexpected value: %+v", out)
	}

	mr.FastForward(31 * time.Second)
	if ok, _ := c.Get(ctx, "k", &out); ok {
		t.Fatalf("expected entry to expire after its TTL")
	}

	_ = c.Set(ctx, "k", page{Total: 1}, 30)
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if ok, _ := c.Get(ctx, "k", &out); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestCache_Counter(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	n, err := c.Counter(ctx, "gen")
	if err != nil || n != 0 {
		t.Fatalf("unset counter: want 0, got %d (%v)", n, err)
	}
	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "gen")
		if err != nil || got != want {
			t.Fatalf("Incr: want %d, got %d (%v)", want, got, err)
		}
	}
	n, err = c.Counter(ctx, "gen")
	if err != nil || n != 3 {
		t.Fatalf("Counter: want 3, got %d (%v)", n, err)
	}
}

func TestCache_PingFailsWhenServerDown(t *testing.T) {
	c, mr := newCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	mr.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected Ping to fail once the server is gone")
	}
}
