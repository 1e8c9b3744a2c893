package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newGuard(t *testing.T, ttl time.Duration) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewGuard(client, "vapi", ttl), mr
}

func TestFirstSeenOnce(t *testing.T) {
	g, _ := newGuard(t, time.Hour)
	ctx := context.Background()

	first, err := g.FirstSeen(ctx, "call-123")
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Fatal("first delivery must be new")
	}

	second, err := g.FirstSeen(ctx, "call-123")
	if err != nil {
		t.Fatal(err)
	}
	if second {
		t.Fatal("replayed delivery must be flagged")
	}
}

func TestKeysAreNamespaced(t *testing.T) {
	g, mr := newGuard(t, time.Hour)
	ctx := context.Background()

	if _, err := g.FirstSeen(ctx, "call-123"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("vapi:call-123") {
		t.Error("expected key vapi:call-123")
	}
}

func TestExpiredKeyIsNewAgain(t *testing.T) {
	g, mr := newGuard(t, time.Minute)
	ctx := context.Background()

	if _, err := g.FirstSeen(ctx, "call-123"); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	again, err := g.FirstSeen(ctx, "call-123")
	if err != nil {
		t.Fatal(err)
	}
	if !again {
		t.Error("expired key should be treated as new")
	}
}

func TestNilGuardAlwaysFirst(t *testing.T) {
	var g *Guard
	first, err := g.FirstSeen(context.Background(), "anything")
	if err != nil || !first {
		t.Errorf("got (%v, %v), want (true, nil)", first, err)
	}
}

func TestEmptyKeySkipsCheck(t *testing.T) {
	g, _ := newGuard(t, time.Hour)
	first, err := g.FirstSeen(context.Background(), "")
	if err != nil || !first {
		t.Errorf("got (%v, %v), want (true, nil)", first, err)
	}
}
