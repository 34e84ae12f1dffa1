package sink

import (
	"context"
	"net/http"
	"testing"

	"bqrelay/relay/config"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisInsertAppendsToStream(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()

	s := newRedisSink(client, "events")
	defer s.Close()

	ctx := context.Background()
	if err := s.Insert(ctx, []any{map[string]any{"a": 1.0}, map[string]any{"b": "x"}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	msgs, err := client.XRange(ctx, "events", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 stream entries, got %d", len(msgs))
	}
	if msgs[0].Values["payload"] != `{"a":1}` {
		t.Errorf("unexpected payload %v", msgs[0].Values["payload"])
	}
	if msgs[1].Values["insert_id"] == "" {
		t.Errorf("insert_id missing")
	}
}

func TestRedisInsertFailsWhenServerIsDown(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	s := newRedisSink(client, "events")
	defer s.Close()
	mr.Close()

	err := s.Insert(context.Background(), map[string]any{"a": 1.0})
	if err == nil {
		t.Fatal("expected error with redis down")
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", StatusCode(err))
	}
}

func TestNewRedisSinkPing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedisSink(context.Background(), config.RedisConfig{Addr: mr.Addr(), Stream: "events"})
	if err != nil {
		t.Fatalf("NewRedisSink: %v", err)
	}
	_ = s.Close()

	mr.Close()
	if _, err := NewRedisSink(context.Background(), config.RedisConfig{Addr: mr.Addr(), Stream: "events"}); err == nil {
		t.Fatal("expected ping failure")
	}
}
