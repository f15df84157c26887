package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSessionValueLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.SessionKey("user-1", "credential")
	if err := client.Set(ctx, key, "token-value", 10*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "token-value" {
		t.Fatalf("expected stored value, got %q", value)
	}

	if err := client.Touch(ctx, key, time.Hour); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != time.Hour {
		t.Fatalf("expected one expire call with 1h, got %+v", mock.expireCalls)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !IsMiss(err) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestTouchSkipsNonPositiveTTL(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	if err := client.Touch(context.Background(), "k", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.expireCalls) != 0 {
		t.Fatalf("expire should not be called for zero ttl")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Set(context.Background(), "k", "v", 0); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without raw client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.SessionKey("user", "last_order"); got != "sf:session:user:last_order" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.SessionKey(" user ", ""); got != "sf:session:user" {
		t.Fatalf("session key should trim and skip empty parts, got %s", got)
	}
	if got := client.CurrentSessionKey(); got != "sf:session:current" {
		t.Fatalf("unexpected current key %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 4, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 4 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data        map[string]string
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
