package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-client/internal/api"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/redis"
)

// Session store fields.
const (
	FieldCredential    = "credential"
	FieldLastOrder     = "last_order"
	FieldCheckoutPrefs = "checkout_prefs"
)

// Record is the persisted sign-in.
type Record struct {
	Credential api.Credential `json:"credential"`
	ExpiresAt  time.Time      `json:"expiresAt,omitempty"`
}

// Expired reports whether the token is known to have expired at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Store keeps the current sign-in and per-user session fields.
type Store interface {
	SaveCurrent(ctx context.Context, record Record) error
	Current(ctx context.Context) (Record, bool, error)
	ClearCurrent(ctx context.Context) error
	Put(ctx context.Context, userID, field string, value []byte) error
	Fetch(ctx context.Context, userID, field string) ([]byte, bool, error)
}

// MemoryStore keeps everything in process. It is the default for one-shot
// CLI use and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Record
	fields  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fields: map[string][]byte{}}
}

func (m *MemoryStore) SaveCurrent(ctx context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &record
	return nil
}

func (m *MemoryStore) Current(ctx context.Context) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Record{}, false, nil
	}
	return *m.current, true, nil
}

func (m *MemoryStore) ClearCurrent(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, userID, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[userID+"/"+field] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Fetch(ctx context.Context, userID, field string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.fields[userID+"/"+field]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

type redisBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Touch(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(userID, field string) string
	CurrentSessionKey() string
}

// RedisStore persists sessions across CLI invocations. Every key shares the
// configured TTL, which is refreshed when the current session is read.
type RedisStore struct {
	client redisBackend
	ttl    time.Duration
}

var _ redisBackend = (*redis.Client)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redis client is required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) SaveCurrent(ctx context.Context, record Record) error {
	userID := strings.TrimSpace(record.Credential.UserID)
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session user id is required")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session")
	}
	if err := r.client.Set(ctx, r.client.SessionKey(userID, FieldCredential), raw, r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	if err := r.client.Set(ctx, r.client.CurrentSessionKey(), userID, r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return nil
}

func (r *RedisStore) Current(ctx context.Context) (Record, bool, error) {
	userID, err := r.client.Get(ctx, r.client.CurrentSessionKey())
	if redis.IsMiss(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	raw, ok, err := r.Fetch(ctx, userID, FieldCredential)
	if err != nil || !ok {
		return Record{}, false, err
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode session")
	}
	_ = r.client.Touch(ctx, r.client.CurrentSessionKey(), r.ttl)
	_ = r.client.Touch(ctx, r.client.SessionKey(userID, FieldCredential), r.ttl)
	return record, true, nil
}

func (r *RedisStore) ClearCurrent(ctx context.Context) error {
	userID, err := r.client.Get(ctx, r.client.CurrentSessionKey())
	if redis.IsMiss(err) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session")
	}
	if err := r.client.Del(ctx, r.client.CurrentSessionKey(), r.client.SessionKey(userID, FieldCredential)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session")
	}
	return nil
}

func (r *RedisStore) Put(ctx context.Context, userID, field string, value []byte) error {
	if err := r.client.Set(ctx, r.client.SessionKey(userID, field), value, r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session "+field)
	}
	return nil
}

func (r *RedisStore) Fetch(ctx context.Context, userID, field string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.client.SessionKey(userID, field))
	if redis.IsMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session "+field)
	}
	return []byte(value), true, nil
}
