package db

import (
	"context"
	"encoding"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient is an in-memory TokenHashClient
// Only suitable for testing
// The value set for the IntCmd or similar results is always 1 regardless of how many records were affected
// Contexts are completely ignored
type MockRedisClient struct {
	lock     sync.Mutex
	store    map[string]map[string]any
	expireAt map[string]time.Time
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]map[string]any{}, expireAt: map[string]time.Time{}}
}

func NewMockRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	return NewRedisAdapter(append([]RedisAdapterOption{WithRedisClient(NewMockRedisClient())}, options...)...)
}

func convertValuesToMap(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return map[string]any{}, fmt.Errorf("number of provided values must be even")
	}
	output := map[string]any{}
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return map[string]any{}, fmt.Errorf("hash field names must be strings, got %T", values[i])
		}
		output[key] = values[i+1]
	}
	return output, nil
}

// expire drops the key if its expiration is in the past, must be called with the lock held
func (m *MockRedisClient) expire(key string) {
	exp, found := m.expireAt[key]
	if found && time.Now().After(exp) {
		delete(m.store, key)
		delete(m.expireAt, key)
	}
}

func (m *MockRedisClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	val, err := convertValuesToMap(values...)
	if err != nil {
		res.SetErr(err)
		return &res
	}
	m.expire(key)
	existing, found := m.store[key]
	if !found {
		existing = map[string]any{}
		m.store[key] = existing
	}
	for k, v := range val {
		existing[k] = v
	}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.store, k)
		delete(m.expireAt, k)
	}
	res := redis.IntCmd{}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) ExpireAt(_ context.Context, key string, tm time.Time) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	m.expire(key)
	if _, found := m.store[key]; !found {
		res.SetVal(false)
		return &res
	}
	m.expireAt[key] = tm
	res.SetVal(true)
	return &res
}

func (m *MockRedisClient) Persist(_ context.Context, key string) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	m.expire(key)
	_, found := m.expireAt[key]
	delete(m.expireAt, key)
	res.SetVal(found)
	return &res
}

func (m *MockRedisClient) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.expire(key)
	val, found := m.store[key]
	res := redis.MapStringStringCmd{}
	res.SetVal(map[string]string{})
	if !found {
		return &res
	}
	output := map[string]string{}
	for k, v := range val {
		switch typed := v.(type) {
		case string:
			output[k] = typed
		case encoding.TextMarshaler:
			raw, err := typed.MarshalText()
			if err != nil {
				res.SetErr(err)
				return &res
			}
			output[k] = string(raw)
		default:
			output[k] = fmt.Sprint(typed)
		}
	}
	res.SetVal(output)
	return &res
}
