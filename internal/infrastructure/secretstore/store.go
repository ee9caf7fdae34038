// Package secretstore keeps short-lived secrets (codes, flags, one-time tokens,
// counters) in the shared cache under a namespace.
//
// Every operation maps to a single atomic Redis command or script so that concurrent
// handlers, in any number of processes, agree on who consumed what. Nothing in
// this package holds process-local state.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store is a namespaced view over the shared cache
type Store struct {
	client    redis.UniversalClient
	namespace string
}

// New creates a store rooted at namespace
func New(client redis.UniversalClient, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

// Namespace derives a child store whose keys live under "<namespace>:<sub>"
func (s *Store) Namespace(sub string) *Store {
	return &Store{client: s.client, namespace: s.key(sub)}
}

// Key returns the fully qualified cache key for k
func (s *Store) Key(k string) string {
	return s.key(k)
}

func (s *Store) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

// Put stores value under key, replacing whatever was there
func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return domain.ErrInvalidTTL
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// PutIfAbsent stores value only when key does not exist yet
func (s *Store) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, domain.ErrInvalidTTL
	}
	ok, err := s.client.SetNX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// Get returns the value under key. Expired and missing keys both report false.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return value, true, nil
}

// Consume atomically reads and deletes key. Of several concurrent callers
// exactly one observes the value.
func (s *Store) Consume(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return value, true, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Exists reports whether key is live
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of key, or zero when it is missing or has no expiry
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// incrScript increments KEYS[1] and sets its expiry when the key is created
// or has lost it. Running server side keeps INCR and PEXPIRE in one step.
var incrScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) == -1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// consumeIfScript deletes KEYS[1] only while it still holds ARGV[1]
var consumeIfScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Incr increments the counter under key. The expiry is only set by the
// increment that creates the key, so the window never slides.
func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, domain.ErrInvalidTTL
	}
	ms := max(ttl.Milliseconds(), 1)
	count, err := incrScript.Run(ctx, s.client, []string{s.key(key)}, ms).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

// ConsumeIf deletes key only when it still holds value and reports whether
// it did. A value replaced in the meantime is left alone.
func (s *Store) ConsumeIf(ctx context.Context, key, value string) (bool, error) {
	n, err := consumeIfScript.Run(ctx, s.client, []string{s.key(key)}, value).Int64()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

// Count returns the current value of a counter, zero when absent
func (s *Store) Count(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, s.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInfrastructureUnavailable, err)
}
