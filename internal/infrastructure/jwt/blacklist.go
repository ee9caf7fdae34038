package jwt

import (
	"context"
	"strconv"
	"time"

	"github.com/playtype/account-recovery-service/internal/domain"
	"github.com/playtype/account-recovery-service/internal/infrastructure/secretstore"
)

// Blacklist records revoked token ids until the tokens would have expired anyway
type Blacklist interface {
	Add(ctx context.Context, kind domain.TokenKind, tokenID string, ttl time.Duration) error
	Contains(ctx context.Context, kind domain.TokenKind, tokenID string) (bool, error)
}

// RedisBlacklist keeps entries as "blacklist:<kind>:<jti>" in the shared cache
type RedisBlacklist struct {
	store *secretstore.Store
}

func NewRedisBlacklist(store *secretstore.Store) *RedisBlacklist {
	return &RedisBlacklist{store: store.Namespace("blacklist")}
}

func entryKey(kind domain.TokenKind, tokenID string) string {
	return string(kind) + ":" + tokenID
}

// Add stores the entry for exactly ttl. The value is the expiry as unix seconds.
func (b *RedisBlacklist) Add(ctx context.Context, kind domain.TokenKind, tokenID string, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Unix()
	return b.store.Put(ctx, entryKey(kind, tokenID), strconv.FormatInt(expiresAt, 10), ttl)
}

func (b *RedisBlacklist) Contains(ctx context.Context, kind domain.TokenKind, tokenID string) (bool, error) {
	return b.store.Exists(ctx, entryKey(kind, tokenID))
}
