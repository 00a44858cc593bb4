package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedPrefix = "auth:revoked:"

var (
	revocationMu sync.RWMutex
	revocations  *redis.Client
)

// UseRevocationStore enables server-side logout: revoked token ids are kept
// in Redis until the token would have expired anyway. Pass nil to disable.
func UseRevocationStore(client *redis.Client) {
	revocationMu.Lock()
	defer revocationMu.Unlock()
	revocations = client
}

func revocationStore() *redis.Client {
	revocationMu.RLock()
	defer revocationMu.RUnlock()
	return revocations
}

// Revoke marks the token as logged out. It is a no-op without a store.
func Revoke(ctx context.Context, claims *Claims) error {
	client := revocationStore()
	if client == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, revokedPrefix+claims.ID, 1, ttl).Err()
}

// IsRevoked reports whether the token was logged out
func IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	client := revocationStore()
	if client == nil || claims.ID == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, revokedPrefix+claims.ID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
