package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// permissionCacheTTL is a backstop only; every role-membership write
// invalidates the affected account eagerly.
const permissionCacheTTL = 5 * time.Minute

// Cache keeps resolved permission sets in Redis so permission checks do
// not hit PostgreSQL on every request.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a Cache. A nil client disables caching.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns the cached permission set, or ok=false on miss.
func (c *Cache) Get(ctx context.Context, accountID uuid.UUID) ([]string, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, c.key(accountID)).Bytes()
	if err != nil {
		return nil, false
	}
	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, false
	}
	return names, true
}

// Set stores the permission set for the account.
func (c *Cache) Set(ctx context.Context, accountID uuid.UUID, names []string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if names == nil {
		names = []string{}
	}
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(accountID), payload, permissionCacheTTL).Err()
}

// Invalidate drops the cached permission set for the account. Called after
// every role-membership write so reads within the same request observe the
// new role set.
func (c *Cache) Invalidate(ctx context.Context, accountID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.key(accountID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *Cache) key(accountID uuid.UUID) string {
	return "perm:" + accountID.String()
}
