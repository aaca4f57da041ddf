package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/trashforcoin/internal/config"
)

const (
	keyCheckoutLock        = "cart:checkout:lock:%d:%s"
	defaultCheckoutLockTTL = 15 * time.Second
)

// Deletes the lock only while it still carries the holder token.
const checkoutReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrCheckoutInProgress = errors.New("checkout_in_progress")
	ErrCheckoutOrderEmpty = errors.New("checkout order id is empty")
)

// CheckoutGuard stops two checkouts of one cart order from running at once, such
// as a double-clicked submit across two cashier tabs.
type CheckoutGuard struct {
	client  *redis.Client
	release *redis.Script
	ttl     time.Duration
}

func NewCheckoutGuard(cfg config.Config, client *redis.Client) *CheckoutGuard {
	if !cfg.RateLimit.Enabled || client == nil {
		return nil
	}
	ttl := cfg.RateLimit.CheckoutLockTTL
	if ttl <= 0 {
		ttl = defaultCheckoutLockTTL
	}
	return &CheckoutGuard{
		client:  client,
		release: redis.NewScript(checkoutReleaseScript),
		ttl:     ttl,
	}
}

func (g *CheckoutGuard) Enabled() bool {
	return g != nil && g.client != nil
}

// Acquire locks the order and returns a release func. Without Redis it is a no-op;
// the database transaction still serializes the writes.
func (g *CheckoutGuard) Acquire(ctx context.Context, storeID int64, orderID string) (func(), error) {
	if !g.Enabled() {
		return func() {}, nil
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, ErrCheckoutOrderEmpty
	}

	key := checkoutKey(storeID, orderID)
	holder := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, holder, g.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}
	return func() {
		_ = g.release.Run(context.WithoutCancel(ctx), g.client, []string{key}, holder).Err()
	}, nil
}

func checkoutKey(storeID int64, orderID string) string {
	return fmt.Sprintf(keyCheckoutLock, storeID, strings.TrimSpace(orderID))
}
