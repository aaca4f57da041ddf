package cartsession

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cart.session",
	fx.Provide(NewStore),
)

type Params struct {
	fx.In

	Config config.Config
	Clock  clock.Clock
	Log    *zap.Logger
	Redis  *redis.Client `optional:"true"`
}

// NewStore picks Redis when a client is configured and the in-memory store otherwise.
func NewStore(p Params) Store {
	ttl := p.Config.Redis.SessionTTL
	if p.Redis == nil {
		p.Log.Named("cart.session").Info("using in-memory cart sessions")
		return NewMemoryStore(p.Clock, ttl)
	}
	return NewRedisStore(p.Redis, p.Clock, ttl)
}
