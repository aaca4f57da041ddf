// Package seed bootstraps the first root_admin account of a fresh installation.
package seed

import (
	"context"
	"errors"

	"github.com/smallbiznis/trashforcoin/internal/config"
	userdomain "github.com/smallbiznis/trashforcoin/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, p Params) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return EnsureRootAdmin(ctx, p)
			},
		})
	}),
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Users  userdomain.Service
}

// EnsureRootAdmin creates the configured root_admin when the database has none.
// Missing bootstrap credentials are only an error while no root_admin exists.
func EnsureRootAdmin(ctx context.Context, p Params) error {
	log := p.Log.Named("seed")
	email := p.Config.Bootstrap.RootEmail
	if email == "" {
		log.Info("root admin bootstrap not configured")
		return nil
	}

	user, err := p.Users.Bootstrap(ctx, email, p.Config.Bootstrap.RootPassword)
	if err != nil {
		if errors.Is(err, userdomain.ErrEmailTaken) {
			log.Warn("bootstrap email belongs to a non-root account", zap.String("email", email))
			return nil
		}
		return err
	}
	if user == nil {
		log.Debug("root admin already present")
		return nil
	}
	log.Info("root admin created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return nil
}
