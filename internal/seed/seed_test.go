package seed

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	userdomain "github.com/smallbiznis/trashforcoin/internal/user/domain"
	userrepository "github.com/smallbiznis/trashforcoin/internal/user/repository"
	userservice "github.com/smallbiznis/trashforcoin/internal/user/service"
	"github.com/smallbiznis/trashforcoin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureRootAdminIsIdempotent(t *testing.T) {
	db := dbtest.Open(t, dbtest.Schema...)
	users := userservice.New(userservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  userrepository.Provide(),
	})
	p := Params{
		Config: config.Config{Bootstrap: config.BootstrapConfig{RootEmail: "root@example.com", RootPassword: "rootsecret"}},
		Log:    zap.NewNop(),
		Users:  users,
	}

	require.NoError(t, EnsureRootAdmin(context.Background(), p))
	require.NoError(t, EnsureRootAdmin(context.Background(), p))

	var roots []userdomain.User
	require.NoError(t, db.Where("role = ?", access.RoleRootAdmin).Find(&roots).Error)
	require.Len(t, roots, 1)
	assert.Equal(t, "root@example.com", roots[0].Email)
}

func TestEnsureRootAdminWithoutConfig(t *testing.T) {
	p := Params{Log: zap.NewNop()}
	assert.NoError(t, EnsureRootAdmin(context.Background(), p))
}
