package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/auth/password"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/user/domain"
	"github.com/smallbiznis/trashforcoin/internal/user/repository"
	"github.com/smallbiznis/trashforcoin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func storeRef(id int64) *int64 { return &id }

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc   *Service
	db    *gorm.DB
	root  access.Actor
	admin access.Actor
	mod   access.Actor
}

func setupUsers(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t, dbtest.Schema...)
	require.NoError(t, db.Exec(`INSERT INTO tbl_stores (store_id, store_name, slug) VALUES (7, 'North', 'north'), (9, 'South', 'south')`).Error)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)

	ctx := context.Background()
	root, err := svc.Bootstrap(ctx, "root@example.com", "rootsecret")
	require.NoError(t, err)
	require.NotNil(t, root)

	admin, err := svc.Create(ctx, root.Actor(), domain.CreateRequest{Email: "admin@example.com", Password: "adminsecret", Role: "administrator", StoreID: storeRef(7)})
	require.NoError(t, err)
	mod, err := svc.Create(ctx, root.Actor(), domain.CreateRequest{Email: "mod@example.com", Password: "modsecret1", Role: "moderator", StoreID: storeRef(7)})
	require.NoError(t, err)

	return fixture{svc: svc, db: db, root: root.Actor(), admin: admin.Actor(), mod: mod.Actor()}
}

func TestModeratorCannotEditUserOfAnotherStore(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	south, err := f.svc.Create(ctx, f.root, domain.CreateRequest{FirstName: "Sam", Email: "sam@example.com", Password: "samsecret", Role: "member", StoreID: storeRef(9)})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.mod, domain.UpdateRequest{ID: south.ID, FirstName: ptr("Mallory")})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	var stored domain.User
	require.NoError(t, f.db.Where("id = ?", south.ID).First(&stored).Error)
	assert.Equal(t, "Sam", stored.FirstName)
	assert.Equal(t, south.UpdatedAt.Unix(), stored.UpdatedAt.Unix())
}

func TestCreateUserRules(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	member, err := f.svc.Create(ctx, f.mod, domain.CreateRequest{Email: " New@Example.com ", Password: "membersecret", Role: "member"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", member.Email)
	require.NotNil(t, member.StoreID)
	assert.Equal(t, int64(7), *member.StoreID)
	assert.True(t, password.Verify("membersecret", member.PasswordHash))

	tests := []struct {
		name  string
		actor access.Actor
		req   domain.CreateRequest
		err   error
	}{
		{"duplicate email", f.root, domain.CreateRequest{Email: "NEW@example.com", Password: "membersecret", Role: "member", StoreID: storeRef(7)}, domain.ErrEmailTaken},
		{"bad email", f.root, domain.CreateRequest{Email: "nope", Password: "membersecret", Role: "member", StoreID: storeRef(7)}, domain.ErrInvalidEmail},
		{"short password", f.root, domain.CreateRequest{Email: "a@example.com", Password: "short", Role: "member", StoreID: storeRef(7)}, domain.ErrInvalidPassword},
		{"unknown role", f.root, domain.CreateRequest{Email: "a@example.com", Password: "membersecret", Role: "owner"}, access.ErrInvalidRole},
		{"member without store", f.root, domain.CreateRequest{Email: "a@example.com", Password: "membersecret", Role: "member"}, domain.ErrStoreRequired},
		{"missing store", f.root, domain.CreateRequest{Email: "a@example.com", Password: "membersecret", Role: "member", StoreID: storeRef(42)}, domain.ErrStoreNotFound},
		{"moderator creates moderator", f.mod, domain.CreateRequest{Email: "a@example.com", Password: "membersecret", Role: "moderator"}, access.ErrPermissionDenied},
		{"admin creates root", f.admin, domain.CreateRequest{Email: "a@example.com", Password: "membersecret", Role: "root_admin"}, access.ErrPermissionDenied},
		{"admin creates in other store", f.admin, domain.CreateRequest{Email: "a@example.com", Password: "membersecret", Role: "member", StoreID: storeRef(9)}, access.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestUpdateRoleAndAssignStore(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()
	member, err := f.svc.Create(ctx, f.admin, domain.CreateRequest{Email: "m@example.com", Password: "membersecret", Role: "member"})
	require.NoError(t, err)

	promoted, err := f.svc.Update(ctx, f.admin, domain.UpdateRequest{ID: member.ID, Role: ptr("moderator")})
	require.NoError(t, err)
	assert.Equal(t, access.RoleModerator, promoted.Role)

	_, err = f.svc.Update(ctx, f.mod, domain.UpdateRequest{ID: promoted.ID, LastName: ptr("Nope")})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	_, err = f.svc.AssignStore(ctx, f.admin, domain.AssignStoreRequest{ID: member.ID, StoreID: storeRef(9)})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	moved, err := f.svc.AssignStore(ctx, f.root, domain.AssignStoreRequest{ID: member.ID, StoreID: storeRef(9)})
	require.NoError(t, err)
	require.NotNil(t, moved.StoreID)
	assert.Equal(t, int64(9), *moved.StoreID)

	_, err = f.svc.AssignStore(ctx, f.root, domain.AssignStoreRequest{ID: member.ID})
	assert.ErrorIs(t, err, domain.ErrStoreRequired)

	_, err = f.svc.Update(ctx, f.root, domain.UpdateRequest{ID: f.admin.UserID, Email: ptr("mod@example.com")})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestRootAdminIsNeverStranded(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.root, domain.UpdateRequest{ID: f.root.UserID, Role: ptr("administrator")})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.root, f.root.UserID), access.ErrPermissionDenied)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.admin, f.root.UserID), access.ErrPermissionDenied)

	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.keepRootAdmin(ctx, tx)
	})
	assert.ErrorIs(t, err, domain.ErrLastRootAdmin)

	second, err := f.svc.Create(ctx, f.root, domain.CreateRequest{Email: "root2@example.com", Password: "rootsecret", Role: "root_admin"})
	require.NoError(t, err)
	demoted, err := f.svc.Update(ctx, f.root, domain.UpdateRequest{ID: second.ID, Role: ptr("administrator")})
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdministrator, demoted.Role)
	assert.Nil(t, demoted.StoreID)

	again, err := f.svc.Bootstrap(ctx, "other@example.com", "rootsecret")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestDeleteUser(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()
	member, err := f.svc.Create(ctx, f.mod, domain.CreateRequest{Email: "m@example.com", Password: "membersecret", Role: "member"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.mod, f.admin.UserID), access.ErrPermissionDenied)
	require.NoError(t, f.svc.Delete(ctx, f.mod, member.ID))

	_, err = f.svc.Get(ctx, f.root, member.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListUsersScoped(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.root, domain.CreateRequest{Email: "south@example.com", Password: "membersecret", Role: "member", StoreID: storeRef(9)})
	require.NoError(t, err)

	resp, err := f.svc.List(ctx, f.root, domain.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.PageInfo.Total)

	resp, err = f.svc.List(ctx, f.mod, domain.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.PageInfo.Total)

	resp, err = f.svc.List(ctx, f.root, domain.ListRequest{Role: "member", Search: "SOUTH"})
	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "south@example.com", resp.Users[0].Email)

	self, err := f.svc.Get(ctx, f.mod, f.mod.UserID)
	require.NoError(t, err)
	assert.Equal(t, "mod@example.com", self.Email)
}

func TestChangePassword(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, f.mod, domain.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "brandnewsecret"})
	assert.ErrorIs(t, err, domain.ErrWrongPassword)

	require.NoError(t, f.svc.ChangePassword(ctx, f.mod, domain.ChangePasswordRequest{CurrentPassword: "modsecret1", NewPassword: "brandnewsecret"}))
	stored, err := f.svc.Get(ctx, f.mod, f.mod.UserID)
	require.NoError(t, err)
	assert.True(t, password.Verify("brandnewsecret", stored.PasswordHash))
}
