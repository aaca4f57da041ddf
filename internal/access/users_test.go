package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanCreateUser(t *testing.T) {
	root := Actor{UserID: 1, Role: RoleRootAdmin}
	admin7 := Actor{UserID: 2, Role: RoleAdministrator, StoreID: storeRef(7)}
	mod7 := Actor{UserID: 3, Role: RoleModerator, StoreID: storeRef(7)}
	member7 := Actor{UserID: 4, Role: RoleMember, StoreID: storeRef(7)}

	store, err := CanCreateUser(root, RoleRootAdmin, nil)
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = CanCreateUser(admin7, RoleRootAdmin, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	store, err = CanCreateUser(admin7, RoleModerator, nil)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, int64(7), *store)

	_, err = CanCreateUser(admin7, RoleMember, storeRef(9))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	store, err = CanCreateUser(mod7, RoleMember, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *store)

	_, err = CanCreateUser(mod7, RoleViewer, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = CanCreateUser(member7, RoleMember, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = CanCreateUser(root, Role("owner"), nil)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCanEditUser(t *testing.T) {
	root := Actor{UserID: 1, Role: RoleRootAdmin}
	admin7 := Actor{UserID: 2, Role: RoleAdministrator, StoreID: storeRef(7)}
	mod7 := Actor{UserID: 3, Role: RoleModerator, StoreID: storeRef(7)}

	_, _, err := CanEditUser(root, Account{ID: 1, Role: RoleRootAdmin}, RoleAdministrator, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied, "root cannot demote itself")

	role, _, err := CanEditUser(root, Account{ID: 9, Role: RoleRootAdmin}, RoleAdministrator, nil)
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, role)

	_, _, err = CanEditUser(admin7, Account{ID: 5, Role: RoleRootAdmin}, "", nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, _, err = CanEditUser(admin7, Account{ID: 5, Role: RoleMember, StoreID: storeRef(7)}, RoleRootAdmin, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	role, store, err := CanEditUser(admin7, Account{ID: 5, Role: RoleMember, StoreID: storeRef(7)}, RoleModerator, nil)
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, role)
	assert.Equal(t, int64(7), *store)

	role, store, err = CanEditUser(mod7, Account{ID: 6, Role: RoleMember, StoreID: storeRef(7)}, RoleAdministrator, storeRef(9))
	require.NoError(t, err)
	assert.Equal(t, RoleMember, role, "moderators cannot change roles")
	assert.Equal(t, int64(7), *store)

	_, _, err = CanEditUser(mod7, Account{ID: 7, Role: RoleModerator, StoreID: storeRef(7)}, "", nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestModeratorCannotEditUserInAnotherStore(t *testing.T) {
	mod7 := Actor{UserID: 3, Role: RoleModerator, StoreID: storeRef(7)}
	target := Account{ID: 10, Role: RoleMember, StoreID: storeRef(9)}

	_, _, err := CanEditUser(mod7, target, "", nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCanDeleteUser(t *testing.T) {
	root := Actor{UserID: 1, Role: RoleRootAdmin}
	admin7 := Actor{UserID: 2, Role: RoleAdministrator, StoreID: storeRef(7)}
	mod7 := Actor{UserID: 3, Role: RoleModerator, StoreID: storeRef(7)}

	assert.ErrorIs(t, CanDeleteUser(root, Account{ID: 1, Role: RoleRootAdmin}), ErrPermissionDenied)
	assert.NoError(t, CanDeleteUser(root, Account{ID: 2, Role: RoleAdministrator}))
	assert.ErrorIs(t, CanDeleteUser(admin7, Account{ID: 1, Role: RoleRootAdmin}), ErrPermissionDenied)
	assert.ErrorIs(t, CanDeleteUser(admin7, Account{ID: 8, Role: RoleMember, StoreID: storeRef(9)}), ErrPermissionDenied)
	assert.NoError(t, CanDeleteUser(admin7, Account{ID: 8, Role: RoleMember, StoreID: storeRef(7)}))
	assert.NoError(t, CanDeleteUser(mod7, Account{ID: 8, Role: RoleMember, StoreID: storeRef(7)}))
	assert.ErrorIs(t, CanDeleteUser(mod7, Account{ID: 9, Role: RoleViewer, StoreID: storeRef(7)}), ErrPermissionDenied)
}

func TestCanAssignStore(t *testing.T) {
	root := Actor{UserID: 1, Role: RoleRootAdmin}
	globalAdmin := Actor{UserID: 2, Role: RoleAdministrator}
	admin7 := Actor{UserID: 3, Role: RoleAdministrator, StoreID: storeRef(7)}
	mod7 := Actor{UserID: 4, Role: RoleModerator, StoreID: storeRef(7)}

	assert.NoError(t, CanAssignStore(root, Account{ID: 5, Role: RoleRootAdmin}, storeRef(9)))
	assert.NoError(t, CanAssignStore(globalAdmin, Account{ID: 5, Role: RoleMember}, storeRef(9)))
	assert.ErrorIs(t, CanAssignStore(globalAdmin, Account{ID: 1, Role: RoleRootAdmin}, storeRef(9)), ErrPermissionDenied)
	assert.NoError(t, CanAssignStore(admin7, Account{ID: 5, Role: RoleMember}, storeRef(7)))
	assert.ErrorIs(t, CanAssignStore(admin7, Account{ID: 5, Role: RoleMember, StoreID: storeRef(7)}, storeRef(9)), ErrPermissionDenied)
	assert.ErrorIs(t, CanAssignStore(mod7, Account{ID: 5, Role: RoleMember, StoreID: storeRef(7)}, storeRef(7)), ErrPermissionDenied)
}
