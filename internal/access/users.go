package access

// Account is the part of a user row the administration rules look at.
type Account struct {
	ID      int64
	Role    Role
	StoreID *int64
}

// CanCreateUser checks that actor may create an account with role in store.
// It returns the store the account must be created in, which for store-bound
// managers is always their own.
func CanCreateUser(actor Actor, role Role, store *int64) (*int64, error) {
	if err := requireUserCapability(actor, ActionCreate); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	switch actor.Role {
	case RoleRootAdmin:
		return store, nil
	case RoleAdministrator:
		if role == RoleRootAdmin {
			return nil, ErrPermissionDenied
		}
		if !actor.Bound() {
			return store, nil
		}
		if store != nil && !actor.InStore(store) {
			return nil, ErrPermissionDenied
		}
		return copyStore(actor.StoreID), nil
	case RoleModerator:
		if role != RoleMember || !actor.Bound() {
			return nil, ErrPermissionDenied
		}
		if store != nil && !actor.InStore(store) {
			return nil, ErrPermissionDenied
		}
		return copyStore(actor.StoreID), nil
	default:
		return nil, ErrPermissionDenied
	}
}

// CanEditUser checks an edit of target that requests newRole and newStore and
// returns the role and store that will actually be written. Moderators edit profile
// fields only, so the target keeps its role and store.
func CanEditUser(actor Actor, target Account, newRole Role, newStore *int64) (Role, *int64, error) {
	if err := requireUserCapability(actor, ActionUpdate); err != nil {
		return "", nil, err
	}
	if newRole == "" {
		newRole = target.Role
	}
	if !newRole.Valid() {
		return "", nil, ErrInvalidRole
	}

	switch actor.Role {
	case RoleRootAdmin:
		if target.ID == actor.UserID && target.Role == RoleRootAdmin && newRole != RoleRootAdmin {
			return "", nil, ErrPermissionDenied
		}
		return newRole, newStore, nil
	case RoleAdministrator:
		if target.Role == RoleRootAdmin || newRole == RoleRootAdmin {
			return "", nil, ErrPermissionDenied
		}
		if !actor.Bound() {
			return newRole, newStore, nil
		}
		if !actor.InStore(target.StoreID) {
			return "", nil, ErrPermissionDenied
		}
		if newStore != nil && !actor.InStore(newStore) {
			return "", nil, ErrPermissionDenied
		}
		return newRole, copyStore(actor.StoreID), nil
	case RoleModerator:
		if target.Role != RoleMember || !actor.InStore(target.StoreID) {
			return "", nil, ErrPermissionDenied
		}
		return target.Role, copyStore(target.StoreID), nil
	default:
		return "", nil, ErrPermissionDenied
	}
}

// CanDeleteUser checks a delete of target. Nobody deletes their own account.
func CanDeleteUser(actor Actor, target Account) error {
	if err := requireUserCapability(actor, ActionDelete); err != nil {
		return err
	}
	if target.ID == actor.UserID {
		return ErrPermissionDenied
	}

	switch actor.Role {
	case RoleRootAdmin:
		return nil
	case RoleAdministrator:
		if target.Role == RoleRootAdmin {
			return ErrPermissionDenied
		}
		if actor.Bound() && !actor.InStore(target.StoreID) {
			return ErrPermissionDenied
		}
		return nil
	case RoleModerator:
		if target.Role != RoleMember || !actor.InStore(target.StoreID) {
			return ErrPermissionDenied
		}
		return nil
	default:
		return ErrPermissionDenied
	}
}

// CanAssignStore checks moving target into store (nil detaches it).
func CanAssignStore(actor Actor, target Account, store *int64) error {
	if err := requireUserCapability(actor, ActionUpdate); err != nil {
		return err
	}

	switch actor.Role {
	case RoleRootAdmin:
		return nil
	case RoleAdministrator:
		if target.Role == RoleRootAdmin {
			return ErrPermissionDenied
		}
		if !actor.Bound() {
			return nil
		}
		if target.StoreID != nil && !actor.InStore(target.StoreID) {
			return ErrPermissionDenied
		}
		if !actor.InStore(store) {
			return ErrPermissionDenied
		}
		return nil
	default:
		return ErrPermissionDenied
	}
}

func requireUserCapability(actor Actor, action Action) error {
	if !actor.Valid() {
		return ErrInvalidActor
	}
	if !Can(actor.Role, ResourceUser, action) {
		return ErrPermissionDenied
	}
	return nil
}

func copyStore(store *int64) *int64 {
	if store == nil {
		return nil
	}
	v := *store
	return &v
}
