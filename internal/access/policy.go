package access

// Decide reports whether actor may perform action on a row of resource that lives in
// targetStore (nil for global rows). Out-of-scope requests return ErrPermissionDenied.
//
// Global rows are readable by everyone holding the read capability and writable only
// by global actors. A store-restricted role without a store reads global rows only.
func Decide(actor Actor, resource Resource, action Action, targetStore *int64) error {
	if !actor.Valid() {
		return ErrInvalidActor
	}
	if !Can(actor.Role, resource, action) {
		return ErrPermissionDenied
	}
	if actor.Global() {
		return nil
	}

	if !action.Mutates() {
		if targetStore == nil {
			return nil
		}
		if actor.Role == RoleViewer && !actor.Bound() {
			return nil
		}
		if actor.InStore(targetStore) {
			return nil
		}
		return ErrPermissionDenied
	}

	if targetStore == nil || !actor.Bound() {
		return ErrPermissionDenied
	}
	if !actor.InStore(targetStore) {
		return ErrPermissionDenied
	}
	return nil
}

// DecideOwned is Decide for rows that belong to a purchaser. Non-privileged actors
// only reach rows carrying their own email.
func DecideOwned(actor Actor, resource Resource, action Action, targetStore *int64, ownerEmail string) error {
	if err := Decide(actor, resource, action, targetStore); err != nil {
		return err
	}
	if actor.Role.Privileged() || actor.Role == RoleViewer {
		return nil
	}
	if !actor.OwnsEmail(ownerEmail) {
		return ErrPermissionDenied
	}
	return nil
}
