package access

import (
	"strings"

	"gorm.io/gorm"
)

// Scope is the row filter a listing query runs under.
type Scope struct {
	// None hides every row.
	None bool
	// All disables the store filter.
	All bool
	// StoreID restricts rows to one store when All is false.
	StoreID *int64
	// IncludeGlobal also admits rows whose store is NULL.
	IncludeGlobal bool
	// Email restricts rows to one purchaser.
	Email string
}

// ScopeFor builds the read filter of actor over resource.
func ScopeFor(actor Actor, resource Resource) Scope {
	if !actor.Valid() || !Can(actor.Role, resource, ActionRead) {
		return Scope{None: true}
	}

	var scope Scope
	switch {
	case actor.Global():
		scope = Scope{All: true}
	case actor.Role == RoleViewer && !actor.Bound():
		scope = Scope{All: true}
	case actor.Bound():
		store := *actor.StoreID
		scope = Scope{StoreID: &store, IncludeGlobal: hasGlobalRows(resource)}
	default:
		if !hasGlobalRows(resource) {
			return Scope{None: true}
		}
		scope = Scope{IncludeGlobal: true}
	}

	if actor.Role == RoleMember && ownedByPurchaser(resource) {
		scope.Email = strings.ToLower(strings.TrimSpace(actor.Email))
	}
	return scope
}

// hasGlobalRows marks resources that may carry a NULL store.
func hasGlobalRows(resource Resource) bool {
	switch resource {
	case ResourceCategory, ResourceProduct:
		return true
	default:
		return false
	}
}

func ownedByPurchaser(resource Resource) bool {
	switch resource {
	case ResourceOrder, ResourceCart:
		return true
	default:
		return false
	}
}

// Apply filters db by storeCol and, for purchaser-restricted scopes, emailCol.
// Applying the same scope twice selects the same rows.
func (s Scope) Apply(db *gorm.DB, storeCol, emailCol string) *gorm.DB {
	if s.None {
		return db.Where("1 = 0")
	}
	if !s.All {
		switch {
		case s.StoreID != nil && s.IncludeGlobal:
			db = db.Where("("+storeCol+" = ? OR "+storeCol+" IS NULL)", *s.StoreID)
		case s.StoreID != nil:
			db = db.Where(storeCol+" = ?", *s.StoreID)
		case s.IncludeGlobal:
			db = db.Where(storeCol + " IS NULL")
		default:
			return db.Where("1 = 0")
		}
	}
	if s.Email != "" {
		if emailCol == "" {
			return db.Where("1 = 0")
		}
		db = db.Where("LOWER("+emailCol+") = ?", s.Email)
	}
	return db
}

// Allows is the in-memory form of Apply.
func (s Scope) Allows(storeID *int64, email string) bool {
	if s.None {
		return false
	}
	if !s.All {
		switch {
		case storeID == nil:
			if !s.IncludeGlobal {
				return false
			}
		case s.StoreID == nil || *s.StoreID != *storeID:
			return false
		}
	}
	if s.Email != "" && !strings.EqualFold(strings.TrimSpace(email), s.Email) {
		return false
	}
	return true
}

// Narrow intersects s with a caller supplied store filter. A store outside the scope
// yields an empty scope rather than an error since listings never fail on filters.
func (s Scope) Narrow(storeID *int64) Scope {
	if storeID == nil || s.None {
		return s
	}
	if !s.All && (s.StoreID == nil || *s.StoreID != *storeID) {
		return Scope{None: true}
	}
	store := *storeID
	return Scope{StoreID: &store, Email: s.Email}
}
