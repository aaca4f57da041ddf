package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func storeRef(id int64) *int64 { return &id }

func TestDecide(t *testing.T) {
	store7 := storeRef(7)
	store9 := storeRef(9)

	root := Actor{UserID: 1, Role: RoleRootAdmin}
	globalAdmin := Actor{UserID: 2, Role: RoleAdministrator}
	admin7 := Actor{UserID: 3, Role: RoleAdministrator, StoreID: store7}
	mod7 := Actor{UserID: 4, Role: RoleModerator, StoreID: store7}
	member7 := Actor{UserID: 5, Role: RoleMember, StoreID: store7, Email: "m@example.com"}
	viewer := Actor{UserID: 6, Role: RoleViewer}
	viewer7 := Actor{UserID: 7, Role: RoleViewer, StoreID: store7}
	unboundMod := Actor{UserID: 8, Role: RoleModerator}

	tests := []struct {
		name     string
		actor    Actor
		resource Resource
		action   Action
		store    *int64
		wantErr  error
	}{
		{"root writes any store", root, ResourceProduct, ActionUpdate, store9, nil},
		{"root writes global rows", root, ResourceCategory, ActionCreate, nil, nil},
		{"global admin writes any store", globalAdmin, ResourceOrder, ActionDelete, store9, nil},
		{"bound admin writes own store", admin7, ResourceProduct, ActionUpdate, store7, nil},
		{"bound admin denied other store", admin7, ResourceProduct, ActionUpdate, store9, ErrPermissionDenied},
		{"bound admin denied global write", admin7, ResourceCategory, ActionUpdate, nil, ErrPermissionDenied},
		{"bound admin reads global rows", admin7, ResourceCategory, ActionRead, nil, nil},
		{"bound admin cannot write stores", admin7, ResourceStore, ActionCreate, store7, ErrPermissionDenied},
		{"moderator writes own store", mod7, ResourceOrder, ActionUpdate, store7, nil},
		{"moderator reads other store denied", mod7, ResourceOrder, ActionRead, store9, ErrPermissionDenied},
		{"member cannot edit products", member7, ResourceProduct, ActionUpdate, store7, ErrPermissionDenied},
		{"member writes cart in own store", member7, ResourceCart, ActionCreate, store7, nil},
		{"member cart other store denied", member7, ResourceCart, ActionCreate, store9, ErrPermissionDenied},
		{"member cannot read users", member7, ResourceUser, ActionRead, store7, ErrPermissionDenied},
		{"viewer unbound reads any store", viewer, ResourceOrder, ActionRead, store9, nil},
		{"viewer never writes", viewer, ResourceOrder, ActionUpdate, store9, ErrPermissionDenied},
		{"bound viewer reads own store", viewer7, ResourceProduct, ActionRead, store7, nil},
		{"bound viewer other store denied", viewer7, ResourceProduct, ActionRead, store9, ErrPermissionDenied},
		{"unbound moderator reads global", unboundMod, ResourceProduct, ActionRead, nil, nil},
		{"unbound moderator store read denied", unboundMod, ResourceProduct, ActionRead, store7, ErrPermissionDenied},
		{"unbound moderator writes denied", unboundMod, ResourceProduct, ActionCreate, store7, ErrPermissionDenied},
		{"invalid actor", Actor{Role: RoleRootAdmin}, ResourceProduct, ActionRead, nil, ErrInvalidActor},
		{"unknown role", Actor{UserID: 1, Role: "owner"}, ResourceProduct, ActionRead, nil, ErrInvalidActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decide(tt.actor, tt.resource, tt.action, tt.store)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecideOwned(t *testing.T) {
	store7 := storeRef(7)
	member := Actor{UserID: 5, Role: RoleMember, StoreID: store7, Email: "Member@Example.com"}
	mod := Actor{UserID: 4, Role: RoleModerator, StoreID: store7, Email: "mod@example.com"}

	assert.NoError(t, DecideOwned(member, ResourceCart, ActionUpdate, store7, "member@example.com"))
	assert.ErrorIs(t, DecideOwned(member, ResourceCart, ActionUpdate, store7, "other@example.com"), ErrPermissionDenied)
	assert.NoError(t, DecideOwned(mod, ResourceOrder, ActionUpdate, store7, "other@example.com"))
}

func TestCapabilitiesIsACopy(t *testing.T) {
	caps := Capabilities()
	caps[RoleViewer][ResourceOrder] = []Action{ActionDelete}

	assert.False(t, Can(RoleViewer, ResourceOrder, ActionDelete))
	assert.True(t, Can(RoleViewer, ResourceOrder, ActionRead))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Moderator ")
	assert.NoError(t, err)
	assert.Equal(t, RoleModerator, role)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
