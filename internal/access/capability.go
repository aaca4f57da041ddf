package access

type Resource string

const (
	ResourceStore    Resource = "store"
	ResourceUser     Resource = "user"
	ResourceCategory Resource = "category"
	ResourceProduct  Resource = "product"
	ResourceOrder    Resource = "order"
	ResourceCart     Resource = "cart"
	ResourceBin      Resource = "bin"
	ResourceReport   Resource = "report"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Mutates() bool {
	return a != ActionRead
}

var (
	readOnly  = []Action{ActionRead}
	readWrite = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
)

var capabilities = map[Role]map[Resource][]Action{
	RoleRootAdmin: {
		ResourceStore:    readWrite,
		ResourceUser:     readWrite,
		ResourceCategory: readWrite,
		ResourceProduct:  readWrite,
		ResourceOrder:    readWrite,
		ResourceCart:     readWrite,
		ResourceBin:      readWrite,
		ResourceReport:   readOnly,
	},
	RoleAdministrator: {
		ResourceStore:    readOnly,
		ResourceUser:     readWrite,
		ResourceCategory: readWrite,
		ResourceProduct:  readWrite,
		ResourceOrder:    readWrite,
		ResourceCart:     readWrite,
		ResourceBin:      readWrite,
		ResourceReport:   readOnly,
	},
	RoleModerator: {
		ResourceStore:    readOnly,
		ResourceUser:     readWrite,
		ResourceCategory: readWrite,
		ResourceProduct:  readWrite,
		ResourceOrder:    readWrite,
		ResourceCart:     readWrite,
		ResourceBin:      readWrite,
		ResourceReport:   readOnly,
	},
	RoleMember: {
		ResourceStore:    readOnly,
		ResourceCategory: readOnly,
		ResourceProduct:  readOnly,
		ResourceOrder:    readOnly,
		ResourceCart:     readWrite,
		ResourceBin:      readWrite,
		ResourceReport:   readOnly,
	},
	RoleViewer: {
		ResourceStore:    readOnly,
		ResourceUser:     readOnly,
		ResourceCategory: readOnly,
		ResourceProduct:  readOnly,
		ResourceOrder:    readOnly,
		ResourceBin:      readOnly,
		ResourceReport:   readOnly,
	},
}

// Capabilities returns a copy of the role capability table.
func Capabilities() map[Role]map[Resource][]Action {
	out := make(map[Role]map[Resource][]Action, len(capabilities))
	for role, resources := range capabilities {
		copied := make(map[Resource][]Action, len(resources))
		for resource, actions := range resources {
			copied[resource] = append([]Action(nil), actions...)
		}
		out[role] = copied
	}
	return out
}

// Can reports whether role holds the capability, ignoring store scope.
func Can(role Role, resource Resource, action Action) bool {
	for _, allowed := range capabilities[role][resource] {
		if allowed == action {
			return true
		}
	}
	return false
}
