package identity

// RoleScope qualifies the kind of entity a role applies to.
type RoleScope = string

const (
	// RoleScopeGlobal applies to the whole instance
	RoleScopeGlobal RoleScope = "global"
	// RoleScopeWorkflow applies to a single workflow
	RoleScopeWorkflow RoleScope = "workflow"
	// RoleScopeCredential applies to a single credential
	RoleScopeCredential RoleScope = "credential"
)

// RoleName is the role within a scope.
type RoleName = string

const (
	// RoleNameOwner owns the scoped entity (exactly one owner per resource)
	RoleNameOwner RoleName = "owner"
	// RoleNameMember is the default global role assigned to invitees
	RoleNameMember RoleName = "member"
	// RoleNameEditor may edit a shared workflow without owning it
	RoleNameEditor RoleName = "editor"
	// RoleNameUser may use a shared credential without owning it
	RoleNameUser RoleName = "user"
)

// IsValidScope checks the scope against the static catalog.
func IsValidScope(scope RoleScope) bool {
	switch scope {
	case RoleScopeGlobal, RoleScopeWorkflow, RoleScopeCredential:
		return true
	default:
		return false
	}
}

// IsValidRoleName checks the name against the static catalog.
func IsValidRoleName(name RoleName) bool {
	switch name {
	case RoleNameOwner, RoleNameMember, RoleNameEditor, RoleNameUser:
		return true
	default:
		return false
	}
}

// IsOwner reports whether the role grants ownership.
func (r *Role) IsOwner() bool {
	return r != nil && r.Name == RoleNameOwner
}
