package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthProvider identifies how an account authenticates.
type AuthProvider = string

const (
	// AuthProviderEmail is the default email/password provider
	AuthProviderEmail AuthProvider = "email"
	// AuthProviderLDAP marks accounts whose sign-in is delegated to LDAP
	AuthProviderLDAP AuthProvider = "ldap"
	// AuthProviderSAML marks accounts whose sign-in is delegated to SAML
	AuthProviderSAML AuthProvider = "saml"
)

// User is the identity record. A user with a NULL password hash is a
// pending shell created by the invite flow; setting the hash activates it.
type User struct {
	bun.BaseModel                `bun:"table:users,alias:usr"`
	ID                           uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email                        string       `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName                    *string      `bun:"first_name" json:"first_name,omitempty"`
	LastName                     *string      `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash                 *string      `bun:"password_hash" json:"-"`
	GlobalRoleID                 int64        `bun:"global_role_id,notnull" json:"global_role_id,omitempty"`
	GlobalRole                   *Role        `bun:"rel:belongs-to,join:global_role_id=id" json:"global_role,omitempty"`
	ResetPasswordToken           *string      `bun:"reset_password_token" json:"-"`
	ResetPasswordTokenExpiration *int64       `bun:"reset_password_token_expiration" json:"-"`
	Disabled                     bool         `bun:"disabled,notnull,default:false" json:"disabled,omitempty"`
	AuthProvider                 AuthProvider `bun:"auth_provider,notnull,default:'email'" json:"auth_provider,omitempty"`
	CreatedAt                    *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt                    *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewShellUser builds a complete pending user record for an invite. The
// password hash stays NULL until the invitee completes signup.
func NewShellUser(email string, role *Role) *User {
	u := &User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(email),
		AuthProvider: AuthProviderEmail,
	}
	if role != nil {
		u.GlobalRoleID = role.ID
		u.GlobalRole = role
	}
	return u
}

// IsPending reports whether the account is an invite shell that has not
// yet set a password.
func (u *User) IsPending() bool {
	return u.PasswordHash == nil || *u.PasswordHash == ""
}

// IsFederated reports whether sign-in is delegated to an external
// identity provider.
func (u *User) IsFederated() bool {
	return u.AuthProvider != "" && u.AuthProvider != AuthProviderEmail
}

// DisplayName returns first/last name with empty fallbacks.
func (u *User) DisplayName() (firstName, lastName string) {
	if u.FirstName != nil {
		firstName = *u.FirstName
	}
	if u.LastName != nil {
		lastName = *u.LastName
	}
	return firstName, lastName
}

// NormalizeEmail lower-cases and trims an address. Email uniqueness is
// case-insensitive, so every write path must normalize first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PublicUser is the sanitized view of a user that is safe to return to
// callers. It never carries the password hash or reset token.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      RoleName  `json:"role,omitempty"`
	IsPending bool      `json:"is_pending"`
	Disabled  bool      `json:"disabled,omitempty"`
}

// SanitizeUser strips credentials and tokens from a user record.
func SanitizeUser(u *User) PublicUser {
	firstName, lastName := u.DisplayName()
	p := PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: firstName,
		LastName:  lastName,
		IsPending: u.IsPending(),
		Disabled:  u.Disabled,
	}
	if u.GlobalRole != nil {
		p.Role = u.GlobalRole.Name
	}
	return p
}

// Role is a (scope, name) pair of static reference data. Roles are only
// ever looked up by this package, never created.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:role"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Scope         RoleScope `bun:"scope,notnull" json:"scope,omitempty"`
	Name          RoleName  `bun:"name,notnull" json:"name,omitempty"`
}

// Workflow is an automation owned through a SharedWorkflow row.
type Workflow struct {
	bun.BaseModel `bun:"table:workflows,alias:wf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Active        bool       `bun:"active,notnull,default:false" json:"active,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Credential is a stored secret owned through a SharedCredential row.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Type          string     `bun:"type,notnull" json:"type,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SharedWorkflow links a user to a workflow with a relationship role.
// A partial unique index guarantees at most one owner row per workflow.
type SharedWorkflow struct {
	bun.BaseModel `bun:"table:shared_workflows,alias:swf"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	WorkflowID    uuid.UUID  `bun:"workflow_id,pk,type:uuid" json:"workflow_id,omitempty"`
	RoleID        int64      `bun:"role_id,notnull" json:"role_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Workflow      *Workflow  `bun:"rel:belongs-to,join:workflow_id=id" json:"workflow,omitempty"`
	Role          *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// SharedCredential links a user to a credential with a relationship role.
type SharedCredential struct {
	bun.BaseModel `bun:"table:shared_credentials,alias:scr"`
	UserID        uuid.UUID   `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	CredentialID  uuid.UUID   `bun:"credential_id,pk,type:uuid" json:"credential_id,omitempty"`
	RoleID        int64       `bun:"role_id,notnull" json:"role_id,omitempty"`
	User          *User       `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Credential    *Credential `bun:"rel:belongs-to,join:credential_id=id" json:"credential,omitempty"`
	Role          *Role       `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
