package operation

// Identity is the calling principal.
type Identity interface {
	ID() string
	// Roles returns group and role memberships.
	Roles() []string
	// IsSystem marks trusted internal callers that bypass authorization.
	IsSystem() bool
}

// Entity is the target content an operation is bound to.
type Entity interface {
	ID() string
	TypeName() string
	// AncestorTypes returns the type names the declared type inherits from.
	AncestorTypes() []string
}

// User is a plain Identity.
type User struct {
	UserID    string   `json:"id"`
	UserRoles []string `json:"roles,omitempty"`
	System    bool     `json:"-"`
}

func (u *User) ID() string      { return u.UserID }
func (u *User) Roles() []string { return u.UserRoles }
func (u *User) IsSystem() bool  { return u.System }

// SystemUser returns the identity trusted internal callers use.
func SystemUser() *User {
	return &User{UserID: "system", System: true}
}

// Content is a plain Entity.
type Content struct {
	ContentID string   `json:"id"`
	Type      string   `json:"type"`
	Ancestors []string `json:"ancestors,omitempty"`
}

func (c *Content) ID() string              { return c.ContentID }
func (c *Content) TypeName() string        { return c.Type }
func (c *Content) AncestorTypes() []string { return c.Ancestors }
