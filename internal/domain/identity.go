package domain

// Role is the authorization role carried by a verified identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps an identity-provider role string to a Role.
// Unknown values degrade to RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}

	return RoleUser
}

// Actor is the verified identity performing an operation.
// It is produced by the identity provider and never by the core itself.
type Actor struct {
	UserID   string
	Username string
	Role     Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Authenticated reports whether the actor carries a user id.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// DisplayName returns the username, falling back to the user id.
func (a Actor) DisplayName() string {
	if a.Username != "" {
		return a.Username
	}

	return a.UserID
}

// CanModerate reports whether the actor may delete content owned by authorID.
func (a Actor) CanModerate(authorID string) bool {
	return a.UserID == authorID || a.IsAdmin()
}

// RequireAuthenticated returns ErrUnauthorized when the actor is anonymous.
func (a Actor) RequireAuthenticated() error {
	if !a.Authenticated() {
		return NewUnauthorizedError("no verified identity")
	}

	return nil
}
