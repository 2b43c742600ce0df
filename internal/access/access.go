// Package access defines the authorization requirements a console route can
// carry and the roles a signed-in user can hold.
package access

type Role string
type Requirement string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

const (
	None          Requirement = "none"
	GuestOnly     Requirement = "guest-only"
	Authenticated Requirement = "requires-authentication"
	Admin         Requirement = "requires-authentication+admin"
)

// RoleOf maps session facts onto a role.
func RoleOf(loggedIn, isAdmin bool) Role {
	switch {
	case !loggedIn:
		return RoleAnonymous
	case isAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Allows reports whether role may enter a route tagged with req. GuestOnly is
// the only requirement that rejects a signed-in role.
func Allows(role Role, req Requirement) bool {
	switch req {
	case None:
		return true
	case GuestOnly:
		return role == RoleAnonymous
	case Authenticated:
		return role == RoleUser || role == RoleAdmin
	case Admin:
		return role == RoleAdmin
	default:
		return false
	}
}

func (r Requirement) NeedsSession() bool {
	return r == Authenticated || r == Admin
}

func (r Requirement) NeedsAdmin() bool {
	return r == Admin
}

func (r Requirement) GuestOnly() bool {
	return r == GuestOnly
}

// Normalize parses a requirement tag. Unknown tags are treated as
// Authenticated so a typo never opens a route to anonymous clients.
func Normalize(value string) Requirement {
	switch Requirement(value) {
	case None, GuestOnly, Authenticated, Admin:
		return Requirement(value)
	case "":
		return None
	default:
		return Authenticated
	}
}

// Inherit combines a parent shell requirement with a child's own tag. The
// stricter of the two wins.
func Inherit(parent, child Requirement) Requirement {
	if rank(child) >= rank(parent) {
		return child
	}
	return parent
}

func rank(r Requirement) int {
	switch r {
	case Admin:
		return 3
	case Authenticated:
		return 2
	case GuestOnly:
		return 1
	default:
		return 0
	}
}
