package domain

import "strings"

const (
	RoleAdmin       = "admin"
	DefaultUserName = "you"
)

// Identity is the caller as asserted by the upstream authentication layer. It is trusted verbatim.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func NewIdentity(id, name, email, role string) Identity {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultUserName
	}
	return Identity{
		ID:    strings.TrimSpace(id),
		Name:  name,
		Email: strings.TrimSpace(email),
		Role:  strings.ToLower(strings.TrimSpace(role)),
	}
}

func (i Identity) IsAuthenticated() bool {
	return i.ID != "" || i.Email != ""
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// OwnsByEmail is the ownership rule used for cancellation.
func (i Identity) OwnsByEmail(o *Order) bool {
	return i.Email != "" && i.Email == o.Email
}

// Owns matches either email or user id, as order listing does.
func (i Identity) Owns(o *Order) bool {
	return i.OwnsByEmail(o) || (i.ID != "" && i.ID == o.UserID)
}
