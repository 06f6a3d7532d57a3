package domain

import "strings"

// User is an account identity. Enabled stays false until the owner proves
// control of the email address with an activation code.
type User struct {
	Id        int64
	Email     string
	PassHash  string
	FirstName string
	LastName  string
	Enabled   bool
	Locked    bool
	Roles     []Role
}

// FullName is the display name embedded in session claims and activation mail.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RoleNames returns the names of the user's roles.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Role is immutable reference data, created out of band (see migrations).
type Role struct {
	Id   int64
	Name string
}
