package models

import "slices"

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleEducator UserRole = "educator"
	RoleAdmin    UserRole = "admin"
)

// UnknownName is reported for universities and educators that cannot be resolved.
const UnknownName = "Unknown"

// User is the identity view consumed by the attempt service. Users live in the
// identity provider; nothing here is persisted locally.
type User struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Roles       []UserRole `json:"roles"`
	University  string     `json:"university"`
}

func (u *User) HasRole(role UserRole) bool {
	return slices.Contains(u.Roles, role)
}

// PrimaryRole returns admin over educator over student.
func (u *User) PrimaryRole() UserRole {
	switch {
	case u.HasRole(RoleAdmin):
		return RoleAdmin
	case u.HasRole(RoleEducator):
		return RoleEducator
	default:
		return RoleStudent
	}
}

// UniversityOrUnknown buckets empty universities under UnknownName.
func (u *User) UniversityOrUnknown() string {
	if u == nil || u.University == "" {
		return UnknownName
	}
	return u.University
}
