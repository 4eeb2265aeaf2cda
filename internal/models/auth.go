package models

import "strings"

const (
	StoreUsersPath = "users"

	// SuperAdminEmail is always treated as an admin and super admin, with or without a record
	// in the admin registry.
	SuperAdminEmail = "kknotes.admin@gmail.com"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Identity is the user as reported by the identity provider. It is immutable for the lifetime
// of a sign-in.
type Identity struct {
	ID          string `json:"id" mapstructure:"id"`
	Email       string `json:"email" mapstructure:"email"`
	DisplayName string `json:"displayName" mapstructure:"displayName"`
	AvatarURL   string `json:"avatarUrl" mapstructure:"avatarUrl"`
}

// Session is the resolved authentication and role state for one identity. A Session is never
// modified after it is built; a new identity event produces a new Session.
type Session struct {
	Identity      *Identity `json:"identity,omitempty"`
	Authenticated bool      `json:"authenticated"`
	IsAdmin       bool      `json:"isAdmin"`
	IsSuperAdmin  bool      `json:"isSuperAdmin"`
}

// Email returns the session's normalized email, or "" for an anonymous session.
func (s Session) Email() string {
	if s.Identity == nil {
		return ""
	}
	return NormalizeEmail(s.Identity.Email)
}

// Profile is the record kept under users/{id} for every identity that has signed in.
type Profile struct {
	DisplayName string `json:"displayName" mapstructure:"displayName"`
	Email       string `json:"email" mapstructure:"email"`
	PhotoURL    string `json:"photoURL" mapstructure:"photoURL"`
	Role        Role   `json:"role" mapstructure:"role"`
	CreatedAt   int64  `json:"createdAt" mapstructure:"createdAt"`
	LastLogin   int64  `json:"lastLogin" mapstructure:"lastLogin"`
}

// User is a Profile together with its identity ID.
type User struct {
	*Profile
	ID string `json:"id" mapstructure:"id"`
}

// NormalizeEmail returns the canonical form used for every email comparison and write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsSuperAdminEmail reports whether email is the hardcoded super admin.
func IsSuperAdminEmail(email string) bool {
	return email != "" && NormalizeEmail(email) == SuperAdminEmail
}
