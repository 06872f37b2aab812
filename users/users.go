package users

import (
	"fmt"
	"strings"
	"time"
)

// Role is the marketplace role carried by an identity record
type Role string

const (
	RoleUser        Role = "USER"
	RoleHost        Role = "HOST"
	RoleAdmin       Role = "ADMIN"
	RolePendingHost Role = "PENDING_HOST" // Host registration awaiting admin approval, never granted a session
)

// ParseRole normalises a role string. Unknown roles are rejected.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleHost, RoleAdmin, RolePendingHost:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	return string(r)
}

// Registrable reports whether a new account may ask for this role.
func (r Role) Registrable() bool {
	return r == RoleUser || r == RoleHost
}

// Identity is the user record stored next to the credential. It mirrors the
// login response minus the token.
type Identity struct {
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"createdAt"` // Server formatted, kept verbatim
}

// FullName joins first and last name, falling back to the email.
func (i Identity) FullName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

// Created parses CreatedAt when the server sent an RFC 3339 or ISO local timestamp.
func (i Identity) Created() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, i.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Profile is the body of GET /auth/profile
type Profile struct {
	ID        int64  `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// PendingHost is an entry of GET /admin/pending-hosts
type PendingHost struct {
	UserID    int64  `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (p PendingHost) FullName() string {
	return Identity{FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}.FullName()
}
