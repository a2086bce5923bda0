// models/role.go
package models

import "strings"

// Role is the closed set of access levels. The identity provider has been
// observed to emit mixed-case role strings, so every role entering the
// system must pass through ParseRole once; downstream code compares Role
// values, never raw strings.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// ParseRole normalizes an upstream role string. Unknown values fall back
// to viewer (least privilege).
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "editor":
		return RoleEditor
	case "viewer":
		return RoleViewer
	default:
		return RoleViewer
	}
}

// CanUpload reports whether the role may create new assets.
func (r Role) CanUpload() bool {
	return r == RoleAdmin || r == RoleEditor
}

// CanResolve reports whether the role may approve or reject pending
// versions. Only admins sit on the review queue.
func (r Role) CanResolve() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
