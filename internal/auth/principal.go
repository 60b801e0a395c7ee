package auth

import "github.com/citypd/platform/internal/shared/types"

// Principal is the authenticated actor of an operation. Core operations
// take it as an explicit argument.
type Principal struct {
	ID        types.ID `json:"id"`
	Username  string   `json:"username,omitempty"`
	Roles     []Role   `json:"roles"`
	Superuser bool     `json:"superuser"`
}

// HasRole reports whether the principal holds role (case-insensitive).
func (p Principal) HasRole(role Role) bool {
	return HasAnyRole(p.Roles, role)
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p.ID.IsZero()
}
