package personnel

import (
	"time"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/shared/types"
)

// User is a member of the directory: staff or citizen
type User struct {
	ID         types.ID `json:"id"`
	Username   string   `json:"username"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	NationalID string   `json:"national_id,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Email      string   `json:"email,omitempty"`

	Superuser bool        `json:"superuser"`
	Active    bool        `json:"active"`
	Roles     []auth.Role `json:"roles"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal returns the authorization view of the user
func (u *User) Principal() auth.Principal {
	roles := make([]auth.Role, len(u.Roles))
	copy(roles, u.Roles)
	return auth.Principal{
		ID:        u.ID,
		Username:  u.Username,
		Roles:     roles,
		Superuser: u.Superuser,
	}
}

// FullName returns first and last name joined
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RoleInfo describes one role and the actions it grants
type RoleInfo struct {
	Name    auth.Role     `json:"name"`
	Rank    auth.Rank     `json:"rank"`
	Actions []auth.Action `json:"actions"`
}

// Profile is the caller's own view: identity, effective actions and rank
type Profile struct {
	Principal auth.Principal `json:"principal"`
	Actions   []auth.Action  `json:"actions"`
	Rank      auth.Rank      `json:"rank"`
}

// SetRolesRequest replaces a user's role set
type SetRolesRequest struct {
	Roles []string `json:"roles"`
}
