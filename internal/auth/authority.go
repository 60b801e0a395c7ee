package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/metrics"
)

// Grant is one (role, action) row of the role table as stored.
type Grant struct {
	Role   string
	Action string
}

// Authority answers whether a principal may perform an action. It is built
// once at startup and never mutated, so it is safe for concurrent use.
type Authority struct {
	grants map[Role]ActionSet
}

// NewAuthority builds an authority from a role table.
func NewAuthority(table map[Role][]Action) *Authority {
	grants := make(map[Role]ActionSet, len(table))
	for role, actions := range table {
		key := role.Normalize()
		set, ok := grants[key]
		if !ok {
			set = make(ActionSet, len(actions))
			grants[key] = set
		}
		for _, a := range actions {
			set[a] = struct{}{}
		}
	}
	return &Authority{grants: grants}
}

// DefaultAuthority builds an authority from DefaultRoleActions.
func DefaultAuthority() *Authority {
	return NewAuthority(DefaultRoleActions)
}

// AuthorityFromGrants builds an authority from stored rows, rejecting any
// action token outside the known set.
func AuthorityFromGrants(rows []Grant) (*Authority, error) {
	table := make(map[Role][]Action)
	for _, row := range rows {
		role := Role(row.Role).Normalize()
		if row.Action == "" {
			if _, ok := table[role]; !ok {
				table[role] = nil
			}
			continue
		}
		a, err := ParseAction(row.Action)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", row.Role, err)
		}
		table[role] = append(table[role], a)
	}
	return NewAuthority(table), nil
}

// HasAction reports whether p may perform a. Superusers hold every action;
// everyone else holds the union of their roles' actions.
func (a *Authority) HasAction(p Principal, action Action) bool {
	if p.Superuser {
		return true
	}
	for _, role := range p.Roles {
		if a.grants[role.Normalize()].Has(action) {
			return true
		}
	}
	return false
}

// HasAnyAction reports whether p holds at least one of actions.
func (a *Authority) HasAnyAction(p Principal, actions ...Action) bool {
	for _, action := range actions {
		if a.HasAction(p, action) {
			return true
		}
	}
	return false
}

// Authorize returns an Unauthorized error unless p holds action.
func (a *Authority) Authorize(p Principal, action Action) error {
	allowed := a.HasAction(p, action)
	metrics.RecordAuthorizationDecision(string(action), allowed)
	if !allowed {
		return errors.Unauthorized(string(action))
	}
	return nil
}

// AuthorizeAny returns an Unauthorized error unless p holds one of actions.
func (a *Authority) AuthorizeAny(p Principal, actions ...Action) error {
	for _, action := range actions {
		if a.HasAction(p, action) {
			metrics.RecordAuthorizationDecision(string(action), true)
			return nil
		}
	}
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = string(action)
	}
	metrics.RecordAuthorizationDecision(names[0], false)
	return errors.Unauthorized(strings.Join(names, "|"))
}

// Actions returns the effective action set of p.
func (a *Authority) Actions(p Principal) []Action {
	if p.Superuser {
		return AllActions()
	}
	set := make(ActionSet)
	for _, role := range p.Roles {
		for action := range a.grants[role.Normalize()] {
			set[action] = struct{}{}
		}
	}
	return set.Sorted()
}

// RolesGranting returns the roles that grant action, used to find the
// recipients of a notification fan-out.
func (a *Authority) RolesGranting(action Action) []Role {
	var roles []Role
	for role, set := range a.grants {
		if set.Has(action) {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Grants flattens the role table into rows for seeding.
func (a *Authority) Grants() []Grant {
	var rows []Grant
	for role, set := range a.grants {
		for _, action := range set.Sorted() {
			rows = append(rows, Grant{Role: string(role), Action: string(action)})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Role != rows[j].Role {
			return rows[i].Role < rows[j].Role
		}
		return rows[i].Action < rows[j].Action
	})
	return rows
}

// Roles returns every role known to the authority, including roles with no
// actions.
func (a *Authority) Roles() []Role {
	roles := make([]Role, 0, len(a.grants))
	for role := range a.grants {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// HasRole reports whether role is part of the role table.
func (a *Authority) HasRole(role Role) bool {
	_, ok := a.grants[role]
	return ok
}
