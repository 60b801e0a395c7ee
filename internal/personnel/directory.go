package personnel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Directory resolves principals and role holders for the rest of the
// platform. Cache failures degrade to database reads.
type Directory struct {
	store     Store
	cache     *PrincipalCache
	authority *auth.Authority
	logger    *zap.Logger
}

// NewDirectory creates a directory over store. cache may be nil.
func NewDirectory(store Store, cache *PrincipalCache, authority *auth.Authority, logger *zap.Logger) *Directory {
	return &Directory{store: store, cache: cache, authority: authority, logger: logger}
}

// Authority returns the role table the directory checks against
func (d *Directory) Authority() *auth.Authority {
	return d.authority
}

// Principal resolves the current roles of an active user
func (d *Directory) Principal(ctx context.Context, id types.ID) (auth.Principal, error) {
	if p, ok, err := d.cache.Get(ctx, id); err != nil {
		d.logger.Warn("principal cache read failed", zap.Error(err), zap.String("user_id", id.String()))
	} else if ok {
		return p, nil
	}

	user, err := d.store.GetUser(ctx, id)
	if err != nil {
		return auth.Principal{}, err
	}
	if !user.Active {
		return auth.Principal{}, errors.Unauthenticated("user is inactive")
	}

	p := user.Principal()
	if err := d.cache.Set(ctx, p); err != nil {
		d.logger.Warn("principal cache write failed", zap.Error(err), zap.String("user_id", id.String()))
	}
	return p, nil
}

// HoldersOf returns the active users holding any of roles
func (d *Directory) HoldersOf(ctx context.Context, roles []auth.Role) ([]types.ID, error) {
	return d.store.HoldersOf(ctx, roles)
}

// HoldersOfAction returns the active users whose roles grant action
func (d *Directory) HoldersOfAction(ctx context.Context, action auth.Action) ([]types.ID, error) {
	return d.store.HoldersOf(ctx, d.authority.RolesGranting(action))
}

// Profile returns the caller's principal with effective actions and rank
func (d *Directory) Profile(p auth.Principal) Profile {
	return Profile{
		Principal: p,
		Actions:   d.authority.Actions(p),
		Rank:      auth.PrincipalRank(p),
	}
}

// Roles lists the role table
func (d *Directory) Roles() []RoleInfo {
	grants := make(map[auth.Role][]auth.Action)
	for _, g := range d.authority.Grants() {
		role := auth.Role(g.Role)
		grants[role] = append(grants[role], auth.Action(g.Action))
	}

	roles := d.authority.Roles()
	out := make([]RoleInfo, 0, len(roles))
	for _, role := range roles {
		actions := grants[role]
		if actions == nil {
			actions = []auth.Action{}
		}
		out = append(out, RoleInfo{Name: role, Rank: auth.RankOf(role), Actions: actions})
	}
	return out
}

// SetRoles replaces a user's roles. Requires rbac.manage.
func (d *Directory) SetRoles(ctx context.Context, actor auth.Principal, userID types.ID, names []string) (*User, error) {
	if err := d.authority.Authorize(actor, auth.ActionRBACManage); err != nil {
		return nil, err
	}

	roles := make([]auth.Role, 0, len(names))
	for _, name := range names {
		role := auth.Role(name).Normalize()
		if !d.authority.HasRole(role) {
			return nil, errors.Validation("unknown role", map[string]string{"role": name})
		}
		roles = append(roles, role)
	}
	roles = withBaseRole(roles)

	if err := d.store.SetRoles(ctx, userID, roles, actor.ID); err != nil {
		return nil, err
	}
	if err := d.cache.Invalidate(ctx, userID); err != nil {
		d.logger.Warn("principal cache invalidation failed", zap.Error(err), zap.String("user_id", userID.String()))
	}

	d.logger.Info("roles updated",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.Int("roles", len(roles)),
	)
	return d.store.GetUser(ctx, userID)
}

// NewUserInput holds the fields for registering a user
type NewUserInput struct {
	Username   string
	FirstName  string
	LastName   string
	NationalID string
	Phone      string
	Email      string
	Superuser  bool
	Roles      []auth.Role
}

// CreateUser registers a user. Used by the CLI bootstrap.
func (d *Directory) CreateUser(ctx context.Context, in NewUserInput) (*User, error) {
	if in.Username == "" {
		return nil, errors.Validation("username is required", map[string]string{"username": "required"})
	}
	now := time.Now()
	user := &User{
		ID:         types.NewID(),
		Username:   in.Username,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		NationalID: in.NationalID,
		Phone:      in.Phone,
		Email:      in.Email,
		Superuser:  in.Superuser,
		Active:     true,
		Roles:      withBaseRole(in.Roles),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// withBaseRole makes sure every account keeps the base user role, which is
// what lets any registered person file a complaint.
func withBaseRole(roles []auth.Role) []auth.Role {
	for _, role := range roles {
		if role.Normalize() == auth.RoleBaseUser {
			return roles
		}
	}
	out := make([]auth.Role, 0, len(roles)+1)
	out = append(out, auth.RoleBaseUser)
	return append(out, roles...)
}

// LoadAuthority builds the role table from storage, falling back to the
// built-in defaults when none has been seeded.
func LoadAuthority(ctx context.Context, store Store) (*auth.Authority, error) {
	grants, err := store.LoadGrants(ctx)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return auth.DefaultAuthority(), nil
	}
	authority, err := auth.AuthorityFromGrants(grants)
	if err != nil {
		return nil, errors.Wrap(err, "invalid role table")
	}
	return authority, nil
}

// SeedDefaultRoles writes the built-in role table
func SeedDefaultRoles(ctx context.Context, store Store) error {
	authority := auth.DefaultAuthority()
	return store.SeedRoles(ctx, authority.Roles(), authority.Grants())
}
