package personnel

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Store persists users, role assignments and the role table
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id types.ID) (*User, error)
	SetRoles(ctx context.Context, userID types.ID, roles []auth.Role, assignedBy types.ID) error
	HoldersOf(ctx context.Context, roles []auth.Role) ([]types.ID, error)
	LoadGrants(ctx context.Context) ([]auth.Grant, error)
	SeedRoles(ctx context.Context, roles []auth.Role, grants []auth.Grant) error
}

// Repository provides database operations for the personnel directory
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new personnel repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser creates a new user with its roles
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO personnel.users (
			id, username, first_name, last_name, national_id, phone, email,
			superuser, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName, user.NationalID, user.Phone, user.Email,
		user.Superuser, user.Active, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("user with this username or national id already exists")
		}
		return errors.Wrap(err, "failed to create user")
	}

	if err := insertRoles(ctx, tx, user.ID, user.Roles, ""); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// GetUser retrieves a user and its roles
func (r *Repository) GetUser(ctx context.Context, id types.ID) (*User, error) {
	query := `
		SELECT id, username, first_name, last_name, COALESCE(national_id, ''), phone, email,
			superuser, active, created_at, updated_at
		FROM personnel.users
		WHERE id = $1`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.NationalID, &user.Phone, &user.Email,
		&user.Superuser, &user.Active, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}

	rows, err := r.pool.Query(ctx, `SELECT role FROM personnel.user_roles WHERE user_id = $1 ORDER BY role`, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user roles")
	}
	defer rows.Close()

	user.Roles = []auth.Role{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, errors.Wrap(err, "failed to scan role")
		}
		user.Roles = append(user.Roles, auth.Role(role))
	}
	return user, rows.Err()
}

// SetRoles replaces the user's role set
func (r *Repository) SetRoles(ctx context.Context, userID types.ID, roles []auth.Role, assignedBy types.ID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM personnel.users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return errors.Wrap(err, "failed to check user")
	}
	if !exists {
		return errors.NotFound("user", userID.String())
	}

	if _, err := tx.Exec(ctx, `DELETE FROM personnel.user_roles WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "failed to clear roles")
	}
	if err := insertRoles(ctx, tx, userID, roles, assignedBy); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE personnel.users SET updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return errors.Wrap(err, "failed to touch user")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func insertRoles(ctx context.Context, tx pgx.Tx, userID types.ID, roles []auth.Role, assignedBy types.ID) error {
	for _, role := range roles {
		_, err := tx.Exec(ctx, `
			INSERT INTO personnel.user_roles (user_id, role, assigned_by)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, role) DO NOTHING`,
			userID, string(role.Normalize()), assignedBy,
		)
		if err != nil {
			if strings.Contains(err.Error(), "foreign key") {
				return errors.Validation("unknown role", map[string]string{"role": string(role)})
			}
			return errors.Wrap(err, "failed to assign role")
		}
	}
	return nil
}

// HoldersOf returns active users holding any of roles
func (r *Repository) HoldersOf(ctx context.Context, roles []auth.Role) ([]types.ID, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role.Normalize())
	}

	query := `
		SELECT DISTINCT u.id
		FROM personnel.user_roles ur
		JOIN personnel.users u ON u.id = ur.user_id
		WHERE u.active AND ur.role = ANY($1::text[])
		ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list role holders")
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id types.ID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan user id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadGrants returns every (role, action) row of the role table
func (r *Repository) LoadGrants(ctx context.Context) ([]auth.Grant, error) {
	query := `
		SELECT r.name, COALESCE(ra.action, '')
		FROM personnel.roles r
		LEFT JOIN personnel.role_actions ra ON ra.role = r.name
		ORDER BY r.name, ra.action`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load role table")
	}
	defer rows.Close()

	var grants []auth.Grant
	for rows.Next() {
		var g auth.Grant
		if err := rows.Scan(&g.Role, &g.Action); err != nil {
			return nil, errors.Wrap(err, "failed to scan grant")
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// SeedRoles inserts missing roles and grants. Existing rows are kept.
func (r *Repository) SeedRoles(ctx context.Context, roles []auth.Role, grants []auth.Grant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	for _, role := range roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO personnel.roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			string(role.Normalize()),
		); err != nil {
			return errors.Wrap(err, "failed to seed role")
		}
	}
	for _, g := range grants {
		if _, err := tx.Exec(ctx,
			`INSERT INTO personnel.role_actions (role, action) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			g.Role, g.Action,
		); err != nil {
			return errors.Wrap(err, "failed to seed grant")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[types.ID]*User
	roles  map[auth.Role]struct{}
	grants map[auth.Grant]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[types.ID]*User),
		roles:  make(map[auth.Role]struct{}),
		grants: make(map[auth.Grant]struct{}),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username ||
			(user.NationalID != "" && existing.NationalID == user.NationalID) {
			return errors.Conflict("user with this username or national id already exists")
		}
	}
	if _, ok := s.users[user.ID]; ok {
		return errors.Conflict("user already exists")
	}
	stored := *user
	stored.Roles = normalizeRoles(user.Roles)
	s.users[user.ID] = &stored
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id types.ID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, errors.NotFound("user", id.String())
	}
	out := *user
	out.Roles = append([]auth.Role{}, user.Roles...)
	return &out, nil
}

func (s *MemoryStore) SetRoles(ctx context.Context, userID types.ID, roles []auth.Role, assignedBy types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return errors.NotFound("user", userID.String())
	}
	if len(s.roles) > 0 {
		for _, role := range roles {
			if _, known := s.roles[role.Normalize()]; !known {
				return errors.Validation("unknown role", map[string]string{"role": string(role)})
			}
		}
	}
	user.Roles = normalizeRoles(roles)
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) HoldersOf(ctx context.Context, roles []auth.Role) ([]types.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []types.ID
	for id, user := range s.users {
		if user.Active && auth.HasAnyRole(user.Roles, roles...) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) LoadGrants(ctx context.Context) ([]auth.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var grants []auth.Grant
	granted := make(map[string]bool)
	for g := range s.grants {
		grants = append(grants, g)
		granted[g.Role] = true
	}
	for role := range s.roles {
		if !granted[string(role)] {
			grants = append(grants, auth.Grant{Role: string(role)})
		}
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Role != grants[j].Role {
			return grants[i].Role < grants[j].Role
		}
		return grants[i].Action < grants[j].Action
	})
	return grants, nil
}

func (s *MemoryStore) SeedRoles(ctx context.Context, roles []auth.Role, grants []auth.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, role := range roles {
		s.roles[role.Normalize()] = struct{}{}
	}
	for _, g := range grants {
		s.grants[g] = struct{}{}
	}
	return nil
}

func normalizeRoles(roles []auth.Role) []auth.Role {
	seen := make(map[auth.Role]struct{}, len(roles))
	out := make([]auth.Role, 0, len(roles))
	for _, role := range roles {
		n := role.Normalize()
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
