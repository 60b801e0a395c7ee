package personnel

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newTestDirectory(t *testing.T, cache *PrincipalCache) (*Directory, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, SeedDefaultRoles(context.Background(), store))
	authority, err := LoadAuthority(context.Background(), store)
	require.NoError(t, err)
	return NewDirectory(store, cache, authority, zap.NewNop()), store
}

func createUser(t *testing.T, d *Directory, username string, roles ...auth.Role) *User {
	t.Helper()
	user, err := d.CreateUser(context.Background(), NewUserInput{Username: username, Roles: roles})
	require.NoError(t, err)
	return user
}

func TestLoadAuthority(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to defaults when empty", func(t *testing.T) {
		authority, err := LoadAuthority(ctx, NewMemoryStore())
		require.NoError(t, err)
		assert.ElementsMatch(t, auth.DefaultAuthority().Grants(), authority.Grants())
	})

	t.Run("seeded table keeps action-less roles", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, SeedDefaultRoles(ctx, store))
		authority, err := LoadAuthority(ctx, store)
		require.NoError(t, err)
		assert.Contains(t, authority.Roles(), auth.RoleSuspect)
		assert.ElementsMatch(t, auth.DefaultAuthority().Grants(), authority.Grants())
	})

	t.Run("rejects unknown actions", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.SeedRoles(ctx, []auth.Role{auth.RoleCadet}, []auth.Grant{{Role: "cadet", Action: "case.teleport"}}))
		_, err := LoadAuthority(ctx, store)
		assert.Error(t, err)
	})
}

func TestDirectory_Principal(t *testing.T) {
	d, store := newTestDirectory(t, nil)
	ctx := context.Background()

	sergeant := createUser(t, d, "sgt.hale", "Sergeant")

	p, err := d.Principal(ctx, sergeant.ID)
	require.NoError(t, err)
	assert.Equal(t, []auth.Role{auth.RoleBaseUser, auth.RoleSergeant}, p.Roles)
	assert.Equal(t, "sgt.hale", p.Username)

	_, err = d.Principal(ctx, types.NewID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	store.users[sergeant.ID].Active = false
	_, err = d.Principal(ctx, sergeant.ID)
	assert.True(t, errors.Is(err, errors.ErrUnauthenticated))
}

func TestDirectory_PrincipalCache(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewPrincipalCache(client, time.Minute)
	d, _ := newTestDirectory(t, cache)
	ctx := context.Background()

	admin := createUser(t, d, "admin", auth.RoleAdministrator)
	cadet := createUser(t, d, "cadet.ross", auth.RoleCadet)

	_, err := d.Principal(ctx, cadet.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("principal:"+cadet.ID.String()))
	assert.Equal(t, time.Minute, mr.TTL("principal:"+cadet.ID.String()))

	adminPrincipal, err := d.Principal(ctx, admin.ID)
	require.NoError(t, err)

	_, err = d.SetRoles(ctx, adminPrincipal, cadet.ID, []string{"patrol officer"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("principal:"+cadet.ID.String()))

	p, err := d.Principal(ctx, cadet.ID)
	require.NoError(t, err)
	assert.Equal(t, []auth.Role{auth.RoleBaseUser, auth.RolePatrolOfficer}, p.Roles)
}

func TestDirectory_CacheOutageFallsBack(t *testing.T) {
	mr, client := setupTestRedis(t)
	d, _ := newTestDirectory(t, NewPrincipalCache(client, time.Minute))
	user := createUser(t, d, "det.cole", auth.RoleDetective)

	mr.Close()

	p, err := d.Principal(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, p.HasRole(auth.RoleDetective))
}

func TestDirectory_SetRoles(t *testing.T) {
	d, _ := newTestDirectory(t, nil)
	ctx := context.Background()

	admin := createUser(t, d, "admin", auth.RoleAdministrator).Principal()
	captain := createUser(t, d, "cpt.vance", auth.RoleCaptain).Principal()
	target := createUser(t, d, "new.recruit", auth.RoleBaseUser)

	_, err := d.SetRoles(ctx, captain, target.ID, []string{"cadet"})
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	_, err = d.SetRoles(ctx, admin, target.ID, []string{"wizard"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = d.SetRoles(ctx, admin, types.NewID(), []string{"cadet"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	user, err := d.SetRoles(ctx, admin, target.ID, []string{"Cadet", "base user"})
	require.NoError(t, err)
	assert.Equal(t, []auth.Role{auth.RoleBaseUser, auth.RoleCadet}, user.Roles)
}

func TestDirectory_HoldersOfAction(t *testing.T) {
	d, store := newTestDirectory(t, nil)
	ctx := context.Background()

	captain := createUser(t, d, "cpt.vance", auth.RoleCaptain)
	createUser(t, d, "det.cole", auth.RoleDetective)
	retired := createUser(t, d, "cpt.old", auth.RoleCaptain)
	store.users[retired.ID].Active = false

	ids, err := d.HoldersOfAction(ctx, auth.ActionInterrogationCaptainDecision)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{captain.ID}, ids)
}

func TestDirectory_ProfileAndRoles(t *testing.T) {
	d, _ := newTestDirectory(t, nil)

	chief := createUser(t, d, "chief.moss", auth.RoleChief).Principal()
	profile := d.Profile(chief)
	assert.Equal(t, auth.RankOf(auth.RoleChief), profile.Rank)
	assert.Contains(t, profile.Actions, auth.ActionInterrogationChiefReview)

	var names []auth.Role
	for _, info := range d.Roles() {
		names = append(names, info.Name)
		assert.NotNil(t, info.Actions)
	}
	assert.Contains(t, names, auth.RoleCriminal)
}

func TestDirectory_CreateUser(t *testing.T) {
	d, _ := newTestDirectory(t, nil)

	_, err := d.CreateUser(context.Background(), NewUserInput{})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	createUser(t, d, "dup")
	_, err = d.CreateUser(context.Background(), NewUserInput{Username: "dup"})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestDirectory_EveryAccountKeepsBaseRole(t *testing.T) {
	d, _ := newTestDirectory(t, nil)
	ctx := context.Background()

	fresh := createUser(t, d, "fresh.citizen")
	p, err := d.Principal(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, []auth.Role{auth.RoleBaseUser}, p.Roles)
	assert.True(t, d.authority.HasAction(p, auth.ActionCaseSubmitComplaint))

	officer := createUser(t, d, "po.reyes", auth.RolePoliceOfficer)
	p, err = d.Principal(ctx, officer.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []auth.Role{auth.RoleBaseUser, auth.RolePoliceOfficer}, p.Roles)
	assert.True(t, d.authority.HasAction(p, auth.ActionCaseSubmitComplaint))

	admin := createUser(t, d, "admin", auth.RoleAdministrator).Principal()
	user, err := d.SetRoles(ctx, admin, officer.ID, []string{"detective"})
	require.NoError(t, err)
	assert.Equal(t, []auth.Role{auth.RoleBaseUser, auth.RoleDetective}, user.Roles)
}
