package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz "github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/shared/config"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

type staticResolver map[types.ID]authz.Principal

func (s staticResolver) Principal(ctx context.Context, id types.ID) (authz.Principal, error) {
	p, ok := s[id]
	if !ok {
		return authz.Principal{}, errors.NotFound("user", id.String())
	}
	return p, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "test-secret", Issuer: "citypd"}
}

func TestMiddleware(t *testing.T) {
	cfg := testAuthConfig()
	sergeant := authz.Principal{ID: types.NewID(), Username: "sgt", Roles: []authz.Role{authz.RoleSergeant}}
	resolver := staticResolver{sergeant.ID: sergeant}

	var seen authz.Principal
	handler := Middleware(cfg, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := IssueToken(cfg, sergeant.ID, "sgt", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(cfg, sergeant.ID, "sgt", -time.Minute)
	require.NoError(t, err)
	unknown, err := IssueToken(cfg, types.NewID(), "ghost", time.Hour)
	require.NoError(t, err)
	foreign, err := IssueToken(config.AuthConfig{JWTSecret: "other", Issuer: "citypd"}, sergeant.ID, "sgt", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"unknown user", "Bearer " + unknown, http.StatusUnauthorized},
		{"wrong key", "Bearer " + foreign, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, sergeant.ID, seen.ID)
	assert.True(t, seen.HasRole(authz.RoleSergeant))
}

func TestRequireActions(t *testing.T) {
	authority := authz.DefaultAuthority()
	handler := RequireActions(authority, authz.ActionRBACManage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(ctx context.Context) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	admin := authz.Principal{ID: types.NewID(), Roles: []authz.Role{authz.RoleAdministrator}}
	cadet := authz.Principal{ID: types.NewID(), Roles: []authz.Role{authz.RoleCadet}}

	assert.Equal(t, http.StatusUnauthorized, serve(context.Background()))
	assert.Equal(t, http.StatusForbidden, serve(WithPrincipal(context.Background(), cadet)))
	assert.Equal(t, http.StatusOK, serve(WithPrincipal(context.Background(), admin)))
}
