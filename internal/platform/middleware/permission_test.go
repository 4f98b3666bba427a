package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"masthead/internal/auth/models"
	"masthead/internal/rbac"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func editorPrincipal() *models.Principal {
	return &models.Principal{
		ID:          uuid.New(),
		Email:       "editor@example.com",
		Active:      true,
		RoleName:    "Editor",
		AccessLevel: 5,
		Grants: []models.Permission{
			{Resource: "content", Action: "view"},
			{Resource: "content", Action: "manage"},
		},
	}
}

func serveWith(t *testing.T, mw func(http.Handler) http.Handler, p *models.Principal) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), p))
	}
	mw(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestRequirePermission(t *testing.T) {
	ev := rbac.NewEvaluator()

	rec := serveWith(t, RequirePermission(ev, "content", "manage"), editorPrincipal())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveWith(t, RequirePermission(ev, "users", "manage"), editorPrincipal())
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "users.manage")

	rec = serveWith(t, RequirePermission(ev, "content", "view"), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermissionWildcard(t *testing.T) {
	ev := rbac.NewEvaluator()
	admin := editorPrincipal()
	admin.Wildcard = true
	admin.Grants = nil

	rec := serveWith(t, RequirePermission(ev, "system", "site_config"), admin)
	require.Equal(t, http.StatusOK, rec.Code)
}
