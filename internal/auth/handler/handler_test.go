package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/service"
	"masthead/internal/auth/store/otp"
	"masthead/internal/auth/store/role"
	"masthead/internal/auth/store/user"
	"masthead/internal/mfa"
	"masthead/internal/platform/middleware"
	"masthead/internal/ratelimit"
	"masthead/internal/rbac"
	"masthead/internal/token"
)

type recordingSender struct {
	lastCode  string
	lastReset string
}

func (c *recordingSender) SendVerificationCode(_ context.Context, _ string, code string) error {
	c.lastCode = code
	return nil
}

func (c *recordingSender) SendPasswordReset(_ context.Context, _ string, rawToken string) error {
	c.lastReset = rawToken
	return nil
}

type HandlerSuite struct {
	suite.Suite
	ctx    context.Context
	users  *user.InMemoryStore
	roles  *role.InMemoryStore
	sender *recordingSender
	svc    *service.Service
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

const testPassword = "Sturdy-Passw0rd!"

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.users = user.NewInMemoryStore()
	s.roles = role.NewInMemoryStore()
	s.sender = &recordingSender{}

	for _, r := range rbac.DefaultRoles() {
		seeded := r
		seeded.ID = uuid.New()
		s.Require().NoError(s.roles.Create(s.ctx, &seeded))
	}

	audits := audit.NewInMemoryStore()
	tokens := token.NewService("test-signing-key", 48*time.Hour, 30*24*time.Hour)
	engine := mfa.NewEngine("Masthead", []byte("0123456789abcdef0123456789abcdef"))
	s.svc = service.New(s.users, s.roles, otp.NewInMemoryStore(), tokens, engine,
		service.WithAudit(audits, audit.NewRecorder(audits, nil)),
		service.WithLoginLimiter(ratelimit.NewMemoryLimiter(1000, time.Minute)),
		service.WithSender(s.sender),
	)

	h := New(s.svc, tokens, []byte("0123456789abcdef0123456789abcdef"))
	s.router = chi.NewRouter()
	h.Mount(s.router)
}

func (s *HandlerSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) body(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *HandlerSuite) registerAndVerify(email, username string) map[string]any {
	rec := s.do(http.MethodPost, "/auth/register", map[string]any{
		"email": email, "username": username, "password": testPassword,
		"first_name": "Ada", "last_name": "Lovelace", "accepted_terms": true,
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/auth/verify-email", map[string]any{
		"email": email, "code": s.sender.lastCode,
	}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	return s.body(rec)
}

func (s *HandlerSuite) accessToken(result map[string]any) string {
	tokens, ok := result["tokens"].(map[string]any)
	s.Require().True(ok, "expected tokens in response")
	return tokens["access_token"].(string)
}

func (s *HandlerSuite) TestRegisterValidation() {
	rec := s.do(http.MethodPost, "/auth/register", map[string]any{
		"email": "not-an-email", "username": "ada", "password": "weak",
		"first_name": "Ada", "last_name": "Lovelace", "accepted_terms": true,
	}, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestLoginSetsSessionCookies() {
	s.registerAndVerify("ada@example.com", "ada")

	rec := s.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "ada@example.com", "password": testPassword,
	}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var access, refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case middleware.AccessTokenCookie:
			access = c
		case RefreshTokenCookie:
			refresh = c
		}
	}
	s.Require().NotNil(access)
	s.Require().NotNil(refresh)
	s.True(access.HttpOnly)
	s.Equal(http.SameSiteStrictMode, access.SameSite)
	s.True(refresh.HttpOnly)
}

func (s *HandlerSuite) TestLoginBadPassword() {
	s.registerAndVerify("ada@example.com", "ada")

	rec := s.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "ada@example.com", "password": "Wrong-Passw0rd!",
	}, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Empty(rec.Result().Cookies())
}

func (s *HandlerSuite) TestLockoutSurfacesRetryAfter() {
	s.registerAndVerify("ada@example.com", "ada")

	for i := 0; i < 5; i++ {
		s.do(http.MethodPost, "/auth/login", map[string]any{
			"email": "ada@example.com", "password": "Wrong-Passw0rd!",
		}, nil)
	}
	rec := s.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "ada@example.com", "password": testPassword,
	}, nil)
	s.Equal(http.StatusLocked, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))
}

func (s *HandlerSuite) TestProfileRequiresAuth() {
	rec := s.do(http.MethodGet, "/auth/profile", nil, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestProfileWithBearerToken() {
	result := s.registerAndVerify("ada@example.com", "ada")

	rec := s.do(http.MethodGet, "/auth/profile", nil, map[string]string{
		"Authorization": "Bearer " + s.accessToken(result),
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	userBody := s.body(rec)["user"].(map[string]any)
	s.Equal("ada@example.com", userBody["email"])
}

func (s *HandlerSuite) TestRefreshFromCookie() {
	result := s.registerAndVerify("ada@example.com", "ada")
	tokens := result["tokens"].(map[string]any)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: tokens["refresh_token"].(string)})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)
	refreshed := s.body(rec)["tokens"].(map[string]any)
	s.NotEqual(tokens["refresh_token"], refreshed["refresh_token"])
}

func (s *HandlerSuite) TestMenuForContributor() {
	result := s.registerAndVerify("ada@example.com", "ada")

	rec := s.do(http.MethodGet, "/auth/menu", nil, map[string]string{
		"Authorization": "Bearer " + s.accessToken(result),
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	menu := s.body(rec)["menu"].([]any)
	// Contributors hold content grants only; no admin sections appear.
	for _, item := range menu {
		s.NotEqual("Users", item.(map[string]any)["name"])
		s.NotEqual("Settings", item.(map[string]any)["name"])
	}
}

func (s *HandlerSuite) TestAdminRouteForbiddenForContributor() {
	result := s.registerAndVerify("ada@example.com", "ada")

	rec := s.do(http.MethodGet, "/admin/users", nil, map[string]string{
		"Authorization": "Bearer " + s.accessToken(result),
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestAdminSurface() {
	token := s.masterAdminToken()

	rec := s.do(http.MethodGet, "/admin/users", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotEmpty(s.body(rec)["users"])

	rec = s.do(http.MethodGet, "/admin/security/logs", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/admin/roles", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(s.body(rec)["roles"], 10)
}

func (s *HandlerSuite) TestAdminCreateAndDeleteUser() {
	adminToken := s.masterAdminToken()
	writers, err := s.roles.FindByName(s.ctx, "Staff Writers")
	s.Require().NoError(err)

	rec := s.do(http.MethodPost, "/admin/users", map[string]any{
		"email": "writer@example.com", "username": "writer", "password": testPassword,
		"first_name": "Mary", "last_name": "Shelley", "role_id": writers.ID,
	}, map[string]string{"Authorization": "Bearer " + adminToken})
	s.Require().Equal(http.StatusCreated, rec.Code)
	created := s.body(rec)["user"].(map[string]any)

	rec = s.do(http.MethodDelete, "/admin/users/"+created["id"].(string), nil,
		map[string]string{"Authorization": "Bearer " + adminToken})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/admin/users/"+created["id"].(string), nil,
		map[string]string{"Authorization": "Bearer " + adminToken})
	s.Equal(http.StatusNotFound, rec.Code)
}

// masterAdminToken seeds a wildcard-role account directly and logs it in.
func (s *HandlerSuite) masterAdminToken() string {
	master, err := s.roles.FindByName(s.ctx, rbac.MasterAdminRole)
	s.Require().NoError(err)

	bootstrap := &models.Principal{ID: uuid.New(), Email: "boot@example.com"}
	_, err = s.svc.AdminCreateUser(s.ctx, bootstrap, models.AdminCreateUserRequest{
		Email:     "chief@example.com",
		Username:  "chief",
		Password:  testPassword,
		FirstName: "Grace",
		LastName:  "Hopper",
		RoleID:    master.ID,
	})
	s.Require().NoError(err)

	rec := s.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "chief@example.com", "password": testPassword,
	}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	return s.accessToken(s.body(rec))
}
