package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/service"
	"masthead/internal/platform/middleware"
	"masthead/internal/security"
	"masthead/internal/token"
	jsonWriter "masthead/internal/transport/http/json"
	"masthead/internal/transport/http/shared"
	dErrors "masthead/pkg/domain-errors"
	stringutil "masthead/pkg/string"
)

// RefreshTokenCookie carries the refresh token for browser clients.
const RefreshTokenCookie = "refresh_token"

// Handler serves the authentication, account, and admin HTTP surface.
type Handler struct {
	svc          *service.Service
	tokens       *token.Service
	csrfKey      []byte
	cookieSecure bool
	logger       *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithSecureCookies marks session cookies Secure; on in production.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) { h.cookieSecure = secure }
}

func New(svc *service.Service, tokens *token.Service, csrfKey []byte, opts ...Option) *Handler {
	h := &Handler{
		svc:     svc,
		tokens:  tokens,
		csrfKey: csrfKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount registers the public, authenticated, and admin routes.
func (h *Handler) Mount(r chi.Router) {
	authn := middleware.Authenticate(h.tokens, h.svc, h.logger)
	ev := h.svc.Evaluator()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/verify-email", h.verifyEmail)
		r.Post("/resend-code", h.resendCode)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.Post("/forgot-password", h.forgotPassword)
		r.Post("/reset-password", h.resetPassword)
		r.Get("/csrf", h.issueCSRF)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/logout", h.logout)
			r.Get("/profile", h.profile)
			r.Put("/profile", h.updateProfile)
			r.Put("/change-password", h.changePassword)
			r.Get("/menu", h.menu)
			r.Post("/mfa/setup", h.setupMFA)
			r.Post("/mfa/verify", h.verifyMFA)
			r.Post("/mfa/disable", h.disableMFA)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authn)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(ev, "users", "view"))
			r.Get("/users", h.listUsers)
			r.Get("/users/{id}", h.getUser)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(ev, "users", "manage"))
			r.Post("/users", h.createUser)
			r.Put("/users/{id}", h.updateUser)
			r.Delete("/users/{id}", h.deleteUser)
			r.Put("/users/bulk-roles", h.bulkUpdateRoles)
			r.Get("/users/{id}/role-history", h.roleHistory)
		})
		r.With(middleware.RequirePermission(ev, "system", "role_management")).
			Get("/roles", h.listRoles)
		r.With(middleware.RequirePermission(ev, "security", "view_logs")).
			Get("/security/logs", h.securityLogs)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	stringutil.Sanitize(dst)
	return true
}

func (h *Handler) clientIP(r *http.Request) string {
	return audit.ClientIP(r)
}

// setSessionCookies mirrors the token pair into HTTP-only cookies for
// browser clients. Non-cookie clients use the body values.
func (h *Handler) setSessionCookies(w http.ResponseWriter, tokens *models.TokenPair) {
	if tokens == nil {
		return
	}
	http.SetCookie(w, h.sessionCookie(middleware.AccessTokenCookie, tokens.AccessToken, h.tokens.AccessTTL()))
	http.SetCookie(w, h.sessionCookie(RefreshTokenCookie, tokens.RefreshToken, h.tokens.RefreshTTL()))
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.sessionCookie(middleware.AccessTokenCookie, "", -time.Second))
	http.SetCookie(w, h.sessionCookie(RefreshTokenCookie, "", -time.Second))
}

func (h *Handler) sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

// issueCSRF hands out the signed double-submit token: once as a cookie
// the browser sends back, once in the body for the client to echo in
// the header.
func (h *Handler) issueCSRF(w http.ResponseWriter, r *http.Request) {
	tokenValue, err := security.IssueCSRFToken(h.csrfKey)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     security.CSRFCookie,
		Value:    tokenValue,
		Path:     "/",
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": tokenValue})
}
