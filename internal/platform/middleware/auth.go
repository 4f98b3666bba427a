package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"masthead/internal/auth/models"
	"masthead/internal/token"
	httpError "masthead/internal/transport/http/shared"
	dErrors "masthead/pkg/domain-errors"
)

// AccessTokenCookie is the cookie that carries the access token for browser
// clients. Bearer headers take precedence when both are present.
const AccessTokenCookie = "access_token"

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*token.AccessClaims, error)
}

// PrincipalLoader resolves the authenticated account with its role grants.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID uuid.UUID) (*models.Principal, error)
}

type principalKey struct{}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*models.Principal)
	return p, ok
}

// Authenticate validates the access token on each request and loads the
// principal into the context. Requests without a valid token get 401.
func Authenticate(verifier TokenVerifier, loader PrincipalLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := bearerToken(r)
			if raw == "" {
				httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			principal, err := loader.LoadPrincipal(ctx, userID)
			if err != nil {
				logger.WarnContext(ctx, "principal load failed",
					"error", err,
					"user_id", claims.UserID,
					"request_id", GetRequestID(ctx),
				)
				httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "account no longer valid"))
				return
			}
			if !principal.Active {
				httpError.WriteError(w, dErrors.New(dErrors.CodeForbidden, "account is deactivated"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
		return ""
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
