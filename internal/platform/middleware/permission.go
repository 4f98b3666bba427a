package middleware

import (
	"fmt"
	"net/http"

	"masthead/internal/rbac"
	httpError "masthead/internal/transport/http/shared"
	dErrors "masthead/pkg/domain-errors"
)

// RequirePermission gates a route on an explicit (resource, action) grant.
// Must run after Authenticate. The forbidden response names the missing
// grant so operators can fix the role instead of guessing.
func RequirePermission(ev *rbac.Evaluator, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !ev.Has(principal, resource, action) {
				httpError.WriteError(w, dErrors.New(dErrors.CodeForbidden,
					fmt.Sprintf("access denied, requires permission %s.%s", resource, action)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
