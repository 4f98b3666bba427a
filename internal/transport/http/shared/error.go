package shared

import (
	"errors"
	"net/http"
	"strconv"

	"masthead/internal/transport/http/json"
	dErrors "masthead/pkg/domain-errors"
)

// WriteError centralizes domain error translation to HTTP responses.
// It translates transport-agnostic domain errors into HTTP status codes and
// error payloads, attaching Retry-After when the error carries a hint.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		if domainErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(domainErr.RetryAfter.Seconds())))
		}
		response := map[string]string{
			"error": string(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		json.WriteJSON(w, StatusFromCode(domainErr.Code), response)
		return
	}

	// Fallback for unexpected errors; never leak internals to clients.
	json.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}

// StatusFromCode translates domain error codes to HTTP status codes.
func StatusFromCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeTokenReuse:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeAccountDisabled, dErrors.CodeEmailNotVerified, dErrors.CodeSecurityViolation:
		return http.StatusForbidden
	case dErrors.CodeAccountLocked:
		return http.StatusLocked
	case dErrors.CodeMFARequired, dErrors.CodeMFASetupRequired:
		// Not failures: the client must complete another step. Kept at 200
		// with an explanatory payload by the auth handler; this mapping only
		// applies when the code escapes as an error.
		return http.StatusUnauthorized
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
