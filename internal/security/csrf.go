package security

import (
	"net/http"
	"strings"

	"masthead/pkg/secrets"
)

const (
	// CSRFCookie carries the signed token for the double-submit check.
	CSRFCookie = "csrf_token"
	// CSRFHeader is where clients echo the cookie value back.
	CSRFHeader = "X-CSRF-Token"

	csrfTokenBytes = 16
)

// IssueCSRFToken mints a signed token of the form value.signature.
func IssueCSRFToken(key []byte) (string, error) {
	value, err := secrets.GenerateToken(csrfTokenBytes)
	if err != nil {
		return "", err
	}
	return value + "." + secrets.Sign(key, value), nil
}

// ValidCSRFToken checks the token's signature against the signing key.
func ValidCSRFToken(key []byte, token string) bool {
	value, sig, ok := strings.Cut(token, ".")
	if !ok || value == "" || sig == "" {
		return false
	}
	return secrets.ValidSignature(key, value, sig)
}

// csrfOK applies the signed double-submit check: the header must echo
// the cookie and both must carry a valid signature.
func csrfOK(r *http.Request, key []byte) bool {
	cookie, err := r.Cookie(CSRFCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	header := r.Header.Get(CSRFHeader)
	if header == "" {
		return false
	}
	if !secrets.ConstantTimeEqual(cookie.Value, header) {
		return false
	}
	return ValidCSRFToken(key, cookie.Value)
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
