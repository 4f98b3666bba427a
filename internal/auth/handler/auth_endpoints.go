package handler

import (
	"net/http"

	"masthead/internal/auth/models"
	"masthead/internal/platform/middleware"
	jsonWriter "masthead/internal/transport/http/json"
	"masthead/internal/transport/http/shared"
	dErrors "masthead/pkg/domain-errors"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Register(r.Context(), req, h.clientIP(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.VerifyEmail(r.Context(), req, h.clientIP(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.setSessionCookies(w, result.Tokens)
	jsonWriter.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) resendCode(w http.ResponseWriter, r *http.Request) {
	var req models.ResendCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	message, err := h.svc.ResendCode(r.Context(), req, h.clientIP(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{"message": message})
}

// login answers 200 for the MFA halt states as well: they are not
// failures, the client just has another step to complete. Cookies are
// only set when tokens were actually issued.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Login(r.Context(), req, h.clientIP(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.setSessionCookies(w, result.Tokens)
	jsonWriter.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	raw := req.RefreshToken
	if raw == "" {
		if c, err := r.Cookie(RefreshTokenCookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "refresh token required"))
		return
	}

	tokens, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		h.clearSessionCookies(w)
		shared.WriteError(w, err)
		return
	}
	h.setSessionCookies(w, tokens)
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "token refreshed",
		"tokens":  tokens,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if err := h.svc.Logout(r.Context(), principal.ID); err != nil {
		shared.WriteError(w, err)
		return
	}
	h.clearSessionCookies(w)
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	message, err := h.svc.ForgotPassword(r.Context(), req, h.clientIP(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		shared.WriteError(w, err)
		return
	}
	h.clearSessionCookies(w)
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "password reset, log in with your new password",
	})
}
