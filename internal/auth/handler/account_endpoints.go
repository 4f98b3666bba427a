package handler

import (
	"net/http"

	"masthead/internal/auth/models"
	"masthead/internal/platform/middleware"
	jsonWriter "masthead/internal/transport/http/json"
	"masthead/internal/transport/http/shared"
	dErrors "masthead/pkg/domain-errors"
)

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*models.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	}
	return principal, ok
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Profile(r.Context(), principal.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{"user": summary})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.svc.UpdateProfile(r.Context(), principal.ID, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "profile updated",
		"user":    summary,
	})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), principal.ID, req); err != nil {
		shared.WriteError(w, err)
		return
	}
	h.clearSessionCookies(w)
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "password changed, log in again",
	})
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{
		"menu": h.svc.MenuItems(principal),
	})
}

func (h *Handler) setupMFA(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	enrollment, err := h.svc.SetupMFA(r.Context(), principal.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "scan the code with your authenticator app, then verify",
		"enrollment": enrollment,
	})
}

func (h *Handler) verifyMFA(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.MFAVerifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.VerifyMFA(r.Context(), principal.ID, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "multi-factor authentication enabled, store these backup codes now",
		"backup_codes": result.BackupCodes,
	})
}

func (h *Handler) disableMFA(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.MFADisableRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.DisableMFA(r.Context(), principal.ID, req); err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "multi-factor authentication disabled",
	})
}
