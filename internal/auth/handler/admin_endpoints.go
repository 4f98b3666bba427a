package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	jsonWriter "masthead/internal/transport/http/json"
	"masthead/internal/transport/http/shared"
	dErrors "masthead/pkg/domain-errors"
)

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.AdminCreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.svc.AdminCreateUser(r.Context(), principal, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "user created",
		"user":    summary,
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{"user": summary})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.AdminUpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.svc.UpdateUser(r.Context(), principal, id, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "user updated",
		"user":    summary,
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(r.Context(), principal, id); err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *Handler) bulkUpdateRoles(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.BulkRoleUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	users, err := h.svc.BulkUpdateRoles(r.Context(), principal, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "roles updated",
		"users":   users,
	})
}

func (h *Handler) roleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	history, err := h.svc.RoleHistory(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.ListRoles(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// securityLogs exposes the audit trail with optional narrowing by
// query parameters.
func (h *Handler) securityLogs(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		ActorID:  r.URL.Query().Get("actor_id"),
		TargetID: r.URL.Query().Get("target_id"),
		Action:   audit.Action(r.URL.Query().Get("action")),
		Severity: audit.Severity(r.URL.Query().Get("severity")),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "since must be RFC 3339"))
			return
		}
		filter.Since = t
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	records, err := h.svc.SecurityLogs(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonWriter.WriteJSON(w, http.StatusOK, map[string]any{"logs": records})
}
