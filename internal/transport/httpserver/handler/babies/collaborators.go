package babies

import (
	"net/http"
	"time"

	"babytrack-go/internal/domain/access"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type updateRoleRequest struct {
	Role string `json:"role"`
}

type collaboratorResponse struct {
	UserID     string     `json:"user_id"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	Email      *string    `json:"email"`
	AvatarURL  *string    `json:"avatar_url"`
	InvitedBy  *string    `json:"invited_by"`
	InvitedAt  *time.Time `json:"invited_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

type collaboratorListResponse struct {
	Items []collaboratorResponse `json:"items"`
}

func (h *Handlers) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	items, err := h.Babies.ListCollaborators(r.Context(), user.ID, babyID)
	if err != nil {
		writeServiceError(w, h.log, "collaborators.list", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	response := make([]collaboratorResponse, 0, len(items))
	for _, item := range items {
		response = append(response, collaboratorResponse{
			UserID:     item.UserID,
			Role:       string(item.Role),
			Status:     item.Status,
			Email:      item.Email,
			AvatarURL:  item.AvatarURL,
			InvitedBy:  item.InvitedBy,
			InvitedAt:  item.InvitedAt,
			AcceptedAt: item.AcceptedAt,
		})
	}
	writeJSON(w, http.StatusOK, collaboratorListResponse{Items: response})
}

func (h *Handlers) UpdateCollaboratorRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")
	targetID := chi.URLParam(r, "user_id")

	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeServiceError(w, h.log, "collaborators.update_role", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	updated, err := h.Babies.UpdateCollaboratorRole(r.Context(), user.ID, babyID, targetID, role)
	if err != nil {
		writeServiceError(w, h.log, "collaborators.update_role", err, "user_id", user.ID, "baby_id", babyID, "target_id", targetID)
		return
	}

	h.refreshSessions(r.Context(), targetID)
	h.log.Info("collaborators.update_role: role changed", "user_id", user.ID, "baby_id", babyID, "target_id", targetID, "role", role.String())
	writeJSON(w, http.StatusOK, collaboratorResponse{
		UserID:     updated.UserID,
		Role:       string(updated.Role),
		Status:     updated.Status,
		InvitedBy:  updated.InvitedBy,
		InvitedAt:  updated.InvitedAt,
		AcceptedAt: updated.AcceptedAt,
	})
}

func (h *Handlers) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")
	targetID := chi.URLParam(r, "user_id")

	if err := h.Babies.RemoveCollaborator(r.Context(), user.ID, babyID, targetID); err != nil {
		writeServiceError(w, h.log, "collaborators.remove", err, "user_id", user.ID, "baby_id", babyID, "target_id", targetID)
		return
	}
	h.refreshSessions(r.Context(), targetID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) LeaveBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	if err := h.Babies.LeaveBaby(r.Context(), user.ID, babyID); err != nil {
		writeServiceError(w, h.log, "babies.leave", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	h.refreshSessions(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}

