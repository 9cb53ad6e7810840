package invitations

import (
	"net/http"
	"net/url"
	"time"

	"babytrack-go/internal/domain/access"
	invitationdomain "babytrack-go/internal/domain/invitation"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"babytrack-go/internal/transport/httpserver/middleware"
	"github.com/go-chi/chi/v5"
)

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type invitationResponse struct {
	ID        string    `json:"id"`
	BabyID    string    `json:"baby_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
	CreatedAt time.Time `json:"created_at"`
}

type invitationListResponse struct {
	Items []invitationResponse `json:"items"`
}

type sendResultResponse struct {
	Invitation invitationResponse `json:"invitation"`
	Link       string             `json:"link"`
	EmailSent  bool               `json:"email_sent"`
	EmailError *string            `json:"email_error,omitempty"`
}

type invitationSummaryResponse struct {
	ID        string    `json:"id"`
	BabyID    string    `json:"baby_id"`
	BabyName  string    `json:"baby_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	// SignInURL is set for anonymous visitors only.
	SignInURL     string `json:"sign_in_url,omitempty"`
	EmailMatches  *bool  `json:"email_matches,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

type acceptResponse struct {
	BabyID              string `json:"baby_id"`
	Role                string `json:"role"`
	AlreadyCollaborator bool   `json:"already_collaborator"`
}

func (h *Handlers) ListInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	items, err := h.Invitations.ListInvitations(r.Context(), user.ID, babyID)
	if err != nil {
		writeServiceError(w, h.log, "invitations.list", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	response := make([]invitationResponse, 0, len(items))
	for _, item := range items {
		resp := toInvitationResponse(item.Invitation)
		resp.Expired = item.Expired
		response = append(response, resp)
	}
	writeJSON(w, http.StatusOK, invitationListResponse{Items: response})
}

func (h *Handlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeServiceError(w, h.log, "invitations.create", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	result, err := h.Invitations.CreateInvitation(r.Context(), actorFrom(user), babyID, req.Email, role)
	if err != nil {
		writeServiceError(w, h.log, "invitations.create", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	h.log.Info("invitations.create: invitation created", "user_id", user.ID, "baby_id", babyID, "invitation_id", result.Invitation.ID)
	writeJSON(w, http.StatusCreated, h.toSendResult(user.ID, result))
}

func (h *Handlers) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	invitationID := chi.URLParam(r, "invitation_id")

	if err := h.Invitations.CancelInvitation(r.Context(), user.ID, invitationID); err != nil {
		writeServiceError(w, h.log, "invitations.cancel", err, "user_id", user.ID, "invitation_id", invitationID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	invitationID := chi.URLParam(r, "invitation_id")

	result, err := h.Invitations.ResendInvitation(r.Context(), actorFrom(user), invitationID)
	if err != nil {
		writeServiceError(w, h.log, "invitations.resend", err, "user_id", user.ID, "invitation_id", invitationID)
		return
	}
	writeJSON(w, http.StatusOK, h.toSendResult(user.ID, result))
}

// GetInvitationByToken serves the invitation preview. It runs behind optional
// auth: anonymous visitors get a sign-in link that returns them here.
func (h *Handlers) GetInvitationByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	summary, err := h.Invitations.FetchInvitation(r.Context(), token)
	if err != nil {
		writeServiceError(w, h.log, "invitations.fetch", err)
		return
	}

	response := invitationSummaryResponse{
		ID:        summary.ID,
		BabyID:    summary.BabyID,
		BabyName:  summary.BabyName,
		Email:     summary.Email,
		Role:      string(summary.Role),
		ExpiresAt: summary.ExpiresAt,
	}
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		matches := invitationdomain.EmailMatches(summary.Email, user.Email)
		response.Authenticated = true
		response.EmailMatches = &matches
	} else {
		response.SignInURL = h.signInURL(token)
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	token := chi.URLParam(r, "token")

	result, err := h.Invitations.AcceptInvitation(r.Context(), token, actorFrom(user))
	if err != nil {
		writeServiceError(w, h.log, "invitations.accept", err, "user_id", user.ID)
		return
	}

	if h.sessions != nil {
		h.sessions.Refresh(r.Context(), user.ID)
	}
	h.log.Info("invitations.accept: invitation accepted", "user_id", user.ID, "baby_id", result.BabyID, "already_collaborator", result.AlreadyCollaborator)
	writeJSON(w, http.StatusOK, acceptResponse{
		BabyID:              result.BabyID,
		Role:                string(result.Role),
		AlreadyCollaborator: result.AlreadyCollaborator,
	})
}

func (h *Handlers) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	token := chi.URLParam(r, "token")

	if err := h.Invitations.DeclineInvitation(r.Context(), token, actorFrom(user)); err != nil {
		writeServiceError(w, h.log, "invitations.decline", err, "user_id", user.ID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) signInURL(token string) string {
	return h.baseURL + "/auth?redirect=" + url.QueryEscape("/invite/"+token)
}

func (h *Handlers) toSendResult(userID string, result *invitationdomain.CreateResult) sendResultResponse {
	response := sendResultResponse{
		Invitation: toInvitationResponse(result.Invitation),
		Link:       result.Link,
		EmailSent:  result.EmailSent,
	}
	if result.EmailErr != nil {
		h.log.Warn("invitations: email delivery failed", "user_id", userID, "invitation_id", result.Invitation.ID, "error", result.EmailErr)
		message := "invitation email could not be sent, share the link instead"
		response.EmailError = &message
	}
	return response
}

func toInvitationResponse(inv invitationdomain.Invitation) invitationResponse {
	return invitationResponse{
		ID:        inv.ID,
		BabyID:    inv.BabyID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		Status:    inv.Status,
		InvitedBy: inv.InvitedBy,
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

func actorFrom(user middleware.User) invitationdomain.Actor {
	return invitationdomain.Actor{UserID: user.ID, Email: user.Email, Name: user.Name}
}
