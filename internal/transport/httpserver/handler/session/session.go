package session

import (
	"net/http"
	"strings"

	sessionpkg "babytrack-go/internal/session"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"github.com/google/uuid"
)

type selectBabyRequest struct {
	BabyID string `json:"baby_id"`
}

type sessionResponse struct {
	ClientID string  `json:"client_id"`
	UserID   string  `json:"user_id"`
	BabyID   *string `json:"baby_id"`
	Role     *string `json:"role"`
	CanEdit  bool    `json:"can_edit"`
	IsOwner  bool    `json:"is_owner"`
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}

	clientID, err := requestClientID(r)
	if err != nil {
		writeServiceError(w, h.log, "session.get", err, "user_id", user.ID)
		return
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	sess, err := h.Sessions.Get(r.Context(), user.ID, clientID)
	if err != nil {
		writeServiceError(w, h.log, "session.get", err, "user_id", user.ID, "client_id", clientID)
		return
	}
	w.Header().Set(clientIDHeader, clientID)
	writeJSON(w, http.StatusOK, toSessionResponse(clientID, sess))
}

func (h *Handlers) SelectBaby(w http.ResponseWriter, r *http.Request) {
	var req selectBabyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.BabyID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "baby_id is required")
		return
	}

	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}

	clientID, err := requireClientID(r)
	if err != nil {
		writeServiceError(w, h.log, "session.select", err, "user_id", user.ID)
		return
	}

	sess, err := h.Sessions.Get(r.Context(), user.ID, clientID)
	if err != nil {
		writeServiceError(w, h.log, "session.select", err, "user_id", user.ID, "client_id", clientID)
		return
	}
	if err := sess.SelectBaby(r.Context(), req.BabyID); err != nil {
		writeServiceError(w, h.log, "session.select", err, "user_id", user.ID, "client_id", clientID, "baby_id", req.BabyID)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(clientID, sess))
}

func toSessionResponse(clientID string, sess *sessionpkg.Session) sessionResponse {
	response := sessionResponse{
		ClientID: clientID,
		UserID:   sess.UserID(),
		CanEdit:  sess.CanEdit(),
		IsOwner:  sess.IsOwner(),
	}
	if babyID := sess.BabyID(); babyID != "" {
		role := string(sess.Role())
		response.BabyID = &babyID
		response.Role = &role
	}
	return response
}
