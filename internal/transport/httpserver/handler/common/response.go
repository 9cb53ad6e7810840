package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"babytrack-go/internal/db"
	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/baby"
	"babytrack-go/internal/domain/export"
	"babytrack-go/internal/domain/invitation"
	"babytrack-go/internal/domain/records"
	"babytrack-go/internal/domain/validation"
	"babytrack-go/internal/transport/httpserver/middleware"
	"babytrack-go/pkg/logger"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, code, message)
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

func DecodeJSON(r *http.Request, dst any) error {
	return decodeJSON(r, dst)
}

// RequireUser writes 401 and reports false when the request carries no
// authenticated user.
func RequireUser(w http.ResponseWriter, r *http.Request) (middleware.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return middleware.User{}, false
	}
	return user, true
}

type failure struct {
	status  int
	code    string
	message string
}

var businessErrors = []struct {
	target error
	failure
}{
	{access.ErrPermissionDenied, failure{http.StatusForbidden, "permission_denied", "permission denied"}},
	{access.ErrOwnerNotAssignable, failure{http.StatusBadRequest, "invalid_request", "owner role cannot be assigned"}},
	{access.ErrUnknownRole, failure{http.StatusBadRequest, "invalid_request", "unknown role"}},
	{access.ErrOwnerImmutable, failure{http.StatusConflict, "owner_immutable", "owner role cannot be changed"}},
	{access.ErrSelfRoleChange, failure{http.StatusConflict, "self_role_change", "cannot change own role"}},
	{baby.ErrBabyNotFound, failure{http.StatusNotFound, "baby_not_found", "baby not found"}},
	{baby.ErrCollaboratorNotFound, failure{http.StatusNotFound, "collaborator_not_found", "collaborator not found"}},
	{baby.ErrCannotRemoveOwner, failure{http.StatusConflict, "cannot_remove_owner", "owners cannot be removed"}},
	{baby.ErrOwnerCannotLeave, failure{http.StatusConflict, "owner_cannot_leave", "owners cannot leave"}},
	{invitation.ErrInvitationNotFound, failure{http.StatusNotFound, "invitation_not_found", "invitation not found"}},
	{invitation.ErrInvitationExpired, failure{http.StatusGone, "invitation_expired", "invitation expired"}},
	{invitation.ErrInvitationNotPending, failure{http.StatusConflict, "invitation_not_pending", "invitation is no longer pending"}},
	{invitation.ErrInvitationExists, failure{http.StatusConflict, "invitation_exists", "a pending invitation already exists for this email"}},
	{invitation.ErrEmailMismatch, failure{http.StatusForbidden, "email_mismatch", "invitation was sent to a different email"}},
	{records.ErrRecordNotFound, failure{http.StatusNotFound, "record_not_found", "record not found"}},
	{export.ErrArchiveDisabled, failure{http.StatusNotImplemented, "archive_disabled", "export archive is not configured"}},
}

// WriteServiceError maps a service failure onto the shared error taxonomy,
// logging expected failures as business errors and the rest as internal.
func WriteServiceError(w http.ResponseWriter, log logger.Logger, op string, err error, args ...any) {
	var invalid *validation.Error
	if errors.As(err, &invalid) {
		log.BusinessError(op+": invalid request", err, args...)
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Code:    "invalid_request",
			Message: invalid.Error(),
			Field:   invalid.Field,
		}})
		return
	}

	for _, known := range businessErrors {
		if errors.Is(err, known.target) {
			log.BusinessError(op+": "+known.message, err, args...)
			writeError(w, known.status, known.code, known.message)
			return
		}
	}

	if db.IsStoreError(err) {
		log.InternalError(op+": store failure", err, args...)
		writeError(w, http.StatusServiceUnavailable, "store_error", "storage temporarily unavailable, try again")
		return
	}

	log.InternalError(op+": failed", err, args...)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
