package session

import (
	"net/http"
	"strings"

	"babytrack-go/internal/domain/validation"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"babytrack-go/pkg/logger"
	"github.com/google/uuid"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	commonhandler.WriteError(w, status, code, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	commonhandler.WriteJSON(w, status, payload)
}

func decodeJSON(r *http.Request, dst any) error {
	return commonhandler.DecodeJSON(r, dst)
}

func writeServiceError(w http.ResponseWriter, log logger.Logger, op string, err error, args ...any) {
	commonhandler.WriteServiceError(w, log, op, err, args...)
}

// clientIDHeader names the per-tab or per-device id issued by GetSession.
// EventSource cannot send headers, so the client_id query parameter is
// accepted as well.
const clientIDHeader = "X-Client-ID"

func requestClientID(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get(clientIDHeader))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("client_id"))
	}
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", validation.New("client_id", "must be a uuid")
	}
	return id.String(), nil
}

func requireClientID(r *http.Request) (string, error) {
	clientID, err := requestClientID(r)
	if err != nil {
		return "", err
	}
	if clientID == "" {
		return "", validation.New("client_id", "is required")
	}
	return clientID, nil
}
