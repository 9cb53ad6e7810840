package babies

import (
	"encoding/json"
	"net/http"

	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"babytrack-go/pkg/logger"
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

// nullableString tells an explicit JSON null apart from an absent field.
type nullableString struct {
	Set   bool
	Value *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	n.Value = &value
	return nil
}
