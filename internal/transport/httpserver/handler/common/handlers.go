package common

import (
	"context"
	"net/http"

	"babytrack-go/pkg/logger"
)

type Handlers struct {
	log logger.Logger
}

func New(log logger.Logger) *Handlers {
	return &Handlers{log: log}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SessionRefresher is told which users' collaboration sessions went stale
// after a collaborator change.
type SessionRefresher interface {
	Refresh(ctx context.Context, userIDs ...string)
}
