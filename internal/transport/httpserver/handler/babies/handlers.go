package babies

import (
	"context"

	babydomain "babytrack-go/internal/domain/baby"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"babytrack-go/pkg/logger"
)

type Handlers struct {
	Babies   *babydomain.Service
	sessions commonhandler.SessionRefresher
	log      logger.Logger
}

// New wires the baby endpoints; sessions may be nil.
func New(babies *babydomain.Service, sessions commonhandler.SessionRefresher, log logger.Logger) *Handlers {
	return &Handlers{
		Babies:   babies,
		sessions: sessions,
		log:      log,
	}
}

func (h *Handlers) refreshSessions(ctx context.Context, userIDs ...string) {
	if h.sessions != nil {
		h.sessions.Refresh(ctx, userIDs...)
	}
}
