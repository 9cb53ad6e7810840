package session

import (
	sessionpkg "babytrack-go/internal/session"
	"babytrack-go/pkg/logger"
)

type Handlers struct {
	Sessions *sessionpkg.Manager
	log      logger.Logger
}

func New(sessions *sessionpkg.Manager, log logger.Logger) *Handlers {
	return &Handlers{
		Sessions: sessions,
		log:      log,
	}
}
