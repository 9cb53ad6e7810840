package invitations

import (
	"strings"

	invitationdomain "babytrack-go/internal/domain/invitation"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"babytrack-go/pkg/logger"
)

type Handlers struct {
	Invitations *invitationdomain.Service
	sessions    commonhandler.SessionRefresher
	baseURL     string
	log         logger.Logger
}

// New wires the invitation endpoints. baseURL is the public web app origin
// used for the sign-in redirect offered to anonymous visitors; sessions may
// be nil.
func New(invitations *invitationdomain.Service, sessions commonhandler.SessionRefresher, baseURL string, log logger.Logger) *Handlers {
	return &Handlers{
		Invitations: invitations,
		sessions:    sessions,
		baseURL:     strings.TrimRight(baseURL, "/"),
		log:         log,
	}
}
