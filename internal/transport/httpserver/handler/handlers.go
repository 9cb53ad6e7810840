package handler

import (
	recordsdomain "babytrack-go/internal/domain/records"
	"babytrack-go/internal/transport/httpserver/handler/babies"
	"babytrack-go/internal/transport/httpserver/handler/common"
	"babytrack-go/internal/transport/httpserver/handler/insights"
	"babytrack-go/internal/transport/httpserver/handler/invitations"
	"babytrack-go/internal/transport/httpserver/handler/records"
	"babytrack-go/internal/transport/httpserver/handler/session"
)

// Handlers groups the per-area handler sets the router mounts.
type Handlers struct {
	Common      *common.Handlers
	Babies      *babies.Handlers
	Invitations *invitations.Handlers
	Feedings    *records.Handlers[recordsdomain.Feeding, *recordsdomain.Feeding]
	Sleeps      *records.Handlers[recordsdomain.Sleep, *recordsdomain.Sleep]
	Diapers     *records.Handlers[recordsdomain.Diaper, *recordsdomain.Diaper]
	Health      *records.Handlers[recordsdomain.Health, *recordsdomain.Health]
	Insights    *insights.Handlers
	Session     *session.Handlers
}
