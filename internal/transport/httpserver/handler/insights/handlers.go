package insights

import (
	activitydomain "babytrack-go/internal/domain/activity"
	exportdomain "babytrack-go/internal/domain/export"
	statsdomain "babytrack-go/internal/domain/stats"
	"babytrack-go/pkg/logger"
)

// Handlers serves the read-only views derived from a baby's records.
type Handlers struct {
	Activity *activitydomain.Service
	Stats    *statsdomain.Service
	Export   *exportdomain.Service
	log      logger.Logger
}

func New(activity *activitydomain.Service, stats *statsdomain.Service, export *exportdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Activity: activity,
		Stats:    stats,
		Export:   export,
		log:      log,
	}
}
