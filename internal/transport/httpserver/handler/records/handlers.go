package records

import (
	recordsdomain "babytrack-go/internal/domain/records"
	"babytrack-go/pkg/logger"
)

// Handlers serves CRUD for one record shape; one instance is mounted per kind.
type Handlers[T any, P interface {
	*T
	recordsdomain.Record
}] struct {
	Records *recordsdomain.Service[T, P]
	log     logger.Logger
}

func New[T any, P interface {
	*T
	recordsdomain.Record
}](service *recordsdomain.Service[T, P], log logger.Logger) *Handlers[T, P] {
	return &Handlers[T, P]{
		Records: service,
		log:     log.With("record_kind", string(service.Kind())),
	}
}
