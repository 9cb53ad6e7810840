package records

import (
	"context"
	"time"

	"babytrack-go/internal/domain/access"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 500
	MaxListLimit     = 2000
)

// Service is the CRUD surface for one record shape. Reads need any role on
// the baby; writes need owner or editor and are refused before any store
// write when the caller lacks it.
type Service[T any, P interface {
	*T
	Record
}] struct {
	repo   Repository[T]
	access *access.Resolver
	now    func() time.Time
}

func NewService[T any, P interface {
	*T
	Record
}](repo Repository[T], resolver *access.Resolver) *Service[T, P] {
	return &Service[T, P]{
		repo:   repo,
		access: resolver,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service[T, P]) Kind() Kind {
	var zero T
	return P(&zero).Kind()
}

func (s *Service[T, P]) List(ctx context.Context, actorID, babyID string, filter Filter) ([]T, error) {
	if _, err := s.access.RequireAccess(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	return s.repo.List(ctx, babyID, filter)
}

func (s *Service[T, P]) Create(ctx context.Context, actorID, babyID string, item T) (*T, error) {
	if _, err := s.access.RequireEditor(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	now := s.now()
	record := P(&item)
	if err := record.normalize(now); err != nil {
		return nil, err
	}

	meta := record.meta()
	meta.ID = uuid.NewString()
	meta.BabyID = babyID
	meta.UserID = actorID
	meta.CreatedAt = now
	meta.UpdatedAt = now

	if err := s.repo.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update replaces the payload of record id. Authorship and creation time are
// kept from the stored row; concurrent updates are last write wins.
func (s *Service[T, P]) Update(ctx context.Context, actorID, babyID, id string, item T) (*T, error) {
	if _, err := s.access.RequireEditor(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, babyID, id)
	if err != nil {
		return nil, err
	}
	stored := P(existing).meta()

	now := s.now()
	record := P(&item)
	if err := record.normalize(now); err != nil {
		return nil, err
	}

	meta := record.meta()
	meta.ID = stored.ID
	meta.BabyID = stored.BabyID
	meta.UserID = stored.UserID
	meta.CreatedAt = stored.CreatedAt
	meta.UpdatedAt = now

	if err := s.repo.Update(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service[T, P]) Delete(ctx context.Context, actorID, babyID, id string) error {
	if _, err := s.access.RequireEditor(ctx, babyID, actorID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, babyID, id)
}

type (
	FeedingService = Service[Feeding, *Feeding]
	SleepService   = Service[Sleep, *Sleep]
	DiaperService  = Service[Diaper, *Diaper]
	HealthService  = Service[Health, *Health]
)

// Services groups the four record services of one process.
type Services struct {
	Feedings *FeedingService
	Sleeps   *SleepService
	Diapers  *DiaperService
	Health   *HealthService
}

func (s *Services) ListFeedings(ctx context.Context, actorID, babyID string, filter Filter) ([]Feeding, error) {
	return s.Feedings.List(ctx, actorID, babyID, filter)
}

func (s *Services) ListSleeps(ctx context.Context, actorID, babyID string, filter Filter) ([]Sleep, error) {
	return s.Sleeps.List(ctx, actorID, babyID, filter)
}

func (s *Services) ListDiapers(ctx context.Context, actorID, babyID string, filter Filter) ([]Diaper, error) {
	return s.Diapers.List(ctx, actorID, babyID, filter)
}

func (s *Services) ListHealth(ctx context.Context, actorID, babyID string, filter Filter) ([]Health, error) {
	return s.Health.List(ctx, actorID, babyID, filter)
}
