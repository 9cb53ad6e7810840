package activity

import (
	"context"

	"babytrack-go/internal/domain/access"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Service struct {
	repo   Repository
	access *access.Resolver
}

func NewService(repo Repository, resolver *access.Resolver) *Service {
	return &Service{repo: repo, access: resolver}
}

func (s *Service) List(ctx context.Context, actorID, babyID string, limit int) ([]Entry, error) {
	if _, err := s.access.RequireAccess(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.repo.List(ctx, babyID, limit)
}
