package user

import (
	"context"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// UpsertProfile records the latest e-mail and avatar seen for userID. Empty
// values leave the stored ones untouched.
func (s *Service) UpsertProfile(ctx context.Context, userID, email, avatarURL string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	profile := Profile{UserID: userID}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		profile.Email = &email
	}
	if avatarURL != "" {
		profile.AvatarURL = &avatarURL
	}

	return s.repo.UpsertProfile(ctx, &profile)
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	return s.repo.GetProfile(ctx, userID)
}
