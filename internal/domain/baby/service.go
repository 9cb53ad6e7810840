package baby

import (
	"context"
	"strings"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/validation"
	"github.com/google/uuid"
)

const maxNameLength = 100

type Service struct {
	repo   Repository
	access *access.Resolver
	now    func() time.Time
}

func NewService(repo Repository, resolver *access.Resolver) *Service {
	return &Service{
		repo:   repo,
		access: resolver,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateBaby stores the baby and makes the creator its accepted owner in one
// transaction, so a baby never exists without an owner.
func (s *Service) CreateBaby(ctx context.Context, actorID string, input BabyInput) (*BabyWithRole, error) {
	if err := normalizeInput(&input, s.now()); err != nil {
		return nil, err
	}

	now := s.now()
	baby := Baby{
		ID:        uuid.NewString(),
		Name:      input.Name,
		BirthDate: input.BirthDate,
		Gender:    input.Gender,
		Photo:     input.Photo,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateBaby(ctx, &baby); err != nil {
			return err
		}
		owner := Collaborator{
			ID:         uuid.NewString(),
			BabyID:     baby.ID,
			UserID:     actorID,
			Role:       access.RoleOwner,
			Status:     StatusAccepted,
			AcceptedAt: &now,
			CreatedAt:  now,
		}
		return tx.AddCollaborator(ctx, &owner)
	})
	if err != nil {
		return nil, err
	}

	return &BabyWithRole{Baby: baby, Role: access.RoleOwner}, nil
}

func (s *Service) ListBabies(ctx context.Context, actorID string) ([]BabyWithRole, error) {
	return s.repo.ListBabiesForUser(ctx, actorID)
}

func (s *Service) GetBaby(ctx context.Context, actorID, babyID string) (*BabyWithRole, error) {
	role, err := s.access.RequireAccess(ctx, babyID, actorID)
	if err != nil {
		return nil, err
	}

	baby, err := s.repo.GetBaby(ctx, babyID)
	if err != nil {
		return nil, err
	}
	return &BabyWithRole{Baby: *baby, Role: role}, nil
}

func (s *Service) UpdateBaby(ctx context.Context, actorID, babyID string, patch BabyPatch) (*BabyWithRole, error) {
	role, err := s.access.RequireEditor(ctx, babyID, actorID)
	if err != nil {
		return nil, err
	}

	baby, err := s.repo.GetBaby(ctx, babyID)
	if err != nil {
		return nil, err
	}

	input := BabyInput{Name: baby.Name, BirthDate: baby.BirthDate, Gender: baby.Gender, Photo: baby.Photo}
	if patch.Name != nil {
		input.Name = *patch.Name
	}
	if patch.BirthDate != nil {
		input.BirthDate = *patch.BirthDate
	}
	if patch.Gender != nil {
		input.Gender = patch.Gender
	}
	if patch.Photo != nil {
		input.Photo = patch.Photo
	}
	if patch.ClearPhoto {
		input.Photo = nil
	}
	if err := normalizeInput(&input, s.now()); err != nil {
		return nil, err
	}

	baby.Name = input.Name
	baby.BirthDate = input.BirthDate
	baby.Gender = input.Gender
	baby.Photo = input.Photo
	baby.UpdatedAt = s.now()

	if err := s.repo.UpdateBaby(ctx, baby); err != nil {
		return nil, err
	}
	return &BabyWithRole{Baby: *baby, Role: role}, nil
}

// DeleteBaby removes the baby; records, collaborators and invitations go with
// it through cascading foreign keys. It returns the user ids that had a
// collaborator row so their sessions can move off the baby.
func (s *Service) DeleteBaby(ctx context.Context, actorID, babyID string) ([]string, error) {
	if _, err := s.access.RequireOwner(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	var former []string
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		collaborators, err := tx.ListCollaborators(ctx, babyID)
		if err != nil {
			return err
		}
		former = make([]string, 0, len(collaborators))
		for _, c := range collaborators {
			former = append(former, c.UserID)
		}
		return tx.DeleteBaby(ctx, babyID)
	})
	if err != nil {
		return nil, err
	}

	s.access.ForgetBaby(babyID)
	return former, nil
}

func (s *Service) ListCollaborators(ctx context.Context, actorID, babyID string) ([]CollaboratorProfile, error) {
	if _, err := s.access.RequireAccess(ctx, babyID, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListCollaborators(ctx, babyID)
}

func (s *Service) UpdateCollaboratorRole(ctx context.Context, actorID, babyID, userID string, role access.Role) (*Collaborator, error) {
	if _, err := s.access.RequireOwner(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	var result Collaborator
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		target, err := tx.GetCollaborator(ctx, babyID, userID)
		if err != nil {
			return err
		}
		if err := access.CheckRoleChange(actorID, userID, target.Role, role); err != nil {
			return err
		}
		if err := tx.UpdateCollaboratorRole(ctx, babyID, userID, role); err != nil {
			return err
		}
		target.Role = role
		result = *target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.access.Forget(babyID, userID)
	return &result, nil
}

// RemoveCollaborator revokes a non-owner's access. Owners are never removed,
// which keeps every baby with at least one owner.
func (s *Service) RemoveCollaborator(ctx context.Context, actorID, babyID, userID string) error {
	if _, err := s.access.RequireOwner(ctx, babyID, actorID); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		target, err := tx.GetCollaborator(ctx, babyID, userID)
		if err != nil {
			return err
		}
		if target.Role == access.RoleOwner {
			return ErrCannotRemoveOwner
		}
		return tx.DeleteCollaborator(ctx, babyID, userID)
	})
	if err != nil {
		return err
	}

	s.access.Forget(babyID, userID)
	return nil
}

func (s *Service) LeaveBaby(ctx context.Context, actorID, babyID string) error {
	role, err := s.access.RequireAccess(ctx, babyID, actorID)
	if err != nil {
		return err
	}
	if role == access.RoleOwner {
		return ErrOwnerCannotLeave
	}
	if err := s.repo.DeleteCollaborator(ctx, babyID, actorID); err != nil {
		return err
	}
	s.access.Forget(babyID, actorID)
	return nil
}

func normalizeInput(input *BabyInput, now time.Time) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return validation.New("name", "is required")
	}
	if len([]rune(input.Name)) > maxNameLength {
		return validation.Newf("name", "must be at most %d characters", maxNameLength)
	}

	if input.BirthDate.IsZero() {
		return validation.New("birth_date", "is required")
	}
	input.BirthDate = time.Date(input.BirthDate.Year(), input.BirthDate.Month(), input.BirthDate.Day(), 0, 0, 0, 0, time.UTC)
	if input.BirthDate.After(now) {
		return validation.New("birth_date", "cannot be in the future")
	}

	if input.Gender != nil {
		gender := strings.ToLower(strings.TrimSpace(*input.Gender))
		if gender == "" {
			input.Gender = nil
		} else {
			if err := validation.OneOf("gender", gender, GenderMale, GenderFemale); err != nil {
				return err
			}
			input.Gender = &gender
		}
	}

	if input.Photo != nil {
		photo := strings.TrimSpace(*input.Photo)
		if photo == "" {
			input.Photo = nil
		} else {
			input.Photo = &photo
		}
	}
	return nil
}
