package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/baby"
	"babytrack-go/internal/domain/validation"
	"github.com/google/uuid"
)

const (
	DefaultTTL    = 7 * 24 * time.Hour
	tokenBytes    = 32
	tokenAttempts = 5
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type Options struct {
	// BaseURL is the public web app origin; links are BaseURL/invite/<token>.
	BaseURL  string
	TTL      time.Duration
	Notifier Notifier
}

type Service struct {
	repo     Repository
	access   *access.Resolver
	notifier Notifier
	baseURL  string
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo Repository, resolver *access.Resolver, opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:     repo,
		access:   resolver,
		notifier: opts.Notifier,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Link(token string) string {
	return s.baseURL + "/invite/" + token
}

func (s *Service) CreateInvitation(ctx context.Context, actor Actor, babyID, email string, role access.Role) (*CreateResult, error) {
	if _, err := s.access.RequireOwner(ctx, babyID, actor.UserID); err != nil {
		return nil, err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if email == strings.ToLower(strings.TrimSpace(actor.Email)) {
		return nil, validation.New("email", "cannot invite yourself")
	}
	switch role {
	case access.RoleEditor, access.RoleViewer:
	case access.RoleOwner:
		return nil, validation.New("role", "owner cannot be granted by invitation")
	default:
		return nil, validation.New("role", "must be editor or viewer")
	}

	now := s.now()
	var created Invitation
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.ListPendingByEmail(ctx, babyID, email)
		if err != nil {
			return err
		}
		for _, inv := range existing {
			if !inv.Expired(now) {
				return ErrInvitationExists
			}
		}

		token, err := generateUniqueToken(ctx, tx)
		if err != nil {
			return err
		}

		created = Invitation{
			ID:        uuid.NewString(),
			BabyID:    babyID,
			Email:     email,
			Role:      role,
			Token:     token,
			InvitedBy: actor.UserID,
			Status:    StatusPending,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(ctx, &created)
	})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Invitation: created, Link: s.Link(created.Token)}
	result.EmailSent, result.EmailErr = s.notify(ctx, actor, created, result.Link)
	return result, nil
}

// FetchInvitation resolves a shareable token for preview. Anything other than
// a live pending invitation is ErrInvitationNotFound, except a pending one
// past its expiry, which is ErrInvitationExpired.
func (s *Service) FetchInvitation(ctx context.Context, token string) (*Summary, error) {
	inv, err := lookupToken(ctx, s.repo, token, false)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusPending {
		return nil, ErrInvitationNotFound
	}
	if inv.Expired(s.now()) {
		return nil, ErrInvitationExpired
	}

	name, err := s.repo.GetBabyName(ctx, inv.BabyID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		ID:        inv.ID,
		BabyID:    inv.BabyID,
		BabyName:  name,
		Email:     inv.Email,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

// AcceptInvitation grants the invitation's role to actor. The collaborator
// write and the invitation transition commit together. Accepting again once
// the user already collaborates on the baby is a no-op reported through
// AlreadyCollaborator.
func (s *Service) AcceptInvitation(ctx context.Context, token string, actor Actor) (*AcceptResult, error) {
	var result AcceptResult
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		inv, err := lookupToken(ctx, tx, token, true)
		if err != nil {
			return err
		}
		if !EmailMatches(inv.Email, actor.Email) {
			return ErrEmailMismatch
		}

		existing, err := tx.GetCollaborator(ctx, inv.BabyID, actor.UserID)
		if err != nil && !errors.Is(err, baby.ErrCollaboratorNotFound) {
			return err
		}
		if existing != nil && existing.Status == baby.StatusAccepted {
			result = AcceptResult{BabyID: inv.BabyID, Role: existing.Role, AlreadyCollaborator: true}
			return nil
		}

		if inv.Status != StatusPending {
			return ErrInvitationNotFound
		}
		now := s.now()
		if inv.Expired(now) {
			return ErrInvitationExpired
		}

		if existing != nil {
			err = tx.ActivateCollaborator(ctx, existing.ID, inv.Role, inv.InvitedBy, now)
		} else {
			invitedBy := inv.InvitedBy
			invitedAt := inv.CreatedAt
			err = tx.AddCollaborator(ctx, &baby.Collaborator{
				ID:         uuid.NewString(),
				BabyID:     inv.BabyID,
				UserID:     actor.UserID,
				Role:       inv.Role,
				Status:     baby.StatusAccepted,
				InvitedBy:  &invitedBy,
				InvitedAt:  &invitedAt,
				AcceptedAt: &now,
				CreatedAt:  now,
			})
		}
		if err != nil {
			return err
		}

		inv.Status = StatusAccepted
		inv.AcceptedAt = &now
		inv.UpdatedAt = now
		if err := tx.Update(ctx, inv); err != nil {
			return err
		}

		result = AcceptResult{BabyID: inv.BabyID, Role: inv.Role}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.access.Forget(result.BabyID, actor.UserID)
	return &result, nil
}

// DeclineInvitation lets the invited user turn a pending invitation down.
func (s *Service) DeclineInvitation(ctx context.Context, token string, actor Actor) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		inv, err := lookupToken(ctx, tx, token, true)
		if err != nil {
			return err
		}
		if !EmailMatches(inv.Email, actor.Email) {
			return ErrEmailMismatch
		}
		if inv.Status != StatusPending {
			return ErrInvitationNotFound
		}
		now := s.now()
		if inv.Expired(now) {
			return ErrInvitationExpired
		}

		inv.Status = StatusCancelled
		inv.UpdatedAt = now
		return tx.Update(ctx, inv)
	})
}

func (s *Service) CancelInvitation(ctx context.Context, actorID, invitationID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		inv, err := s.ownedPending(ctx, tx, actorID, invitationID)
		if err != nil {
			return err
		}
		inv.Status = StatusCancelled
		inv.UpdatedAt = s.now()
		return tx.Update(ctx, inv)
	})
}

// ResendInvitation pushes the expiry to now+TTL and redelivers the same link.
// The token is kept, so a link that was already shared stays valid.
func (s *Service) ResendInvitation(ctx context.Context, actor Actor, invitationID string) (*CreateResult, error) {
	var updated Invitation
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		inv, err := s.ownedPending(ctx, tx, actor.UserID, invitationID)
		if err != nil {
			return err
		}

		now := s.now()
		expiresAt := now.Add(s.ttl)
		if !expiresAt.After(inv.ExpiresAt) {
			expiresAt = inv.ExpiresAt.Add(time.Second)
		}
		inv.ExpiresAt = expiresAt
		inv.UpdatedAt = now
		if err := tx.Update(ctx, inv); err != nil {
			return err
		}
		updated = *inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Invitation: updated, Link: s.Link(updated.Token)}
	result.EmailSent, result.EmailErr = s.notify(ctx, actor, updated, result.Link)
	return result, nil
}

func (s *Service) ListInvitations(ctx context.Context, actorID, babyID string) ([]Pending, error) {
	if _, err := s.access.RequireOwner(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	invitations, err := s.repo.ListPending(ctx, babyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]Pending, 0, len(invitations))
	for _, inv := range invitations {
		result = append(result, Pending{Invitation: inv, Expired: inv.Expired(now)})
	}
	return result, nil
}

func (s *Service) ownedPending(ctx context.Context, tx Repository, actorID, invitationID string) (*Invitation, error) {
	if strings.TrimSpace(invitationID) == "" {
		return nil, ErrInvitationNotFound
	}
	inv, err := tx.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireOwner(ctx, inv.BabyID, actorID); err != nil {
		return nil, err
	}
	if inv.Status != StatusPending {
		return nil, ErrInvitationNotPending
	}
	return inv, nil
}

func lookupToken(ctx context.Context, repo Repository, token string, lock bool) (*Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationNotFound
	}
	if lock {
		return repo.GetByTokenForUpdate(ctx, token)
	}
	return repo.GetByToken(ctx, token)
}

func (s *Service) notify(ctx context.Context, actor Actor, inv Invitation, link string) (bool, error) {
	if s.notifier == nil {
		return false, nil
	}

	name, err := s.repo.GetBabyName(ctx, inv.BabyID)
	if err != nil {
		return false, err
	}

	inviter := actor.Name
	if inviter == "" {
		inviter = actor.Email
	}

	err = s.notifier.SendInvitation(ctx, Message{
		To:          inv.Email,
		BabyName:    name,
		InviterName: inviter,
		Role:        inv.Role,
		Link:        link,
		ExpiresAt:   inv.ExpiresAt,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", validation.New("email", "is required")
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return "", validation.New("email", "is not a valid address")
	}
	return email, nil
}

// EmailMatches compares an invited address with a signed-in one, ignoring case.
func EmailMatches(invited, actual string) bool {
	actual = strings.TrimSpace(actual)
	return actual != "" && strings.EqualFold(invited, actual)
}

func generateUniqueToken(ctx context.Context, repo Repository) (string, error) {
	for i := 0; i < tokenAttempts; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		taken, err := repo.IsTokenTaken(ctx, token)
		if err != nil {
			return "", err
		}
		if !taken {
			return token, nil
		}
	}
	return "", ErrTokenGenerationFailed
}

func generateToken() (string, error) {
	var b [tokenBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
