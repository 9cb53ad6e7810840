package invitation

import (
	"context"
	"errors"
	"time"

	"babytrack-go/internal/db"
	"babytrack-go/internal/domain/access"
	babydomain "babytrack-go/internal/domain/baby"
	invitationdomain "babytrack-go/internal/domain/invitation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRepository struct {
	conn *gorm.DB
	inTx bool
}

func NewPostgres(conn *gorm.DB) *PostgresRepository {
	return &PostgresRepository{conn: conn}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(invitationdomain.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	var fnErr error
	err := db.Scoped(ctx, r.conn, func(tx *gorm.DB) error {
		fnErr = fn(&PostgresRepository{conn: tx, inTx: true})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return db.Store("invitations.transaction", err)
}

func (r *PostgresRepository) Create(ctx context.Context, invitation *invitationdomain.Invitation) error {
	return r.run(ctx, "invitations.create", func(tx *gorm.DB) error {
		return tx.Create(invitation).Error
	})
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*invitationdomain.Invitation, error) {
	return r.first(ctx, "invitations.get", "", false, "id = ?", id)
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*invitationdomain.Invitation, error) {
	return r.first(ctx, "invitations.get_by_token", token, false, "token = ?", token)
}

func (r *PostgresRepository) GetByTokenForUpdate(ctx context.Context, token string) (*invitationdomain.Invitation, error) {
	return r.first(ctx, "invitations.lock_by_token", token, true, "token = ?", token)
}

func (r *PostgresRepository) ListPendingByEmail(ctx context.Context, babyID, email string) ([]invitationdomain.Invitation, error) {
	var invitations []invitationdomain.Invitation
	err := r.run(ctx, "invitations.list_by_email", func(tx *gorm.DB) error {
		return tx.Where("baby_id = ? AND lower(email) = lower(?) AND status = ?", babyID, email, invitationdomain.StatusPending).
			Order("created_at desc").
			Find(&invitations).Error
	})
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, babyID string) ([]invitationdomain.Invitation, error) {
	var invitations []invitationdomain.Invitation
	err := r.run(ctx, "invitations.list", func(tx *gorm.DB) error {
		return tx.Where("baby_id = ? AND status = ?", babyID, invitationdomain.StatusPending).
			Order("created_at desc").
			Find(&invitations).Error
	})
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *PostgresRepository) Update(ctx context.Context, invitation *invitationdomain.Invitation) error {
	return r.run(ctx, "invitations.update", func(tx *gorm.DB) error {
		result := tx.Model(&invitationdomain.Invitation{}).
			Where("id = ?", invitation.ID).
			Updates(map[string]any{
				"status":      invitation.Status,
				"expires_at":  invitation.ExpiresAt,
				"accepted_at": invitation.AcceptedAt,
				"updated_at":  invitation.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invitationdomain.ErrInvitationNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) IsTokenTaken(ctx context.Context, token string) (bool, error) {
	// Tokens of other babies are hidden by the row policies but still collide.
	var taken bool
	err := r.run(ctx, "invitations.token_taken", func(tx *gorm.DB) error {
		return tx.Raw("SELECT invitation_token_exists(?)", token).Scan(&taken).Error
	})
	if err != nil {
		return false, err
	}
	return taken, nil
}

// GetBabyName runs as the service role: the preview is shown to visitors who
// cannot read the baby yet.
func (r *PostgresRepository) GetBabyName(ctx context.Context, babyID string) (string, error) {
	var names []string
	query := func(tx *gorm.DB) error {
		return tx.Table("babies").Where("id = ?", babyID).Limit(1).Pluck("name", &names).Error
	}

	var err error
	if r.inTx {
		err = query(r.conn.WithContext(ctx))
	} else {
		err = db.Scoped(db.WithService(ctx), r.conn, query)
	}
	if err != nil {
		return "", db.Store("invitations.baby_name", err)
	}
	if len(names) == 0 {
		return "", invitationdomain.ErrInvitationNotFound
	}
	return names[0], nil
}

func (r *PostgresRepository) GetCollaborator(ctx context.Context, babyID, userID string) (*babydomain.Collaborator, error) {
	var collaborator babydomain.Collaborator
	err := r.run(ctx, "invitations.get_collaborator", func(tx *gorm.DB) error {
		err := tx.Where("baby_id = ? AND user_id = ?", babyID, userID).First(&collaborator).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return babydomain.ErrCollaboratorNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &collaborator, nil
}

func (r *PostgresRepository) AddCollaborator(ctx context.Context, collaborator *babydomain.Collaborator) error {
	return r.run(ctx, "invitations.add_collaborator", func(tx *gorm.DB) error {
		return tx.Create(collaborator).Error
	})
}

func (r *PostgresRepository) ActivateCollaborator(ctx context.Context, collaboratorID string, role access.Role, invitedBy string, acceptedAt time.Time) error {
	return r.run(ctx, "invitations.activate_collaborator", func(tx *gorm.DB) error {
		result := tx.Model(&babydomain.Collaborator{}).
			Where("id = ?", collaboratorID).
			Updates(map[string]any{
				"role":        role,
				"status":      babydomain.StatusAccepted,
				"invited_by":  invitedBy,
				"accepted_at": acceptedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return babydomain.ErrCollaboratorNotFound
		}
		return nil
	})
}

// first loads one invitation. A non-empty token is presented to the row
// policies first, which is what lets an invitee who is not yet a
// collaborator see the row.
func (r *PostgresRepository) first(ctx context.Context, op, token string, lock bool, query string, args ...any) (*invitationdomain.Invitation, error) {
	var invitation invitationdomain.Invitation
	err := r.run(ctx, op, func(tx *gorm.DB) error {
		if token != "" {
			if err := presentToken(tx, token); err != nil {
				return err
			}
		}
		if lock {
			tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := tx.Where(query, args...).First(&invitation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invitationdomain.ErrInvitationNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// presentToken stores token in app.invitation_token for the rest of the
// transaction.
func presentToken(tx *gorm.DB, token string) error {
	return tx.Exec("SELECT set_config('app.invitation_token', ?, true)", token).Error
}

var passthrough = []error{
	invitationdomain.ErrInvitationNotFound,
	babydomain.ErrCollaboratorNotFound,
}

func (r *PostgresRepository) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	if r.inTx {
		return db.Store(op, fn(r.conn.WithContext(ctx)), passthrough...)
	}
	return db.Store(op, db.Scoped(ctx, r.conn, fn), passthrough...)
}
