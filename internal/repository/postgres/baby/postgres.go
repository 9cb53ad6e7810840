package baby

import (
	"context"
	"errors"
	"time"

	"babytrack-go/internal/db"
	"babytrack-go/internal/domain/access"
	babydomain "babytrack-go/internal/domain/baby"
	"gorm.io/gorm"
)

// PostgresRepository runs every call inside db.Scoped so row-level security
// sees the caller. Inside Transaction the scoped transaction is reused.
type PostgresRepository struct {
	conn *gorm.DB
	inTx bool
}

func NewPostgres(conn *gorm.DB) *PostgresRepository {
	return &PostgresRepository{conn: conn}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(babydomain.Repository) error) error {
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
	return db.Store("babies.transaction", err)
}

func (r *PostgresRepository) CreateBaby(ctx context.Context, baby *babydomain.Baby) error {
	return r.run(ctx, "babies.create", func(tx *gorm.DB) error {
		return tx.Create(baby).Error
	})
}

func (r *PostgresRepository) GetBaby(ctx context.Context, babyID string) (*babydomain.Baby, error) {
	var baby babydomain.Baby
	err := r.run(ctx, "babies.get", func(tx *gorm.DB) error {
		err := tx.Where("id = ?", babyID).First(&baby).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return babydomain.ErrBabyNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &baby, nil
}

func (r *PostgresRepository) ListBabiesForUser(ctx context.Context, userID string) ([]babydomain.BabyWithRole, error) {
	type babyRow struct {
		babydomain.Baby
		Role access.Role `gorm:"column:role"`
	}

	var rows []babyRow
	err := r.run(ctx, "babies.list", func(tx *gorm.DB) error {
		return tx.Table("babies").
			Select("babies.*, baby_collaborators.role").
			Joins("join baby_collaborators on baby_collaborators.baby_id = babies.id").
			Where("baby_collaborators.user_id = ? AND baby_collaborators.status = ?", userID, babydomain.StatusAccepted).
			Order("babies.created_at desc").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	babies := make([]babydomain.BabyWithRole, 0, len(rows))
	for _, row := range rows {
		babies = append(babies, babydomain.BabyWithRole{Baby: row.Baby, Role: row.Role})
	}
	return babies, nil
}

func (r *PostgresRepository) UpdateBaby(ctx context.Context, baby *babydomain.Baby) error {
	return r.run(ctx, "babies.update", func(tx *gorm.DB) error {
		result := tx.Model(&babydomain.Baby{}).
			Where("id = ?", baby.ID).
			Updates(map[string]any{
				"name":       baby.Name,
				"birth_date": baby.BirthDate,
				"gender":     baby.Gender,
				"photo":      baby.Photo,
				"updated_at": baby.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return babydomain.ErrBabyNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) DeleteBaby(ctx context.Context, babyID string) error {
	return r.run(ctx, "babies.delete", func(tx *gorm.DB) error {
		result := tx.Delete(&babydomain.Baby{}, "id = ?", babyID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return babydomain.ErrBabyNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) AddCollaborator(ctx context.Context, collaborator *babydomain.Collaborator) error {
	return r.run(ctx, "collaborators.add", func(tx *gorm.DB) error {
		return tx.Create(collaborator).Error
	})
}

func (r *PostgresRepository) GetCollaborator(ctx context.Context, babyID, userID string) (*babydomain.Collaborator, error) {
	var collaborator babydomain.Collaborator
	err := r.run(ctx, "collaborators.get", func(tx *gorm.DB) error {
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

func (r *PostgresRepository) ListCollaborators(ctx context.Context, babyID string) ([]babydomain.CollaboratorProfile, error) {
	type collaboratorRow struct {
		UserID     string      `gorm:"column:user_id"`
		Role       access.Role `gorm:"column:role"`
		Status     string      `gorm:"column:status"`
		InvitedBy  *string     `gorm:"column:invited_by"`
		InvitedAt  *time.Time  `gorm:"column:invited_at"`
		AcceptedAt *time.Time  `gorm:"column:accepted_at"`
		Email      *string     `gorm:"column:email"`
		AvatarURL  *string     `gorm:"column:avatar_url"`
	}

	var rows []collaboratorRow
	err := r.run(ctx, "collaborators.list", func(tx *gorm.DB) error {
		return tx.Table("baby_collaborators").
			Select("baby_collaborators.user_id, baby_collaborators.role, baby_collaborators.status, baby_collaborators.invited_by, baby_collaborators.invited_at, baby_collaborators.accepted_at, user_profiles.email, user_profiles.avatar_url").
			Joins("left join user_profiles on user_profiles.user_id = baby_collaborators.user_id").
			Where("baby_collaborators.baby_id = ?", babyID).
			Order("baby_collaborators.created_at asc").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	collaborators := make([]babydomain.CollaboratorProfile, 0, len(rows))
	for _, row := range rows {
		collaborators = append(collaborators, babydomain.CollaboratorProfile{
			UserID:     row.UserID,
			Role:       row.Role,
			Status:     row.Status,
			InvitedBy:  row.InvitedBy,
			InvitedAt:  row.InvitedAt,
			AcceptedAt: row.AcceptedAt,
			Email:      row.Email,
			AvatarURL:  row.AvatarURL,
		})
	}
	return collaborators, nil
}

func (r *PostgresRepository) UpdateCollaboratorRole(ctx context.Context, babyID, userID string, role access.Role) error {
	return r.run(ctx, "collaborators.update_role", func(tx *gorm.DB) error {
		result := tx.Model(&babydomain.Collaborator{}).
			Where("baby_id = ? AND user_id = ?", babyID, userID).
			Update("role", role)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return babydomain.ErrCollaboratorNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) DeleteCollaborator(ctx context.Context, babyID, userID string) error {
	return r.run(ctx, "collaborators.delete", func(tx *gorm.DB) error {
		result := tx.Delete(&babydomain.Collaborator{}, "baby_id = ? AND user_id = ?", babyID, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return babydomain.ErrCollaboratorNotFound
		}
		return nil
	})
}

var passthrough = []error{
	babydomain.ErrBabyNotFound,
	babydomain.ErrCollaboratorNotFound,
	babydomain.ErrCannotRemoveOwner,
	babydomain.ErrOwnerCannotLeave,
	access.ErrPermissionDenied,
	access.ErrOwnerNotAssignable,
	access.ErrOwnerImmutable,
	access.ErrSelfRoleChange,
}

func (r *PostgresRepository) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	if r.inTx {
		return db.Store(op, fn(r.conn.WithContext(ctx)), passthrough...)
	}
	return db.Store(op, db.Scoped(ctx, r.conn, fn), passthrough...)
}
