package activity

import (
	"context"

	"babytrack-go/internal/db"
	activitydomain "babytrack-go/internal/domain/activity"
	"gorm.io/gorm"
)

type PostgresRepository struct {
	conn *gorm.DB
}

func NewPostgres(conn *gorm.DB) *PostgresRepository {
	return &PostgresRepository{conn: conn}
}

func (r *PostgresRepository) List(ctx context.Context, babyID string, limit int) ([]activitydomain.Entry, error) {
	entries := make([]activitydomain.Entry, 0)
	err := db.Scoped(ctx, r.conn, func(tx *gorm.DB) error {
		return tx.Table("activity_logs").
			Select("activity_logs.*, user_profiles.email AS user_email").
			Joins("left join user_profiles on user_profiles.user_id = activity_logs.user_id").
			Where("activity_logs.baby_id = ?", babyID).
			Order("activity_logs.created_at desc").
			Limit(limit).
			Find(&entries).Error
	})
	if err != nil {
		return nil, db.Store("activity.list", err)
	}
	return entries, nil
}
