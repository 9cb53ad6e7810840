package access

import (
	"context"

	"babytrack-go/internal/db"
	accessdomain "babytrack-go/internal/domain/access"
	"gorm.io/gorm"
)

type PostgresRepository struct {
	conn *gorm.DB
}

func NewPostgres(conn *gorm.DB) *PostgresRepository {
	return &PostgresRepository{conn: conn}
}

// GetAcceptedRole asks get_user_baby_role, the same function the row
// policies use, so the resolver and the database cannot disagree. An unknown
// stored value fails here instead of reaching a permission check.
func (r *PostgresRepository) GetAcceptedRole(ctx context.Context, babyID, userID string) (accessdomain.Role, error) {
	var row struct {
		Role *string `gorm:"column:role"`
	}
	err := r.conn.WithContext(ctx).
		Raw("SELECT get_user_baby_role(?, ?) AS role", babyID, userID).
		Scan(&row).Error
	if err != nil {
		return accessdomain.RoleNone, db.Store("access.get_role", err)
	}
	if row.Role == nil {
		return accessdomain.RoleNone, nil
	}
	parsed, err := accessdomain.ParseRole(*row.Role)
	if err != nil {
		return accessdomain.RoleNone, db.Store("access.get_role", err)
	}
	return parsed, nil
}
