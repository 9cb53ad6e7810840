package records

import (
	"context"
	"errors"

	"babytrack-go/internal/db"
	recordsdomain "babytrack-go/internal/domain/records"
	"gorm.io/gorm"
)

// PostgresRepository stores one record shape in its own table. The same
// implementation serves all four shapes.
type PostgresRepository[T any, P interface {
	*T
	recordsdomain.Record
}] struct {
	conn *gorm.DB
}

func NewPostgres[T any, P interface {
	*T
	recordsdomain.Record
}](conn *gorm.DB) *PostgresRepository[T, P] {
	return &PostgresRepository[T, P]{conn: conn}
}

func (r *PostgresRepository[T, P]) List(ctx context.Context, babyID string, filter recordsdomain.Filter) ([]T, error) {
	var zero T
	record := P(&zero)
	column := record.OrderColumn()

	items := make([]T, 0)
	err := r.run(ctx, "list", func(tx *gorm.DB) error {
		query := tx.Table(record.TableName()).Where("baby_id = ?", babyID)
		if !filter.From.IsZero() {
			query = query.Where(column+" >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			query = query.Where(column+" <= ?", filter.To)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query.Order(column + " desc").Order("created_at desc").Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository[T, P]) Get(ctx context.Context, babyID, id string) (*T, error) {
	var item T
	err := r.run(ctx, "get", func(tx *gorm.DB) error {
		err := tx.Table(P(&item).TableName()).Where("id = ? AND baby_id = ?", id, babyID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return recordsdomain.ErrRecordNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PostgresRepository[T, P]) Create(ctx context.Context, item *T) error {
	return r.run(ctx, "create", func(tx *gorm.DB) error {
		return tx.Table(P(item).TableName()).Create(item).Error
	})
}

// Update overwrites every payload column, clearing optional ones the new
// payload leaves out.
func (r *PostgresRepository[T, P]) Update(ctx context.Context, item *T) error {
	meta := recordsdomain.MetaOf[T, P](item)
	return r.run(ctx, "update", func(tx *gorm.DB) error {
		result := tx.Table(P(item).TableName()).
			Where("id = ? AND baby_id = ?", meta.ID, meta.BabyID).
			Select("*").
			Omit("id", "baby_id", "user_id", "created_at").
			Updates(item)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return recordsdomain.ErrRecordNotFound
		}
		return nil
	})
}

func (r *PostgresRepository[T, P]) Delete(ctx context.Context, babyID, id string) error {
	var zero T
	return r.run(ctx, "delete", func(tx *gorm.DB) error {
		result := tx.Table(P(&zero).TableName()).Where("id = ? AND baby_id = ?", id, babyID).Delete(&zero)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return recordsdomain.ErrRecordNotFound
		}
		return nil
	})
}

func (r *PostgresRepository[T, P]) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var zero T
	op = string(P(&zero).Kind()) + "." + op
	return db.Store(op, db.Scoped(ctx, r.conn, fn), recordsdomain.ErrRecordNotFound)
}
