package records

import (
	"strings"
	"time"
)

type Kind string

const (
	KindFeeding Kind = "feeding"
	KindSleep   Kind = "sleep"
	KindDiaper  Kind = "diaper"
	KindHealth  Kind = "health"
)

// Meta is the part of every record the server owns. Clients never set it.
type Meta struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BabyID    string    `gorm:"type:uuid;not null" json:"baby_id"`
	UserID    string    `gorm:"type:uuid;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Meta) meta() *Meta {
	return m
}

// Record is implemented by pointers to the four record shapes.
type Record interface {
	Kind() Kind
	TableName() string
	// OrderColumn is the primary timestamp lists are sorted by, newest first.
	OrderColumn() string
	At() time.Time

	meta() *Meta
	normalize(now time.Time) error
}

// Filter narrows a list on the primary timestamp. Zero values mean unbounded.
type Filter struct {
	From  time.Time
	To    time.Time
	Limit int
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	value := strings.TrimSpace(*notes)
	if value == "" {
		return nil
	}
	return &value
}

// MetaOf exposes the server-owned fields of item to storage adapters.
func MetaOf[T any, P interface {
	*T
	Record
}](item *T) *Meta {
	return P(item).meta()
}
