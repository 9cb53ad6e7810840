package activity

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Entry is one append-only row of the activity log. Rows are written by
// database triggers; the application only reads them.
type Entry struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	BabyID     string         `gorm:"type:uuid;not null" json:"baby_id"`
	UserID     *string        `gorm:"type:uuid" json:"user_id,omitempty"`
	UserEmail  *string        `gorm:"->;column:user_email" json:"user_email,omitempty"`
	Action     string         `gorm:"type:varchar(16);not null" json:"action"`
	RecordType string         `gorm:"type:varchar(16);not null" json:"record_type"`
	RecordID   *string        `gorm:"type:uuid" json:"record_id,omitempty"`
	Changes    datatypes.JSON `gorm:"type:jsonb" json:"changes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Entry) TableName() string {
	return "activity_logs"
}
