package baby

import (
	"time"

	"babytrack-go/internal/domain/access"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

type Baby struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	BirthDate time.Time `gorm:"type:date;not null" json:"birth_date"`
	Gender    *string   `gorm:"type:varchar(16)" json:"gender,omitempty"`
	Photo     *string   `gorm:"type:text" json:"photo,omitempty"`
	CreatedBy string    `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Baby) TableName() string {
	return "babies"
}

// Collaborator grants one user a role on one baby. At most one row exists
// per (baby, user).
type Collaborator struct {
	ID         string      `gorm:"type:uuid;primaryKey"`
	BabyID     string      `gorm:"type:uuid;not null"`
	UserID     string      `gorm:"type:uuid;not null"`
	Role       access.Role `gorm:"type:varchar(16);not null"`
	Status     string      `gorm:"type:varchar(16);not null"`
	InvitedBy  *string     `gorm:"type:uuid"`
	InvitedAt  *time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
}

func (Collaborator) TableName() string {
	return "baby_collaborators"
}

type BabyWithRole struct {
	Baby
	Role access.Role
}

type CollaboratorProfile struct {
	UserID     string
	Role       access.Role
	Status     string
	InvitedBy  *string
	InvitedAt  *time.Time
	AcceptedAt *time.Time
	Email      *string
	AvatarURL  *string
}

type BabyInput struct {
	Name      string
	BirthDate time.Time
	Gender    *string
	Photo     *string
}

// BabyPatch carries only the fields to change; nil leaves a field untouched.
type BabyPatch struct {
	Name       *string
	BirthDate  *time.Time
	Gender     *string
	Photo      *string
	ClearPhoto bool
}
