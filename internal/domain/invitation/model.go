package invitation

import (
	"time"

	"babytrack-go/internal/domain/access"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusCancelled = "cancelled"
)

// Invitation lets whoever signs in with Email join BabyID as Role. Expiry is
// never stored as a status; a pending row past ExpiresAt is inert.
type Invitation struct {
	ID         string      `gorm:"type:uuid;primaryKey"`
	BabyID     string      `gorm:"type:uuid;not null"`
	Email      string      `gorm:"not null"`
	Role       access.Role `gorm:"type:varchar(16);not null"`
	Token      string      `gorm:"size:64;not null;uniqueIndex"`
	InvitedBy  string      `gorm:"type:uuid;not null"`
	Status     string      `gorm:"type:varchar(16);not null"`
	ExpiresAt  time.Time   `gorm:"not null"`
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Actor is the authenticated user driving an invitation operation.
type Actor struct {
	UserID string
	Email  string
	Name   string
}

type Summary struct {
	ID        string
	BabyID    string
	BabyName  string
	Email     string
	Role      access.Role
	ExpiresAt time.Time
}

type Pending struct {
	Invitation
	Expired bool
}

type CreateResult struct {
	Invitation Invitation
	Link       string
	EmailSent  bool
	EmailErr   error
}

type AcceptResult struct {
	BabyID              string
	Role                access.Role
	AlreadyCollaborator bool
}
