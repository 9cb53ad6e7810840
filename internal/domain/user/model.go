package user

import "time"

// Profile mirrors the identity provider's user so collaborator listings can
// show an e-mail without calling the provider.
type Profile struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	Email     *string   `gorm:"type:text" json:"email,omitempty"`
	AvatarURL *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "user_profiles"
}
