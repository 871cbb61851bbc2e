package models

import "time"

// Referral links a referred user to the user whose code they signed up with.
// RewardAmount accumulates every bonus paid to the referrer for this user.
type Referral struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID   string `gorm:"type:uuid;not null;index" json:"referrer_id"`
	ReferredID   string `gorm:"type:uuid;not null;uniqueIndex" json:"referred_id"`
	RewardAmount int64  `gorm:"not null" json:"reward_amount"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
