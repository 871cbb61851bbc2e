package models

import "time"

type BanType string

const (
	BanTypePermanent BanType = "permanent"
	BanTypeTemporary BanType = "temporary"
)

type User struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Phone    string `gorm:"uniqueIndex;not null" json:"phone"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	PasswordHash string `json:"-"`
	ReferralCode string `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`

	// Balance is a projection of the user's transactions.
	// Only the ledger changes it.
	Balance int64 `gorm:"not null;default:0" json:"balance"`

	ReferrerID         *string `gorm:"type:uuid;index" json:"referrer_id"`
	FirstTaskCompleted bool    `gorm:"not null;default:false" json:"first_task_completed"`
	TelegramJoined     bool    `gorm:"not null;default:false" json:"telegram_joined"`
	// TelegramID is the account that earned the join bonus.
	TelegramID         *int64  `gorm:"uniqueIndex" json:"telegram_id"`

	UPI           string `gorm:"column:upi" json:"upi"`
	UPILocked     bool   `gorm:"column:upi_locked;not null;default:false" json:"upi_locked"`
	RegisteredUPI string `gorm:"column:registered_upi" json:"registered_upi"`

	Banned    bool       `gorm:"not null;default:false;index" json:"banned"`
	BanType   BanType    `json:"ban_type"`
	BanExpiry *time.Time `json:"ban_expiry"`
	BanReason string     `json:"ban_reason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsBanned reports whether the ban is in force at now.
// A temporary ban past its expiry no longer counts even if the sweeper has not lifted it yet.
func (u *User) IsBanned(now time.Time) bool {
	if !u.Banned {
		return false
	}
	if u.BanType == BanTypeTemporary && u.BanExpiry != nil && !now.Before(*u.BanExpiry) {
		return false
	}
	return true
}
