package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	ID      string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  string `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount  int64  `gorm:"not null" json:"amount"`
	Method  string `gorm:"size:32;not null" json:"method"`
	Details string `gorm:"not null" json:"details"`
	// PayoutTo is the identifier the payout settles to, fixed on approval.
	PayoutTo string           `json:"payout_to"`
	Status   WithdrawalStatus `gorm:"size:16;not null;index" json:"status"`

	RequestedAt time.Time  `gorm:"autoCreateTime" json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	AdminNotes  string     `json:"admin_notes"`
}
