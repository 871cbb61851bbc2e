package models

import (
	"fmt"
	"time"
)

type Category string

const (
	CategoryTaskReward   Category = "task_reward"
	CategoryReferral     Category = "referral"
	CategoryDailyCheckin Category = "daily_checkin"
	CategoryTelegramJoin Category = "telegram_join"
	CategoryAdminCredit  Category = "admin_credit"
	CategoryAdminDebit   Category = "admin_debit"
	CategoryWithdrawal   Category = "withdrawal"
)

func (c Category) IsDebit() bool {
	return c == CategoryAdminDebit || c == CategoryWithdrawal
}

func (c Category) Valid() bool {
	switch c {
	case CategoryTaskReward, CategoryReferral, CategoryDailyCheckin, CategoryTelegramJoin,
		CategoryAdminCredit, CategoryAdminDebit, CategoryWithdrawal:
		return true
	}
	return false
}

// Transaction is a ledger entry. Amount is the magnitude; Category gives the direction.
type Transaction struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Category  Category  `gorm:"size:32;not null;index" json:"category"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (t *Transaction) SignedAmount() int64 {
	if t.Category.IsDebit() {
		return -t.Amount
	}
	return t.Amount
}

func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction(%s, user=%s, %s %d)", t.ID, t.UserID, t.Category, t.SignedAmount())
}
