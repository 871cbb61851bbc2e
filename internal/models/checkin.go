package models

import "time"

type DailyCheckin struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Day       int       `gorm:"not null" json:"day"`
	Amount    int64     `gorm:"not null" json:"amount"`
	ClaimedAt time.Time `gorm:"not null;index" json:"claimed_at"`
}
