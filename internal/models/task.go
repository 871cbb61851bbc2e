package models

import "time"

type Task struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string `gorm:"not null" json:"title"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	Price        int64  `gorm:"not null" json:"price"`
	Enabled      bool   `gorm:"not null;index" json:"enabled"`
	TimerSeconds int    `json:"timer_seconds"`
	URL          string `gorm:"column:url" json:"url"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

type TaskSubmission struct {
	ID     string           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string           `gorm:"type:uuid;not null;index:idx_submission_user_task" json:"user_id"`
	TaskID string           `gorm:"type:uuid;not null;index:idx_submission_user_task" json:"task_id"`
	Status SubmissionStatus `gorm:"size:16;not null;index" json:"status"`

	SubmittedAt     time.Time  `gorm:"autoCreateTime" json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason string     `json:"rejection_reason"`
}

type CompletedTask struct {
	UserID      string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	TaskID      string    `gorm:"type:uuid;primaryKey" json:"task_id"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}
