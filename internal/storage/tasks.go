package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return wrapCreate(err, "task")
	}
	return nil
}

func (s *Storage) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, wrapGet(err, "task", taskID)
	}
	return &task, nil
}

func (s *Storage) UpdateTask(ctx context.Context, taskID string, updates map[string]any) error {
	res := s.db.
		WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", taskID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("updating task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: task %s", errs.ErrNotFound, taskID)
	}
	return nil
}

func (s *Storage) ListTasks(ctx context.Context) ([]*models.Task, error) {
	var result []*models.Task
	if err := s.db.WithContext(ctx).Order("created_at").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return result, nil
}

// ListAvailableTasks returns enabled tasks the user has not completed.
func (s *Storage) ListAvailableTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	var result []*models.Task
	completed := s.db.Model(&models.CompletedTask{}).Select("task_id").Where("user_id = ?", userID)
	if err := s.db.
		WithContext(ctx).
		Where("enabled = ? AND id NOT IN (?)", true, completed).
		Order("created_at").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing available tasks: %w", err)
	}
	return result, nil
}

func (s *Storage) IsTaskCompleted(ctx context.Context, userID, taskID string) (bool, error) {
	var count int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.CompletedTask{}).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Count(&count).
		Error; err != nil {
		return false, fmt.Errorf("checking completed task: %w", err)
	}
	return count > 0, nil
}

// AddCompletedTask records the task as done for the user; an existing record is kept as is.
func (s *Storage) AddCompletedTask(ctx context.Context, userID, taskID string) error {
	if err := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "task_id"},
			},
			DoNothing: true,
		}).
		Create(&models.CompletedTask{UserID: userID, TaskID: taskID}).
		Error; err != nil {
		return fmt.Errorf("creating completed task: %w", err)
	}
	return nil
}

func (s *Storage) HasPendingSubmission(ctx context.Context, userID, taskID string) (bool, error) {
	var count int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.TaskSubmission{}).
		Where("user_id = ? AND task_id = ? AND status = ?", userID, taskID, models.SubmissionStatusPending).
		Count(&count).
		Error; err != nil {
		return false, fmt.Errorf("checking pending submission: %w", err)
	}
	return count > 0, nil
}

func (s *Storage) CreateSubmission(ctx context.Context, sub *models.TaskSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return wrapCreate(err, "submission")
	}
	return nil
}

func (s *Storage) GetSubmission(ctx context.Context, submissionID string) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission
	if err := s.db.WithContext(ctx).Where("id = ?", submissionID).First(&sub).Error; err != nil {
		return nil, wrapGet(err, "submission", submissionID)
	}
	return &sub, nil
}

func (s *Storage) ApproveSubmission(ctx context.Context, submissionID string, reviewedAt time.Time) error {
	return s.transition(ctx, &models.TaskSubmission{}, "submission", submissionID, models.SubmissionStatusPending, map[string]any{
		"status":      models.SubmissionStatusApproved,
		"reviewed_at": reviewedAt,
	})
}

func (s *Storage) RejectSubmission(ctx context.Context, submissionID, reason string, reviewedAt time.Time) error {
	return s.transition(ctx, &models.TaskSubmission{}, "submission", submissionID, models.SubmissionStatusPending, map[string]any{
		"status":           models.SubmissionStatusRejected,
		"reviewed_at":      reviewedAt,
		"rejection_reason": reason,
	})
}

// ListSubmissions returns submissions with the given status, oldest first.
// An empty status matches all of them.
func (s *Storage) ListSubmissions(ctx context.Context, status models.SubmissionStatus, limit int) ([]*models.TaskSubmission, error) {
	var result []*models.TaskSubmission
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("submitted_at").Limit(limit).Find(&result).Error; err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return result, nil
}

func (s *Storage) ListUserSubmissions(ctx context.Context, userID string, limit int) ([]*models.TaskSubmission, error) {
	var result []*models.TaskSubmission
	if err := s.db.
		WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing user submissions: %w", err)
	}
	return result, nil
}
