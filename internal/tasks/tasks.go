package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/metrics"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/referral"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/sirupsen/logrus"
)

const listLimit = 100

type Service struct {
	storage  *storage.Storage
	ledger   *ledger.Ledger
	referral *referral.Engine
	hub      *notify.Hub
	now      func() time.Time
	log      *logrus.Entry
}

func New(st *storage.Storage, l *ledger.Ledger, ref *referral.Engine, hub *notify.Hub) *Service {
	return &Service{
		storage:  st,
		ledger:   l,
		referral: ref,
		hub:      hub,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logrus.WithField("component", "tasks"),
	}
}

// Submit records the user's claim of having done the task.
// A user gets one pending submission per task at a time.
func (s *Service) Submit(ctx context.Context, userID, taskID string) (*models.TaskSubmission, error) {
	var sub *models.TaskSubmission
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsBanned(s.now()) {
			return fmt.Errorf("%w: user %s is banned", errs.ErrForbidden, userID)
		}

		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.Enabled {
			return fmt.Errorf("%w: task %s is not available", errs.ErrNotFound, taskID)
		}

		done, err := tx.IsTaskCompleted(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if done {
			return fmt.Errorf("%w: task %s already completed", errs.ErrConflict, taskID)
		}

		pending, err := tx.HasPendingSubmission(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: task %s already awaits review", errs.ErrConflict, taskID)
		}

		sub = &models.TaskSubmission{
			UserID: userID,
			TaskID: taskID,
			Status: models.SubmissionStatusPending,
		}
		return tx.CreateSubmission(ctx, sub)
	}); err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues("submission", string(models.SubmissionStatusPending)).Inc()
	s.log.WithFields(logrus.Fields{"user_id": userID, "task_id": taskID, "submission_id": sub.ID}).Info("task submitted")
	_ = s.hub.Notify(ctx, userID, notify.KindTaskSubmitted, sub.ID, "Your submission is waiting for review.")
	return sub, nil
}

type ApproveResult struct {
	Submission   *models.TaskSubmission `json:"submission"`
	Transaction  *models.Transaction    `json:"transaction"`
	ReferralPaid bool                   `json:"referral_paid"`
}

// Approve moves a pending submission to approved, marks the task completed,
// pays the task price and fires the first-task referral bonus, all in one
// transaction. Approving anything that is not pending fails with
// errs.ErrInvalidState and writes nothing.
func (s *Service) Approve(ctx context.Context, submissionID string) (*ApproveResult, error) {
	result := &ApproveResult{}
	var (
		user *models.User
		task *models.Task
	)
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		reviewedAt := s.now()
		if err := tx.ApproveSubmission(ctx, submissionID, reviewedAt); err != nil {
			return err
		}
		sub.Status = models.SubmissionStatusApproved
		sub.ReviewedAt = &reviewedAt
		result.Submission = sub

		if task, err = tx.GetTask(ctx, sub.TaskID); err != nil {
			return err
		}
		if user, err = tx.GetUserForUpdate(ctx, sub.UserID); err != nil {
			return err
		}
		if err := tx.AddCompletedTask(ctx, sub.UserID, sub.TaskID); err != nil {
			return err
		}

		if result.Transaction, err = s.ledger.Credit(
			ctx, tx, user.ID, task.Price, models.CategoryTaskReward,
			fmt.Sprintf("task: %s", task.Title),
		); err != nil {
			return err
		}

		result.ReferralPaid, err = s.referral.OnTaskApproved(ctx, tx, user)
		return err
	}); err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues("submission", string(models.SubmissionStatusApproved)).Inc()
	s.log.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"user_id":       user.ID,
		"reward":        task.Price,
		"referral_paid": result.ReferralPaid,
	}).Info("submission approved")

	_ = s.hub.Notify(ctx, user.ID, notify.KindTaskApproved, submissionID,
		fmt.Sprintf("Task %q approved, %d credited.", task.Title, task.Price))
	if result.ReferralPaid {
		_ = s.hub.Notify(ctx, *user.ReferrerID, notify.KindReferralBonus, user.ID,
			fmt.Sprintf("%s completed their first task, %d credited.", user.Username, s.referral.Bonuses().FirstTask))
	}
	return result, nil
}

// Reject closes a pending submission without touching any balance.
func (s *Service) Reject(ctx context.Context, submissionID, reason string) (*models.TaskSubmission, error) {
	var sub *models.TaskSubmission
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		if err := tx.RejectSubmission(ctx, submissionID, reason, s.now()); err != nil {
			return err
		}
		var err error
		sub, err = tx.GetSubmission(ctx, submissionID)
		return err
	}); err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues("submission", string(models.SubmissionStatusRejected)).Inc()
	s.log.WithFields(logrus.Fields{"submission_id": submissionID, "reason": reason}).Info("submission rejected")
	_ = s.hub.Notify(ctx, sub.UserID, notify.KindTaskRejected, submissionID,
		fmt.Sprintf("Your submission was rejected: %s", reason))
	return sub, nil
}

func (s *Service) Available(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.storage.ListAvailableTasks(ctx, userID)
}

func (s *Service) ListSubmissions(ctx context.Context, status models.SubmissionStatus) ([]*models.TaskSubmission, error) {
	return s.storage.ListSubmissions(ctx, status, listLimit)
}

func (s *Service) UserSubmissions(ctx context.Context, userID string) ([]*models.TaskSubmission, error) {
	return s.storage.ListUserSubmissions(ctx, userID, listLimit)
}

func (s *Service) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	return s.storage.GetTask(ctx, taskID)
}

func (s *Service) ListTasks(ctx context.Context) ([]*models.Task, error) {
	return s.storage.ListTasks(ctx)
}

func (s *Service) CreateTask(ctx context.Context, task *models.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrInvalidArgument)
	}
	if task.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", errs.ErrInvalidArgument)
	}
	if task.TimerSeconds < 0 {
		return fmt.Errorf("%w: timer must not be negative", errs.ErrInvalidArgument)
	}
	if err := s.storage.CreateTask(ctx, task); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"task_id": task.ID, "price": task.Price}).Info("task created")
	return nil
}

// TaskUpdate changes only the fields that are set.
type TaskUpdate struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Instructions *string `json:"instructions"`
	Price        *int64  `json:"price"`
	Enabled      *bool   `json:"enabled"`
	TimerSeconds *int    `json:"timer_seconds"`
	URL          *string `json:"url"`
}

func (u *TaskUpdate) columns() (map[string]any, error) {
	cols := make(map[string]any)
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", errs.ErrInvalidArgument)
		}
		cols["title"] = title
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Instructions != nil {
		cols["instructions"] = *u.Instructions
	}
	if u.Price != nil {
		if *u.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", errs.ErrInvalidArgument)
		}
		cols["price"] = *u.Price
	}
	if u.Enabled != nil {
		cols["enabled"] = *u.Enabled
	}
	if u.TimerSeconds != nil {
		if *u.TimerSeconds < 0 {
			return nil, fmt.Errorf("%w: timer must not be negative", errs.ErrInvalidArgument)
		}
		cols["timer_seconds"] = *u.TimerSeconds
	}
	if u.URL != nil {
		cols["url"] = *u.URL
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", errs.ErrInvalidArgument)
	}
	return cols, nil
}

func (s *Service) UpdateTask(ctx context.Context, taskID string, update *TaskUpdate) (*models.Task, error) {
	cols, err := update.columns()
	if err != nil {
		return nil, err
	}
	if err := s.storage.UpdateTask(ctx, taskID, cols); err != nil {
		return nil, err
	}
	return s.storage.GetTask(ctx, taskID)
}
