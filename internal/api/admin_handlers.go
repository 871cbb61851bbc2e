package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/tasks"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func (s *Service) HandleListSubmissions() echo.HandlerFunc {
	return func(c echo.Context) error {
		status := models.SubmissionStatus(c.QueryParam("status"))
		list, err := s.tasks.ListSubmissions(c.Request().Context(), status)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (s *Service) HandleApproveSubmission() echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := s.tasks.Approve(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

type rejectSubmissionRequest struct {
	Reason string `json:"reason" validate:"max=512"`
}

func (s *Service) HandleRejectSubmission() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req rejectSubmissionRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		sub, err := s.tasks.Reject(c.Request().Context(), c.Param("id"), req.Reason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, sub)
	}
}

func (s *Service) HandleListWithdrawals() echo.HandlerFunc {
	return func(c echo.Context) error {
		status := models.WithdrawalStatus(c.QueryParam("status"))
		list, err := s.withdrawals.List(c.Request().Context(), status)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

type processWithdrawalRequest struct {
	Notes string `json:"notes" validate:"max=512"`
}

func (s *Service) HandleApproveWithdrawal() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req processWithdrawalRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		res, err := s.withdrawals.Approve(c.Request().Context(), c.Param("id"), req.Notes)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (s *Service) HandleRejectWithdrawal() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req processWithdrawalRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		w, err := s.withdrawals.Reject(c.Request().Context(), c.Param("id"), req.Notes)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, w)
	}
}

func (s *Service) HandleListTasks() echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := s.tasks.ListTasks(c.Request().Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

type createTaskRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	Price        int64  `json:"price" validate:"required,gt=0"`
	Enabled      *bool  `json:"enabled"`
	TimerSeconds int    `json:"timer_seconds" validate:"gte=0"`
	URL          string `json:"url" validate:"omitempty,url"`
}

func (s *Service) HandleCreateTask() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		task := &models.Task{
			Title:        req.Title,
			Description:  req.Description,
			Instructions: req.Instructions,
			Price:        req.Price,
			Enabled:      req.Enabled == nil || *req.Enabled,
			TimerSeconds: req.TimerSeconds,
			URL:          req.URL,
		}
		if err := s.tasks.CreateTask(c.Request().Context(), task); err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func (s *Service) HandleUpdateTask() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req tasks.TaskUpdate
		if err := bind(c, &req); err != nil {
			return err
		}

		task, err := s.tasks.UpdateTask(c.Request().Context(), c.Param("id"), &req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func (s *Service) HandleGetUser() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.users.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

type adjustRequest struct {
	Amount int64  `json:"amount" validate:"required,ne=0"`
	Reason string `json:"reason" validate:"required,max=256"`
}

func (s *Service) HandleAdjustBalance() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req adjustRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		txn, err := s.users.Adjust(c.Request().Context(), c.Param("id"), req.Amount, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, txn)
	}
}

type banRequest struct {
	Type     models.BanType `json:"type" validate:"required,oneof=permanent temporary"`
	Duration string         `json:"duration" validate:"required_if=Type temporary"`
	Reason   string         `json:"reason" validate:"max=256"`
}

func (s *Service) HandleBan() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req banRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		var duration time.Duration
		if req.Duration != "" {
			d, err := time.ParseDuration(req.Duration)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("bad duration: %v", err)})
			}
			duration = d
		}

		user, err := s.users.Ban(c.Request().Context(), c.Param("id"), req.Type, duration, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		logrus.Infof("admin banned user %s (%s)", user.ID, req.Type)
		return c.JSON(http.StatusOK, user)
	}
}

func (s *Service) HandleUnban() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.users.Unban(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

func (s *Service) HandleAudit() echo.HandlerFunc {
	return func(c echo.Context) error {
		audit, err := s.users.Audit(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"user_id":        audit.UserID,
			"stored_balance": audit.StoredBalance,
			"ledger_balance": audit.LedgerBalance,
			"entries":        audit.Entries,
			"consistent":     audit.Consistent(),
		})
	}
}
