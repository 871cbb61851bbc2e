package api

import (
	"net/http"

	"github.com/C4T-BuT-S4D/taskpay/internal/users"
	"github.com/labstack/echo/v4"
)

type signupRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=6,max=20"`
	Username   string `json:"username" validate:"required,min=3,max=32"`
	Password   string `json:"password" validate:"required,min=6"`
	InviteCode string `json:"invite_code" validate:"max=16"`
}

func (s *Service) HandleSignup() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req signupRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		user, ref, err := s.users.Signup(c.Request().Context(), &users.SignupInput{
			Email:      req.Email,
			Phone:      req.Phone,
			Username:   req.Username,
			Password:   req.Password,
			InviteCode: req.InviteCode,
		})
		if err != nil {
			return fail(c, err)
		}

		token, err := s.tokens.Issue(user.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, echo.Map{
			"user":             user,
			"token":            token,
			"referral_applied": ref != nil,
		})
	}
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Service) HandleLogin() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		user, err := s.users.Login(c.Request().Context(), req.Login, req.Password)
		if err != nil {
			return fail(c, err)
		}
		token, err := s.tokens.Issue(user.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"user": user, "token": token})
	}
}

func (s *Service) HandleMe() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := s.users.Get(ctx, userID(c))
		if err != nil {
			return fail(c, err)
		}
		available, err := s.withdrawals.AvailableBalance(ctx, user.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"user": user, "available_balance": available})
	}
}

func (s *Service) HandleAvailableTasks() echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := s.tasks.Available(c.Request().Context(), userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (s *Service) HandleSubmitTask() echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := s.tasks.Submit(c.Request().Context(), userID(c), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, sub)
	}
}

func (s *Service) HandleMySubmissions() echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := s.tasks.UserSubmissions(c.Request().Context(), userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (s *Service) HandleTransactions() echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := s.users.History(c.Request().Context(), userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

type withdrawalRequest struct {
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Method  string `json:"method" validate:"omitempty,oneof=upi"`
	Details string `json:"details" validate:"required,max=128"`
}

func (s *Service) HandleRequestWithdrawal() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req withdrawalRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		w, err := s.withdrawals.Request(c.Request().Context(), userID(c), req.Amount, req.Method, req.Details)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, w)
	}
}

func (s *Service) HandleMyWithdrawals() echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := s.withdrawals.UserWithdrawals(c.Request().Context(), userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (s *Service) HandleCheckinStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := s.checkins.Status(c.Request().Context(), userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, st)
	}
}

func (s *Service) HandleClaimCheckin() echo.HandlerFunc {
	return func(c echo.Context) error {
		claim, err := s.checkins.Claim(c.Request().Context(), userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"day": claim.Day, "amount": claim.Amount})
	}
}

type upiRequest struct {
	UPI string `json:"upi" validate:"required,max=128"`
}

func (s *Service) HandleUpdateUPI() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req upiRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		user, err := s.users.UpdateUPI(c.Request().Context(), userID(c), req.UPI)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

type telegramJoinRequest struct {
	TelegramID int64 `json:"telegram_id" validate:"required"`
}

func (s *Service) HandleTelegramJoin() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req telegramJoinRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		txn, err := s.users.ClaimTelegramJoin(c.Request().Context(), userID(c), req.TelegramID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, txn)
	}
}

func (s *Service) HandleReferrals() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := s.users.Get(ctx, userID(c))
		if err != nil {
			return fail(c, err)
		}
		stats, err := s.users.ReferralStats(ctx, user.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"code":         user.ReferralCode,
			"referred":     stats.Referred,
			"total_earned": stats.TotalEarned,
		})
	}
}

func (s *Service) HandleNotifications() echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := s.hub.List(c.Request().Context(), userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}
