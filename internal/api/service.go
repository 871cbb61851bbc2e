package api

import (
	"github.com/C4T-BuT-S4D/taskpay/internal/authutil"
	"github.com/C4T-BuT-S4D/taskpay/internal/checkin"
	"github.com/C4T-BuT-S4D/taskpay/internal/config"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/tasks"
	"github.com/C4T-BuT-S4D/taskpay/internal/users"
	"github.com/C4T-BuT-S4D/taskpay/internal/withdrawal"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Service struct {
	config *config.Config
	tokens *authutil.Tokens

	users       *users.Service
	tasks       *tasks.Service
	withdrawals *withdrawal.Service
	checkins    *checkin.Tracker
	hub         *notify.Hub
}

func NewService(
	cfg *config.Config,
	tokens *authutil.Tokens,
	users *users.Service,
	tasks *tasks.Service,
	withdrawals *withdrawal.Service,
	checkins *checkin.Tracker,
	hub *notify.Hub,
) *Service {
	return &Service{
		config:      cfg,
		tokens:      tokens,
		users:       users,
		tasks:       tasks,
		withdrawals: withdrawals,
		checkins:    checkins,
		hub:         hub,
	}
}

// Register mounts every route on e.
func (s *Service) Register(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	pub := e.Group("/api")
	pub.POST("/signup", s.HandleSignup())
	pub.POST("/login", s.HandleLogin())

	user := e.Group("/api", s.RequireUser())
	user.GET("/me", s.HandleMe())
	user.GET("/tasks", s.HandleAvailableTasks())
	user.POST("/tasks/:id/submit", s.HandleSubmitTask())
	user.GET("/submissions", s.HandleMySubmissions())
	user.GET("/transactions", s.HandleTransactions())
	user.POST("/withdrawals", s.HandleRequestWithdrawal())
	user.GET("/withdrawals", s.HandleMyWithdrawals())
	user.GET("/checkin", s.HandleCheckinStatus())
	user.POST("/checkin", s.HandleClaimCheckin())
	user.PUT("/upi", s.HandleUpdateUPI())
	user.POST("/telegram/join", s.HandleTelegramJoin())
	user.GET("/referrals", s.HandleReferrals())
	user.GET("/notifications", s.HandleNotifications())

	admin := e.Group("/admin", s.RequireAdmin())
	admin.GET("/submissions", s.HandleListSubmissions())
	admin.POST("/submissions/:id/approve", s.HandleApproveSubmission())
	admin.POST("/submissions/:id/reject", s.HandleRejectSubmission())
	admin.GET("/withdrawals", s.HandleListWithdrawals())
	admin.POST("/withdrawals/:id/approve", s.HandleApproveWithdrawal())
	admin.POST("/withdrawals/:id/reject", s.HandleRejectWithdrawal())
	admin.GET("/tasks", s.HandleListTasks())
	admin.POST("/tasks", s.HandleCreateTask())
	admin.PATCH("/tasks/:id", s.HandleUpdateTask())
	admin.GET("/users/:id", s.HandleGetUser())
	admin.POST("/users/:id/adjust", s.HandleAdjustBalance())
	admin.POST("/users/:id/ban", s.HandleBan())
	admin.DELETE("/users/:id/ban", s.HandleUnban())
	admin.GET("/users/:id/audit", s.HandleAudit())
}
