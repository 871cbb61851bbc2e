package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/authutil"
	"github.com/C4T-BuT-S4D/taskpay/internal/checkin"
	"github.com/C4T-BuT-S4D/taskpay/internal/config"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/referral"
	"github.com/C4T-BuT-S4D/taskpay/internal/tasks"
	"github.com/C4T-BuT-S4D/taskpay/internal/testutil"
	"github.com/C4T-BuT-S4D/taskpay/internal/users"
	"github.com/C4T-BuT-S4D/taskpay/internal/withdrawal"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "admin-token"

type client struct {
	t *testing.T
	e *echo.Echo
}

func newClient(t *testing.T) *client {
	st := testutil.NewStorage(t)
	l := ledger.New()
	hub := notify.NewHub(notify.NewMemoryStore(0))
	ref := referral.New(l, referral.DefaultBonuses)
	cfg := &config.Config{AdminToken: adminToken}

	service := NewService(
		cfg,
		authutil.NewTokens("jwt-secret", time.Hour),
		users.New(st, l, ref, hub),
		tasks.New(st, l, ref, hub),
		withdrawal.New(st, l, hub, 0),
		checkin.New(st, l, hub, 0),
		hub,
	)
	e := echo.New()
	service.Register(e)
	return &client{t: t, e: e}
}

// do sends the request and decodes the JSON response into out if it is not nil.
func (c *client) do(method, path, token string, body any, out any) int {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	switch token {
	case "":
	case adminToken:
		req.Header.Set(adminTokenHeader, token)
	default:
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type account struct {
	ID    string
	Code  string
	Token string
}

func (c *client) signup(name, code string) account {
	c.t.Helper()

	var resp struct {
		User struct {
			ID           string `json:"id"`
			ReferralCode string `json:"referral_code"`
		} `json:"user"`
		Token string `json:"token"`
	}
	status := c.do(http.MethodPost, "/api/signup", "", echo.Map{
		"email":       name + "@example.com",
		"phone":       "+9100000" + name,
		"username":    name,
		"password":    "password-" + name,
		"invite_code": code,
	}, &resp)
	require.Equal(c.t, http.StatusCreated, status)
	return account{ID: resp.User.ID, Code: resp.User.ReferralCode, Token: resp.Token}
}

type meResponse struct {
	User struct {
		Balance            int64  `json:"balance"`
		FirstTaskCompleted bool   `json:"first_task_completed"`
		UPILocked          bool   `json:"upi_locked"`
		RegisteredUPI      string `json:"registered_upi"`
	} `json:"user"`
	Available int64 `json:"available_balance"`
}

func (c *client) me(a account) meResponse {
	c.t.Helper()
	var m meResponse
	require.Equal(c.t, http.StatusOK, c.do(http.MethodGet, "/api/me", a.Token, nil, &m))
	return m
}

func (c *client) adjust(userID string, amount int64) {
	c.t.Helper()
	status := c.do(http.MethodPost, "/admin/users/"+userID+"/adjust", adminToken, echo.Map{
		"amount": amount,
		"reason": "test funding",
	}, nil)
	require.Equal(c.t, http.StatusOK, status)
}

func (c *client) withdraw(a account, amount int64, upi string) string {
	c.t.Helper()
	var w struct {
		ID string `json:"id"`
	}
	status := c.do(http.MethodPost, "/api/withdrawals", a.Token, echo.Map{"amount": amount, "details": upi}, &w)
	require.Equal(c.t, http.StatusCreated, status)
	return w.ID
}

func TestAPI_ReferralTaskWithdrawalFlow(t *testing.T) {
	c := newClient(t)

	b := c.signup("bravo", "")
	a := c.signup("alpha", b.Code)
	assert.Equal(t, int64(5), c.me(b).User.Balance)

	var refs struct {
		Referred    int64 `json:"referred"`
		TotalEarned int64 `json:"total_earned"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/referrals", b.Token, nil, &refs))
	assert.Equal(t, int64(1), refs.Referred)

	var task struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/admin/tasks", adminToken, echo.Map{
		"title": "Follow our page",
		"price": 20,
	}, &task))

	var available []struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/tasks", a.Token, nil, &available))
	require.Len(t, available, 1)

	var sub struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/tasks/"+task.ID+"/submit", a.Token, nil, &sub))
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/tasks/"+task.ID+"/submit", a.Token, nil, nil))

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/admin/submissions/"+sub.ID+"/approve", adminToken, nil, nil))
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/admin/submissions/"+sub.ID+"/approve", adminToken, nil, nil))

	aState := c.me(a)
	assert.Equal(t, int64(20), aState.User.Balance)
	assert.True(t, aState.User.FirstTaskCompleted)
	assert.Equal(t, int64(20), c.me(b).User.Balance)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/tasks", a.Token, nil, &available))
	assert.Empty(t, available)

	assert.Equal(t, http.StatusUnprocessableEntity,
		c.do(http.MethodPost, "/api/withdrawals", a.Token, echo.Map{"amount": 50, "details": "x@y"}, nil))

	c.adjust(a.ID, 60)
	first := c.withdraw(a, 50, "x@y")
	assert.Equal(t, int64(30), c.me(a).Available)

	var approved struct {
		UPILocked bool `json:"upi_locked"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/admin/withdrawals/"+first+"/approve", adminToken, echo.Map{"notes": "paid"}, &approved))
	assert.True(t, approved.UPILocked)

	aState = c.me(a)
	assert.Equal(t, int64(30), aState.User.Balance)
	assert.True(t, aState.User.UPILocked)
	assert.Equal(t, "x@y", aState.User.RegisteredUPI)

	assert.Equal(t, http.StatusConflict, c.do(http.MethodPut, "/api/upi", a.Token, echo.Map{"upi": "z@w"}, nil))

	c.adjust(a.ID, 40)
	second := c.withdraw(a, 50, "z@w")
	var secondResult struct {
		UPILocked  bool `json:"upi_locked"`
		Withdrawal struct {
			PayoutTo string `json:"payout_to"`
		} `json:"withdrawal"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/admin/withdrawals/"+second+"/approve", adminToken, nil, &secondResult))
	assert.False(t, secondResult.UPILocked)
	assert.Equal(t, "x@y", secondResult.Withdrawal.PayoutTo)

	aState = c.me(a)
	assert.Equal(t, int64(20), aState.User.Balance)
	assert.Equal(t, "x@y", aState.User.RegisteredUPI)

	for _, acc := range []account{a, b} {
		var audit struct {
			Consistent bool `json:"consistent"`
		}
		require.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/admin/users/%s/audit", acc.ID), adminToken, nil, &audit))
		assert.True(t, audit.Consistent)
	}

	var notes []struct {
		Kind string `json:"kind"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/notifications", a.Token, nil, &notes))
	require.NotEmpty(t, notes)
	assert.Equal(t, string(notify.KindWithdrawalApproved), notes[0].Kind)
}

func TestAPI_Auth(t *testing.T) {
	c := newClient(t)
	a := c.signup("alpha", "")

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/me", "garbage", nil, nil))
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/admin/tasks", a.Token, nil, nil))

	var login struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/login", "", echo.Map{
		"login":    "alpha@example.com",
		"password": "password-alpha",
	}, &login))
	assert.NotEmpty(t, login.Token)

	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/api/login", "", echo.Map{
		"login":    "alpha",
		"password": "nope",
	}, nil))

	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/signup", "", echo.Map{
		"email":    "alpha@example.com",
		"phone":    "+9111111111",
		"username": "someone",
		"password": "password",
	}, nil))

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/signup", "", echo.Map{
		"email":    "not-an-email",
		"phone":    "+9111111111",
		"username": "someone",
		"password": "password",
	}, nil))
}

func TestAPI_BanAndCheckin(t *testing.T) {
	c := newClient(t)
	a := c.signup("alpha", "")

	var claim struct {
		Day    int   `json:"day"`
		Amount int64 `json:"amount"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/checkin", a.Token, nil, &claim))
	assert.Equal(t, 1, claim.Day)
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodPost, "/api/checkin", a.Token, nil, nil))

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/admin/users/"+a.ID+"/ban", adminToken, echo.Map{
		"type": "temporary",
	}, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/admin/users/"+a.ID+"/ban", adminToken, echo.Map{
		"type":     "temporary",
		"duration": "2h",
		"reason":   "spam",
	}, nil))

	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/api/login", "", echo.Map{
		"login":    "alpha",
		"password": "password-alpha",
	}, nil))

	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/admin/users/"+a.ID+"/ban", adminToken, nil, nil))
	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/login", "", echo.Map{
		"login":    "alpha",
		"password": "password-alpha",
	}, nil))

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/users/00000000-0000-0000-0000-000000000000", adminToken, nil, nil))
}
