package tasks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/referral"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/C4T-BuT-S4D/taskpay/internal/tasks"
	"github.com/C4T-BuT-S4D/taskpay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st      *storage.Storage
	ledger  *ledger.Ledger
	hub     *notify.Hub
	service *tasks.Service
}

func newFixture(t *testing.T) *fixture {
	st := testutil.NewStorage(t)
	l := ledger.New()
	hub := notify.NewHub(notify.NewMemoryStore(0))
	return &fixture{
		st:      st,
		ledger:  l,
		hub:     hub,
		service: tasks.New(st, l, referral.New(l, referral.DefaultBonuses), hub),
	}
}

func stalledWebhook(t *testing.T) *notify.Webhook {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return notify.NewWebhook(srv.URL, time.Minute)
}

func entries(t *testing.T, st *storage.Storage, userID string) int64 {
	t.Helper()
	n, err := st.CountTransactions(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func TestService_Submit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.st, "alice")
	task := testutil.CreateTask(t, f.st, "Follow channel", 20)

	sub, err := f.service.Submit(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, sub.Status)
	assert.Zero(t, testutil.Balance(t, f.st, user.ID))

	t.Run("PendingTwice", func(t *testing.T) {
		_, err := f.service.Submit(ctx, user.ID, task.ID)
		assert.ErrorIs(t, err, errs.ErrConflict)
	})

	t.Run("UnknownTask", func(t *testing.T) {
		_, err := f.service.Submit(ctx, user.ID, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("DisabledTask", func(t *testing.T) {
		disabled := testutil.CreateTask(t, f.st, "Old task", 10)
		off := false
		_, err := f.service.UpdateTask(ctx, disabled.ID, &tasks.TaskUpdate{Enabled: &off})
		require.NoError(t, err)

		_, err = f.service.Submit(ctx, user.ID, disabled.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("AlreadyCompleted", func(t *testing.T) {
		_, err := f.service.Approve(ctx, sub.ID)
		require.NoError(t, err)

		_, err = f.service.Submit(ctx, user.ID, task.ID)
		assert.ErrorIs(t, err, errs.ErrConflict)

		available, err := f.service.Available(ctx, user.ID)
		require.NoError(t, err)
		for _, a := range available {
			assert.NotEqual(t, task.ID, a.ID)
		}
	})

	t.Run("Banned", func(t *testing.T) {
		banned := testutil.CreateUser(t, f.st, "mallory")
		require.NoError(t, f.st.BanUser(ctx, banned.ID, models.BanTypePermanent, nil, "spam"))

		_, err := f.service.Submit(ctx, banned.ID, task.ID)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestService_SubmitWithUnresponsiveWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hub.SetForwardTimeout(200 * time.Millisecond)
	f.hub.AddForwarder(stalledWebhook(t))

	user := testutil.CreateUser(t, f.st, "alice")
	task := testutil.CreateTask(t, f.st, "Join group", 10)

	started := time.Now()
	sub, err := f.service.Submit(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 3*time.Second)

	res, err := f.service.Approve(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Transaction.Amount)
	assert.Less(t, time.Since(started), 6*time.Second)

	notes, err := f.hub.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestService_Approve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.st, "alice")
	task := testutil.CreateTask(t, f.st, "Watch video", 25)

	sub, err := f.service.Submit(ctx, user.ID, task.ID)
	require.NoError(t, err)

	res, err := f.service.Approve(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, res.Submission.Status)
	require.NotNil(t, res.Submission.ReviewedAt)
	stored, err := f.st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReviewedAt)
	assert.WithinDuration(t, *stored.ReviewedAt, *res.Submission.ReviewedAt, time.Second)
	assert.Equal(t, models.CategoryTaskReward, res.Transaction.Category)
	assert.Equal(t, int64(25), res.Transaction.Amount)
	assert.False(t, res.ReferralPaid)

	assert.Equal(t, int64(25), testutil.Balance(t, f.st, user.ID))
	done, err := f.st.IsTaskCompleted(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, done)

	t.Run("Again", func(t *testing.T) {
		_, err := f.service.Approve(ctx, sub.ID)
		assert.ErrorIs(t, err, errs.ErrInvalidState)
		assert.Equal(t, int64(25), testutil.Balance(t, f.st, user.ID))
		assert.Equal(t, int64(1), entries(t, f.st, user.ID))
	})

	t.Run("RejectApproved", func(t *testing.T) {
		_, err := f.service.Reject(ctx, sub.ID, "changed my mind")
		assert.ErrorIs(t, err, errs.ErrInvalidState)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := f.service.Approve(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	notes, err := f.hub.List(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, notes)
	assert.Equal(t, notify.KindTaskApproved, notes[0].Kind)
}

func TestService_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.st, "alice")
	task := testutil.CreateTask(t, f.st, "Share post", 15)

	sub, err := f.service.Submit(ctx, user.ID, task.ID)
	require.NoError(t, err)

	rejected, err := f.service.Reject(ctx, sub.ID, "screenshot missing")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusRejected, rejected.Status)
	assert.Equal(t, "screenshot missing", rejected.RejectionReason)
	assert.NotNil(t, rejected.ReviewedAt)

	assert.Zero(t, testutil.Balance(t, f.st, user.ID))
	assert.Zero(t, entries(t, f.st, user.ID))

	_, err = f.service.Approve(ctx, sub.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	// A rejected attempt does not block a new one.
	_, err = f.service.Submit(ctx, user.ID, task.ID)
	assert.NoError(t, err)
}

func TestService_ConcurrentApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.st, "alice")
	task := testutil.CreateTask(t, f.st, "Install app", 40)

	sub, err := f.service.Submit(ctx, user.ID, task.ID)
	require.NoError(t, err)

	const workers = 8
	results := make(chan error, workers)
	wg := sync.WaitGroup{}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Approve(ctx, sub.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(40), testutil.Balance(t, f.st, user.ID))
	assert.Equal(t, int64(1), entries(t, f.st, user.ID))
}

func TestService_FirstTaskReferralBonusOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	referrer := testutil.CreateUser(t, f.st, "alice")
	user := testutil.CreateUser(t, f.st, "bob")

	linked, err := f.st.SetReferrer(ctx, user.ID, referrer.ID)
	require.NoError(t, err)
	require.True(t, linked)
	require.NoError(t, f.st.CreateReferral(ctx, &models.Referral{
		ReferrerID:   referrer.ID,
		ReferredID:   user.ID,
		RewardAmount: 0,
	}))

	paid := 0
	for _, title := range []string{"one", "two", "three"} {
		task := testutil.CreateTask(t, f.st, title, 10)
		sub, err := f.service.Submit(ctx, user.ID, task.ID)
		require.NoError(t, err)
		res, err := f.service.Approve(ctx, sub.ID)
		require.NoError(t, err)
		if res.ReferralPaid {
			paid++
		}
	}

	assert.Equal(t, 1, paid)
	assert.Equal(t, referral.DefaultBonuses.FirstTask, testutil.Balance(t, f.st, referrer.ID))
	assert.Equal(t, int64(30), testutil.Balance(t, f.st, user.ID))

	stats, err := f.st.GetReferralStats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Referred)
	assert.Equal(t, referral.DefaultBonuses.FirstTask, stats.TotalEarned)
}

func TestService_TaskCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.CreateTask(ctx, &models.Task{Title: "  ", Price: 5})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	err = f.service.CreateTask(ctx, &models.Task{Title: "Free", Price: 0})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	task := &models.Task{Title: "Rate app", Price: 12, Enabled: true, TimerSeconds: 30}
	require.NoError(t, f.service.CreateTask(ctx, task))

	price := int64(18)
	updated, err := f.service.UpdateTask(ctx, task.ID, &tasks.TaskUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(18), updated.Price)
	assert.Equal(t, "Rate app", updated.Title)

	_, err = f.service.UpdateTask(ctx, task.ID, &tasks.TaskUpdate{})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	list, err := f.service.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
