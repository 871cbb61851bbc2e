package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/authutil"
	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/referral"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/dchest/uniuri"
	"github.com/sirupsen/logrus"
)

const (
	referralCodeLength = 10
	historyLimit       = 100
)

var referralCodeChars = []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

// MembershipChecker verifies a Telegram user is in the bonus channel.
type MembershipChecker interface {
	IsMember(telegramUserID int64) (bool, error)
}

type Service struct {
	storage    *storage.Storage
	ledger     *ledger.Ledger
	referral   *referral.Engine
	hub        *notify.Hub
	membership MembershipChecker
	joinBonus  int64
	now        func() time.Time
	log        *logrus.Entry
}

func New(st *storage.Storage, l *ledger.Ledger, ref *referral.Engine, hub *notify.Hub) *Service {
	return &Service{
		storage:  st,
		ledger:   l,
		referral: ref,
		hub:      hub,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logrus.WithField("component", "users"),
	}
}

// EnableTelegramJoin turns on the channel join bonus.
func (s *Service) EnableTelegramJoin(m MembershipChecker, bonus int64) {
	s.membership = m
	s.joinBonus = bonus
}

type SignupInput struct {
	Email      string
	Phone      string
	Username   string
	Password   string
	InviteCode string
}

// Signup creates the user and applies the invite code in the same transaction.
// A bad invite code never fails the signup.
func (s *Service) Signup(ctx context.Context, in *SignupInput) (*models.User, *models.Referral, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)
	username := strings.TrimSpace(in.Username)
	if email == "" || phone == "" || username == "" || in.Password == "" {
		return nil, nil, fmt.Errorf("%w: email, phone, username and password are required", errs.ErrInvalidArgument)
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:        email,
		Phone:        phone,
		Username:     username,
		PasswordHash: hash,
	}
	var ref *models.Referral
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		taken, err := tx.TakenIdentity(ctx, email, phone, username)
		if err != nil {
			return err
		}
		if taken != "" {
			return fmt.Errorf("%w: %s already registered", errs.ErrConflict, taken)
		}

		if user.ReferralCode, err = newReferralCode(ctx, tx); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		ref, err = s.referral.ApplySignupCode(ctx, tx, user, in.InviteCode)
		return err
	}); err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user signed up")
	if ref != nil {
		_ = s.hub.Notify(ctx, ref.ReferrerID, notify.KindReferralBonus, user.ID,
			fmt.Sprintf("%s joined with your code, %d credited.", user.Username, ref.RewardAmount))
	}
	return user, ref, nil
}

func newReferralCode(ctx context.Context, tx *storage.Storage) (string, error) {
	for range 5 {
		code := uniuri.NewLenChars(referralCodeLength, referralCodeChars)
		_, err := tx.GetUserByReferralCode(ctx, code)
		if errors.Is(err, errs.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not generate a free referral code")
}

// Login checks the credentials. Unknown users and wrong passwords look the same.
func (s *Service) Login(ctx context.Context, login, password string) (*models.User, error) {
	user, err := s.storage.GetUserByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", errs.ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	if !authutil.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", errs.ErrForbidden)
	}
	if user.IsBanned(s.now()) {
		return nil, fmt.Errorf("%w: account is banned", errs.ErrForbidden)
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.storage.GetUser(ctx, userID)
}

// UpdateUPI changes the active payout identifier until the first approved withdrawal locks it.
func (s *Service) UpdateUPI(ctx context.Context, userID, upi string) (*models.User, error) {
	upi = strings.TrimSpace(upi)
	if upi == "" {
		return nil, fmt.Errorf("%w: upi is required", errs.ErrInvalidArgument)
	}

	var user *models.User
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		var err error
		if user, err = tx.GetUserForUpdate(ctx, userID); err != nil {
			return err
		}
		if user.UPILocked {
			return fmt.Errorf("%w: upi is locked to %s", errs.ErrInvalidState, user.RegisteredUPI)
		}
		changed, err := tx.SetUPI(ctx, userID, upi)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: upi is locked", errs.ErrInvalidState)
		}
		user.UPI = upi
		return nil
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// ClaimTelegramJoin pays the channel join bonus once per user and once per
// Telegram account.
func (s *Service) ClaimTelegramJoin(ctx context.Context, userID string, telegramUserID int64) (*models.Transaction, error) {
	if s.membership == nil {
		return nil, fmt.Errorf("%w: telegram join bonus is disabled", errs.ErrForbidden)
	}

	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TelegramJoined {
		return nil, fmt.Errorf("%w: telegram join bonus already claimed", errs.ErrInvalidState)
	}

	member, err := s.membership.IsMember(telegramUserID)
	if err != nil {
		return nil, fmt.Errorf("checking channel membership: %w", err)
	}
	if !member {
		return nil, fmt.Errorf("%w: not a member of the channel", errs.ErrForbidden)
	}

	var txn *models.Transaction
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsBanned(s.now()) {
			return fmt.Errorf("%w: user %s is banned", errs.ErrForbidden, userID)
		}
		marked, err := tx.MarkTelegramJoined(ctx, userID, telegramUserID)
		if err != nil {
			return err
		}
		if !marked {
			return fmt.Errorf("%w: telegram join bonus already claimed", errs.ErrInvalidState)
		}
		txn, err = s.ledger.Credit(ctx, tx, userID, s.joinBonus, models.CategoryTelegramJoin, "telegram channel join")
		return err
	}); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "telegram_id": telegramUserID}).Info("telegram join bonus paid")
	return txn, nil
}

// Adjust credits (positive amount) or debits (negative amount) the user on behalf of an admin.
func (s *Service) Adjust(ctx context.Context, userID string, amount int64, reason string) (*models.Transaction, error) {
	var (
		txn *models.Transaction
		err error
	)
	switch {
	case amount > 0:
		txn, err = s.ledger.Credit(ctx, s.storage, userID, amount, models.CategoryAdminCredit, reason)
	case amount < 0:
		txn, err = s.ledger.Debit(ctx, s.storage, userID, -amount, models.CategoryAdminDebit, reason)
	default:
		return nil, fmt.Errorf("%w: amount must not be zero", errs.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "reason": reason}).Info("balance adjusted by admin")
	_ = s.hub.Notify(ctx, userID, notify.KindBalanceAdjusted, txn.ID,
		fmt.Sprintf("Balance adjusted by %d: %s", amount, reason))
	return txn, nil
}

func (s *Service) History(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID, historyLimit)
}

func (s *Service) Audit(ctx context.Context, userID string) (*ledger.Audit, error) {
	return s.ledger.Reconcile(ctx, s.storage, userID)
}

func (s *Service) ReferralStats(ctx context.Context, userID string) (*storage.ReferralStats, error) {
	return s.referral.Stats(ctx, s.storage, userID)
}
