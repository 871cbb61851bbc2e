package users

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/metrics"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/sirupsen/logrus"
)

// Ban bans the user permanently, or until now+duration for temporary bans.
func (s *Service) Ban(ctx context.Context, userID string, banType models.BanType, duration time.Duration, reason string) (*models.User, error) {
	var expiry *time.Time
	switch banType {
	case models.BanTypePermanent:
	case models.BanTypeTemporary:
		if duration <= 0 {
			return nil, fmt.Errorf("%w: temporary ban needs a positive duration", errs.ErrInvalidArgument)
		}
		until := s.now().Add(duration)
		expiry = &until
	default:
		return nil, fmt.Errorf("%w: unknown ban type %q", errs.ErrInvalidArgument, banType)
	}

	if err := s.storage.BanUser(ctx, userID, banType, expiry, reason); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "type": banType, "expiry": expiry}).Warn("user banned")
	_ = s.hub.Notify(ctx, userID, notify.KindBanned, userID, fmt.Sprintf("Your account was banned: %s", reason))
	return s.storage.GetUser(ctx, userID)
}

func (s *Service) Unban(ctx context.Context, userID string) (*models.User, error) {
	if err := s.storage.UnbanUser(ctx, userID); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", userID).Info("user unbanned")
	return s.storage.GetUser(ctx, userID)
}

func (s *Service) LiftExpiredBans(ctx context.Context) (int64, error) {
	n, err := s.storage.LiftExpiredBans(ctx, s.now())
	if err != nil {
		return 0, err
	}
	metrics.BansLifted.Add(float64(n))
	return n, nil
}

// RunBanSweeper lifts expired temporary bans every interval until ctx is done.
func (s *Service) RunBanSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	logger := logrus.WithField("component", "ban_sweeper")

	for {
		select {
		case <-t.C:
			n, err := s.LiftExpiredBans(ctx)
			if err != nil {
				logger.Errorf("failed to lift expired bans: %v", err)
				continue
			}
			if n == 0 {
				logger.Debug("no expired bans")
				break
			}
			logger.Infof("lifted %d expired bans", n)

		case <-ctx.Done():
			return
		}
	}
}
