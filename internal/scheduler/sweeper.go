package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mealbridge/service-surplus/internal/config"
	"github.com/mealbridge/service-surplus/internal/domain"
	"github.com/mealbridge/service-surplus/internal/gateway/notify"
	"github.com/mealbridge/service-surplus/internal/logx"
	"github.com/mealbridge/service-surplus/internal/ports/offertx"
	"github.com/mealbridge/service-surplus/internal/service/pickup"
	"github.com/mealbridge/service-surplus/internal/timeline"
)

// List of sweep names used in logs and metrics
const (
	sweepPromote = "promote"
	sweepDemote  = "demote"
	sweepExpire  = "expire"
)

// Sweeper advances offers through time-gated lifecycle states. Transitions
// are discovered by periodic re-scan of offers in a source status, never by
// callbacks; each scan is idempotent because the status filter excludes
// rows already moved on.
type Sweeper struct {
	repo        offerRepository
	machine     transitionChecker
	gateway     notify.Gateway
	logger      logx.Logger
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	cfg         config.Lifecycle
	now         func() time.Time
}

// NewSweeper creates a Sweeper.
func NewSweeper(
	repo offerRepository,
	machine transitionChecker,
	gateway notify.Gateway,
	logger logx.Logger,
	transitions, failures *prometheus.CounterVec,
	cfg config.Lifecycle,
) *Sweeper {
	if gateway == nil {
		gateway = notify.NopGateway{}
	}
	return &Sweeper{
		repo:        repo,
		machine:     machine,
		gateway:     gateway,
		logger:      logger,
		transitions: transitions,
		failures:    failures,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the sweeper's time source.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	if now != nil {
		s.now = now
	}
	return s
}

// Run starts the three sweep loops and blocks until the context is done.
// The loops are independent: a slow expire pass never delays promotion.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("lifecycle sweeper started",
		logx.Duration("promote_interval", s.cfg.PromoteInterval),
		logx.Duration("demote_interval", s.cfg.DemoteInterval),
		logx.Duration("expire_interval", s.cfg.ExpireInterval),
		logx.Any("auto_expiry", s.cfg.AutoExpiry),
	)

	var wg sync.WaitGroup

	run := func(name string, interval time.Duration, sweep func(context.Context) (int, error)) {
		defer wg.Done()
		s.loop(ctx, name, interval, sweep)
	}

	wg.Add(2)
	go run(sweepPromote, s.cfg.PromoteInterval, s.PromoteDueOffers)
	go run(sweepDemote, s.cfg.DemoteInterval, s.DemoteMissedPickups)

	if s.cfg.AutoExpiry {
		wg.Add(1)
		go run(sweepExpire, s.cfg.ExpireInterval, s.ExpireStaleOffers)
	} else {
		s.logger.Info("auto expiry disabled, expire sweep not running")
	}

	wg.Wait()
	return ctx.Err()
}

func (s *Sweeper) loop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			moved, err := sweep(ctx)
			if err != nil {
				s.logger.Error("sweep failed",
					logx.String("sweep", name),
					logx.Any("err", err),
				)
				continue
			}
			if moved > 0 {
				s.logger.Info("sweep applied transitions",
					logx.String("sweep", name),
					logx.Int("count", moved),
				)
			}
		}
	}
}

// PromoteDueOffers moves claimed offers whose pickup window is within reach
// (anything but too early) to ready_for_pickup and issues the verification
// code. Offers touched within the grace period are left alone so the sweep
// never races the transaction that just claimed them.
func (s *Sweeper) PromoteDueOffers(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.GracePeriod)
	ids, err := s.repo.ListOfferIDsByStatus(ctx, domain.OfferClaimed, cutoff)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, id := range ids {
		moved, err := s.promoteOne(ctx, id, cutoff)
		if err != nil {
			s.itemFailed(sweepPromote, id, err)
			continue
		}
		if moved {
			promoted++
			s.transitioned(sweepPromote)
		}
	}
	return promoted, nil
}

func (s *Sweeper) promoteOne(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	var moved bool
	var receiverID int64
	var code string

	err := s.repo.WithTx(ctx, func(tx offertx.Repository) error {
		offer, err := tx.GetOfferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// the row may have moved on between the scan and the lock
		if offer == nil || offer.Status != domain.OfferClaimed || offer.UpdatedAt.After(cutoff) {
			return nil
		}

		claim, err := tx.GetActiveClaimForUpdate(ctx, offer.ID)
		if err != nil {
			return err
		}

		window := domain.ResolveWindow(offer, claim)
		decision := domain.EvaluateTolerance(s.now(), window, s.cfg.EarlyTolerance, s.cfg.LateTolerance)
		if decision.Reason == domain.ReasonTooEarly {
			return nil
		}

		if err := s.machine.Check(offer.Status, domain.OfferReadyForPickup); err != nil {
			return err
		}

		code = offer.PickupCode
		if code == "" {
			if code, err = pickup.NewCode(); err != nil {
				return err
			}
			if err := tx.SetOfferPickupCode(ctx, offer.ID, code); err != nil {
				return err
			}
		}

		if err := tx.UpdateOfferStatus(ctx, offer.ID, domain.OfferClaimed, domain.OfferReadyForPickup); err != nil {
			return err
		}

		if claim != nil {
			receiverID = claim.ReceiverID
		}
		moved = true
		return tx.RecordEvent(ctx, timeline.Transition(
			offer.ID, timeline.EventReadyForPickup, timeline.ActorSystem,
			domain.OfferClaimed, domain.OfferReadyForPickup,
			"pickup window reached",
		))
	})
	if err != nil || !moved {
		return false, err
	}

	if receiverID != 0 {
		s.notify(ctx, receiverID, notify.EventReadyForPickup, map[string]any{
			"offer_id":    id,
			"pickup_code": code,
		})
	}
	return true, nil
}

// DemoteMissedPickups moves ready offers whose window lapsed past the late
// tolerance to not_completed, together with their active claim.
func (s *Sweeper) DemoteMissedPickups(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.GracePeriod)
	ids, err := s.repo.ListOfferIDsByStatus(ctx, domain.OfferReadyForPickup, cutoff)
	if err != nil {
		return 0, err
	}

	demoted := 0
	for _, id := range ids {
		moved, err := s.demoteOne(ctx, id, cutoff)
		if err != nil {
			s.itemFailed(sweepDemote, id, err)
			continue
		}
		if moved {
			demoted++
			s.transitioned(sweepDemote)
		}
	}
	return demoted, nil
}

func (s *Sweeper) demoteOne(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	var moved bool
	var receiverID int64

	err := s.repo.WithTx(ctx, func(tx offertx.Repository) error {
		offer, err := tx.GetOfferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if offer == nil || offer.Status != domain.OfferReadyForPickup || offer.UpdatedAt.After(cutoff) {
			return nil
		}

		claim, err := tx.GetActiveClaimForUpdate(ctx, offer.ID)
		if err != nil {
			return err
		}

		window := domain.ResolveWindow(offer, claim)
		decision := domain.EvaluateTolerance(s.now(), window, s.cfg.EarlyTolerance, s.cfg.LateTolerance)
		if decision.Reason != domain.ReasonTooLate {
			return nil
		}

		if err := s.machine.Check(offer.Status, domain.OfferNotCompleted); err != nil {
			return err
		}
		if err := tx.UpdateOfferStatus(ctx, offer.ID, domain.OfferReadyForPickup, domain.OfferNotCompleted); err != nil {
			return err
		}
		if claim != nil {
			if err := tx.UpdateClaimStatus(ctx, claim.ID, domain.ClaimNotCompleted); err != nil {
				return err
			}
			receiverID = claim.ReceiverID
		}

		moved = true
		return tx.RecordEvent(ctx, timeline.Transition(
			offer.ID, timeline.EventPickupMissed, timeline.ActorSystem,
			domain.OfferReadyForPickup, domain.OfferNotCompleted,
			"pickup window lapsed",
		))
	})
	if err != nil || !moved {
		return false, err
	}

	if receiverID != 0 {
		s.notify(ctx, receiverID, notify.EventPickupMissed, map[string]any{"offer_id": id})
	}
	return true, nil
}

// ExpireStaleOffers moves open offers whose expiry date has passed to
// expired, whatever their claim state.
func (s *Sweeper) ExpireStaleOffers(ctx context.Context) (int, error) {
	today := s.now().Truncate(24 * time.Hour)
	ids, err := s.repo.ListExpiredOfferIDs(ctx, today)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		moved, err := s.expireOne(ctx, id, today)
		if err != nil {
			s.itemFailed(sweepExpire, id, err)
			continue
		}
		if moved {
			expired++
			s.transitioned(sweepExpire)
		}
	}
	return expired, nil
}

func (s *Sweeper) expireOne(ctx context.Context, id int64, today time.Time) (bool, error) {
	var moved bool
	var donorID, receiverID int64

	err := s.repo.WithTx(ctx, func(tx offertx.Repository) error {
		offer, err := tx.GetOfferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if offer == nil {
			return nil
		}
		if offer.Status != domain.OfferAvailable && offer.Status != domain.OfferClaimed {
			return nil
		}
		if !offer.ExpiryDate.Before(today) {
			return nil
		}

		if err := s.machine.Check(offer.Status, domain.OfferExpired); err != nil {
			return err
		}

		claim, err := tx.GetActiveClaimForUpdate(ctx, offer.ID)
		if err != nil {
			return err
		}
		if claim != nil {
			// the food is gone either way; the claim ends unfulfilled
			if err := tx.UpdateClaimStatus(ctx, claim.ID, domain.ClaimNotCompleted); err != nil {
				return err
			}
			receiverID = claim.ReceiverID
		}

		if err := tx.UpdateOfferStatus(ctx, offer.ID, offer.Status, domain.OfferExpired); err != nil {
			return err
		}

		donorID = offer.DonorID
		moved = true
		return tx.RecordEvent(ctx, timeline.Transition(
			offer.ID, timeline.EventDonationExpired, timeline.ActorSystem,
			offer.Status, domain.OfferExpired,
			"expiry date passed",
		))
	})
	if err != nil || !moved {
		return false, err
	}

	s.notify(ctx, donorID, notify.EventOfferExpired, map[string]any{"offer_id": id})
	if receiverID != 0 {
		s.notify(ctx, receiverID, notify.EventOfferExpired, map[string]any{"offer_id": id})
	}
	return true, nil
}

func (s *Sweeper) itemFailed(sweep string, id int64, err error) {
	if s.failures != nil {
		s.failures.WithLabelValues(sweep).Inc()
	}
	s.logger.Error("sweep item failed",
		logx.String("sweep", sweep),
		logx.Int64("offer_id", id),
		logx.Any("err", err),
	)
}

func (s *Sweeper) transitioned(sweep string) {
	if s.transitions != nil {
		s.transitions.WithLabelValues(sweep).Inc()
	}
}

func (s *Sweeper) notify(ctx context.Context, userID int64, eventType string, payload map[string]any) {
	if err := s.gateway.Notify(ctx, userID, eventType, payload); err != nil {
		s.logger.Error("notification failed",
			logx.String("event_type", eventType),
			logx.Int64("user_id", userID),
			logx.Any("err", err),
		)
	}
}
