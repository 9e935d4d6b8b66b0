package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"meetly/config"
	"meetly/internal/domain"
	"meetly/internal/logger"
	"meetly/internal/models"
	"meetly/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// settleBooking releases spend from the payer's escrow, pays earning to the
// partner, marks the booking completed and queues the enrichment job.
// Must run inside a transaction holding the booking lock.
func settleBooking(ctx context.Context, tx repository.Repos, b *models.Booking, spend, earning int64, now time.Time) (*models.SettlementJob, error) {
	if err := releaseEscrow(ctx, tx, b.BookerID, b.PartnerID, b.ID, spend, earning); err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatusCompleted
	b.CompletedAt = &now
	b.EscrowReleasedAt = &now
	if err := tx.Bookings().Save(ctx, b); err != nil {
		return nil, domain.Internal("could not update booking", err)
	}
	completed, err := tx.Bookings().CountCompletedByBooker(ctx, b.BookerID)
	if err != nil {
		return nil, domain.Internal("could not count bookings", err)
	}
	job := &models.SettlementJob{
		BookingID:            b.ID,
		PayerID:              b.BookerID,
		PartnerID:            b.PartnerID,
		SpendAmount:          spend,
		PayerFirstCompletion: completed == 1,
		Status:               domain.SettlementJobPending,
	}
	if err := tx.Settlements().Create(ctx, job); err != nil {
		return nil, domain.Internal("could not queue settlement", err)
	}
	return job, nil
}

// upgradeProIfEligible flips is_pro for a partner with enough completed
// bookings and a high enough rating. It reports whether the flag changed.
func upgradeProIfEligible(ctx context.Context, tx repository.Repos, partnerID uint) (bool, error) {
	w, err := lockWallet(ctx, tx, partnerID)
	if err != nil {
		return false, err
	}
	if w.IsPro {
		return false, nil
	}
	u, err := tx.Users().GetByID(ctx, partnerID)
	if err != nil {
		return false, domain.Internal("could not load partner", err)
	}
	completed, err := tx.Bookings().CountCompletedByPartner(ctx, partnerID)
	if err != nil {
		return false, domain.Internal("could not count bookings", err)
	}
	if completed < domain.ProMinCompletedBookings || u.RatingAverage < domain.ProMinAverageRating {
		return false, nil
	}
	w.IsPro = true
	if err := saveWallet(ctx, tx, partnerID, w); err != nil {
		return false, err
	}
	return true, nil
}

type pendingNotification struct {
	userID    uint
	notifType string
	title     string
	body      string
	data      map[string]interface{}
}

type settlementStep struct {
	name string
	done func(j *models.SettlementJob) bool
	run  func(ctx context.Context, tx repository.Repos, j *models.SettlementJob) ([]pendingNotification, error)
}

// SettlementService runs the post-payment steps of a settled booking: payer
// tier, partner Pro status and the referral reward. Each step commits on its
// own and is skipped once its job flag is set, so a job can be retried safely.
type SettlementService struct {
	store    repository.Store
	notifier Notifier
	cfg      config.SettlementConfig
	now      func() time.Time
	steps    []settlementStep
}

func NewSettlementService(store repository.Store, notifier Notifier, cfg config.SettlementConfig) *SettlementService {
	s := &SettlementService{store: store, notifier: notifier, cfg: cfg, now: time.Now}
	s.steps = []settlementStep{
		{"tier", func(j *models.SettlementJob) bool { return j.TierApplied }, s.applyTier},
		{"pro", func(j *models.SettlementJob) bool { return j.ProChecked }, s.checkPro},
		{"referral", func(j *models.SettlementJob) bool { return j.ReferralChecked }, s.payReferral},
	}
	return s
}

// Enrich runs the outstanding steps of a job. A failed step is recorded on the
// job and left for the reconciler.
func (s *SettlementService) Enrich(ctx context.Context, jobID uint) error {
	job, err := s.store.Settlements().GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.SettlementJobPending {
		return nil
	}
	for _, step := range s.steps {
		if step.done(job) {
			continue
		}
		var notes []pendingNotification
		err := s.store.Transaction(ctx, func(tx repository.Repos) error {
			j, err := tx.Settlements().GetForUpdate(ctx, jobID)
			if err != nil {
				return err
			}
			if step.done(j) {
				return nil
			}
			notes, err = step.run(ctx, tx, j)
			if err != nil {
				return err
			}
			return tx.Settlements().Save(ctx, j)
		})
		if err != nil {
			s.recordFailure(ctx, jobID, step.name, err)
			return fmt.Errorf("settlement job %d step %s: %w", jobID, step.name, err)
		}
		for _, n := range notes {
			notifyAll(ctx, s.notifier, []uint{n.userID}, n.notifType, n.title, n.body, n.data)
		}
	}
	return s.store.Transaction(ctx, func(tx repository.Repos) error {
		j, err := tx.Settlements().GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status != domain.SettlementJobPending || !j.StepsDone() {
			return nil
		}
		now := s.now()
		j.Status = domain.SettlementJobDone
		j.CompletedAt = &now
		return tx.Settlements().Save(ctx, j)
	})
}

func (s *SettlementService) recordFailure(ctx context.Context, jobID uint, step string, cause error) {
	logger.Log.Warn("settlement step failed", zap.Uint("job_id", jobID), zap.String("step", step), zap.Error(cause))
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		j, err := tx.Settlements().GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		j.Attempts++
		j.LastError = step + ": " + cause.Error()
		if s.cfg.MaxAttempts > 0 && j.Attempts >= s.cfg.MaxAttempts {
			j.Status = domain.SettlementJobFailed
			logger.Log.Error("settlement job gave up", zap.Uint("job_id", jobID), zap.Int("attempts", j.Attempts))
		}
		return tx.Settlements().Save(ctx, j)
	})
	if err != nil {
		logger.Log.Error("record settlement failure", zap.Uint("job_id", jobID), zap.Error(err))
	}
}

func (s *SettlementService) applyTier(ctx context.Context, tx repository.Repos, j *models.SettlementJob) ([]pendingNotification, error) {
	w, err := lockWallet(ctx, tx, j.PayerID)
	if err != nil {
		return nil, err
	}
	changed := w.AddSpending(j.SpendAmount)
	if err := saveWallet(ctx, tx, j.PayerID, w); err != nil {
		return nil, err
	}
	j.TierApplied = true
	if !changed {
		return nil, nil
	}
	return []pendingNotification{{
		userID:    j.PayerID,
		notifType: domain.NotifTierUpgrade,
		title:     "Congratulations!",
		body:      "You are now " + tierLabel(w.VIPTier),
		data:      map[string]interface{}{"tier": w.VIPTier, "booking_id": j.BookingID},
	}}, nil
}

func (s *SettlementService) checkPro(ctx context.Context, tx repository.Repos, j *models.SettlementJob) ([]pendingNotification, error) {
	upgraded, err := upgradeProIfEligible(ctx, tx, j.PartnerID)
	if err != nil {
		return nil, err
	}
	j.ProChecked = true
	if !upgraded {
		return nil, nil
	}
	return []pendingNotification{proNotification(j.PartnerID)}, nil
}

func (s *SettlementService) payReferral(ctx context.Context, tx repository.Repos, j *models.SettlementJob) ([]pendingNotification, error) {
	j.ReferralChecked = true
	if !j.PayerFirstCompletion {
		return nil, nil
	}
	rw, err := tx.Referrals().GetRewardByReferredForUpdate(ctx, j.PayerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rw.Status != domain.RewardStatusPending {
		return nil, nil
	}

	referrerBonus := settingInt(ctx, tx.Settings(), domain.SettingReferralBonusReferrer, domain.DefaultReferralBonusReferrer)
	referredBonus := settingInt(ctx, tx.Settings(), domain.SettingReferralBonusReferred, domain.DefaultReferralBonusReferred)

	first, second := rw.ReferrerID, rw.ReferredID
	if second < first {
		first, second = second, first
	}
	bonus := map[uint]int64{rw.ReferrerID: referrerBonus, rw.ReferredID: referredBonus}
	for _, id := range []uint{first, second} {
		if bonus[id] <= 0 {
			continue
		}
		w, err := lockWallet(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		w.Credit(bonus[id])
		if err := saveWallet(ctx, tx, id, w); err != nil {
			return nil, err
		}
		if err := appendLedger(ctx, tx, id, domain.TxTypeReferralBonus, bonus[id], rw.ID, "referral_reward", "referral bonus"); err != nil {
			return nil, err
		}
	}

	now := s.now()
	rw.Status = domain.RewardStatusCompleted
	rw.ReferrerBonus = referrerBonus
	rw.ReferredBonus = referredBonus
	rw.TriggerBooking = &j.BookingID
	rw.CompletedAt = &now
	if err := tx.Referrals().SaveReward(ctx, rw); err != nil {
		return nil, err
	}
	return []pendingNotification{
		{
			userID:    rw.ReferrerID,
			notifType: domain.NotifReferralBonus,
			title:     "Referral bonus",
			body:      "A friend you invited completed their first booking.",
			data:      map[string]interface{}{"amount": referrerBonus, "reward_id": rw.ID},
		},
		{
			userID:    rw.ReferredID,
			notifType: domain.NotifReferralBonus,
			title:     "Welcome bonus",
			body:      "Your referral bonus has been added to your wallet.",
			data:      map[string]interface{}{"amount": referredBonus, "reward_id": rw.ID},
		},
	}, nil
}

func proNotification(partnerID uint) pendingNotification {
	return pendingNotification{
		userID:    partnerID,
		notifType: domain.NotifProUpgrade,
		title:     "You're Pro!",
		body:      "Your ratings and completed bookings earned you Pro status.",
	}
}

func tierLabel(tier string) string {
	switch tier {
	case domain.TierSVIP:
		return "SVIP"
	case domain.TierVIP:
		return "VIP"
	}
	return tier
}

func settingInt(ctx context.Context, settings repository.SettingRepository, key string, fallback int64) int64 {
	val, err := settings.Get(ctx, key)
	if err != nil || val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n < 0 {
		logger.Log.Warn("invalid setting value", zap.String("key", key), zap.String("value", val))
		return fallback
	}
	return n
}

// Reconciler retries settlement jobs whose enrichment did not finish.
type Reconciler struct {
	svc      *SettlementService
	interval time.Duration
	batch    int
	limiter  *rate.Limiter
}

func NewReconciler(svc *SettlementService, cfg config.SettlementConfig) *Reconciler {
	perSecond := cfg.JobsPerSecond
	if perSecond <= 0 {
		perSecond = 20
	}
	return &Reconciler{
		svc:      svc,
		interval: cfg.ReconcileInterval,
		batch:    cfg.BatchSize,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Run polls for pending jobs until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	interval := r.interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Log.Error("settlement reconcile failed", zap.Error(err))
			}
		}
	}
}

// RunOnce processes one batch and returns how many jobs finished.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	batch := r.batch
	if batch <= 0 {
		batch = 50
	}
	jobs, err := r.svc.store.Settlements().ListPending(ctx, batch)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, j := range jobs {
		if err := r.limiter.Wait(ctx); err != nil {
			return done, err
		}
		if err := r.svc.Enrich(ctx, j.ID); err != nil {
			continue
		}
		done++
	}
	return done, nil
}
