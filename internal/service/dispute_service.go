package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meetly/internal/booking"
	"meetly/internal/domain"
	"meetly/internal/logger"
	"meetly/internal/models"
	"meetly/internal/pricing"
	"meetly/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const maxEvidenceURLs = 10

type FileDisputeInput struct {
	DateOrderID  uint
	Reason       string
	Description  string
	EvidenceURLs []string
}

type ResolveDisputeInput struct {
	Resolution string
	// Amount is refunded to the payer for a partial refund.
	Amount int64
	Note   string
}

type DisputeService struct {
	store      repository.Store
	notifier   Notifier
	settlement *SettlementService
	now        func() time.Time
}

func NewDisputeService(store repository.Store, notifier Notifier, settlement *SettlementService) *DisputeService {
	return &DisputeService{store: store, notifier: notifier, settlement: settlement, now: time.Now}
}

func validReason(reason string) bool {
	for _, r := range domain.DisputeReasons {
		if r == reason {
			return true
		}
	}
	return false
}

func validateEvidence(urls []string) error {
	if len(urls) > maxEvidenceURLs {
		return domain.Errorf(domain.KindValidation, "at most %d evidence urls are allowed", maxEvidenceURLs)
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.Errorf(domain.KindValidation, "invalid evidence url %q", raw)
		}
	}
	return nil
}

// File opens a dispute on a booking the caller is party to and freezes the
// booking in disputed. One dispute per booking.
func (s *DisputeService) File(ctx context.Context, callerID uint, in FileDisputeInput) (*models.Dispute, error) {
	if in.DateOrderID == 0 {
		return nil, domain.Errorf(domain.KindValidation, "dateOrderId is required")
	}
	if !validReason(in.Reason) {
		return nil, domain.Errorf(domain.KindValidation, "reason must be one of %s", strings.Join(domain.DisputeReasons, ", "))
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, domain.Errorf(domain.KindValidation, "description is required")
	}
	if err := validateEvidence(in.EvidenceURLs); err != nil {
		return nil, err
	}
	evidence, err := json.Marshal(append([]string{}, in.EvidenceURLs...))
	if err != nil {
		return nil, domain.Internal("could not encode evidence", err)
	}

	var d *models.Dispute
	var counterpart uint
	err = s.store.Transaction(ctx, func(tx repository.Repos) error {
		b, err := tx.Bookings().GetForUpdate(ctx, in.DateOrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Errorf(domain.KindNotFound, "booking not found")
		}
		if err != nil {
			return domain.Internal("could not load booking", err)
		}
		if !b.IsParty(callerID) {
			return domain.Errorf(domain.KindForbidden, "you are not a party to this booking")
		}
		_, err = tx.Disputes().GetByBookingID(ctx, b.ID)
		if err == nil {
			return domain.Errorf(domain.KindConflict, "a dispute already exists for this booking")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Internal("could not check disputes", err)
		}
		if !booking.IsDisputable(b.Status) {
			return domain.Errorf(domain.KindInvalidTransition, "a %s booking cannot be disputed", b.Status)
		}

		d = &models.Dispute{
			DateOrderID:    b.ID,
			FiledBy:        callerID,
			Reason:         in.Reason,
			Description:    strings.TrimSpace(in.Description),
			EvidenceURLs:   datatypes.JSON(evidence),
			Status:         domain.DisputeStatusPending,
			PreviousStatus: b.Status,
		}
		if err := tx.Disputes().Create(ctx, d); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.Errorf(domain.KindConflict, "a dispute already exists for this booking")
			}
			return domain.Internal("could not create dispute", err)
		}
		b.Status = domain.BookingStatusDisputed
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return domain.Internal("could not update booking", err)
		}
		counterpart = b.CounterpartOf(callerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("dispute filed", zap.Uint("dispute_id", d.ID), zap.Uint("booking_id", d.DateOrderID), zap.String("reason", d.Reason))
	data := map[string]interface{}{"dispute_id": d.ID, "booking_id": d.DateOrderID}
	notifyAll(ctx, s.notifier, []uint{counterpart}, domain.NotifDisputeFiled,
		"Booking disputed", "A dispute was filed on your booking. Our team will review it.", data)
	notifyAll(ctx, s.notifier, adminIDs(ctx, s.store.Users(), callerID), domain.NotifDisputeFiled,
		"New dispute", "A dispute needs review: "+strings.ReplaceAll(d.Reason, "_", " ")+".", data)
	return d, nil
}

func (s *DisputeService) Get(ctx context.Context, id uint) (*models.Dispute, error) {
	d, err := s.store.Disputes().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, "dispute not found")
	}
	if err != nil {
		return nil, domain.Internal("could not load dispute", err)
	}
	return d, nil
}

func (s *DisputeService) List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	switch status {
	case "", domain.DisputeStatusPending, domain.DisputeStatusInvestigating, domain.DisputeStatusResolved:
	default:
		return nil, domain.Errorf(domain.KindValidation, "unknown dispute status %q", status)
	}
	list, err := s.store.Disputes().List(ctx, status, limit, offset)
	if err != nil {
		return nil, domain.Internal("could not list disputes", err)
	}
	return list, nil
}

// MarkInvestigating moves a pending dispute under review.
func (s *DisputeService) MarkInvestigating(ctx context.Context, adminID, disputeID uint) (*models.Dispute, error) {
	var d *models.Dispute
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		var err error
		d, err = lockDispute(ctx, tx, disputeID)
		if err != nil {
			return err
		}
		if d.Status != domain.DisputeStatusPending {
			return domain.Errorf(domain.KindInvalidTransition, "dispute is %s", d.Status)
		}
		d.Status = domain.DisputeStatusInvestigating
		if err := tx.Disputes().Save(ctx, d); err != nil {
			return domain.Internal("could not update dispute", err)
		}
		return audit(ctx, tx, adminID, "dispute.investigate", "dispute", disputeID, nil)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve closes a dispute and settles the frozen escrow. A partial refund
// returns Amount to the payer and settles the remainder at the booking's fee
// rate. A booking whose escrow was released before the dispute can only be
// released.
func (s *DisputeService) Resolve(ctx context.Context, adminID, disputeID uint, in ResolveDisputeInput) (*models.Dispute, error) {
	switch in.Resolution {
	case domain.ResolutionRelease, domain.ResolutionRefund, domain.ResolutionPartialRefund:
	default:
		return nil, domain.Errorf(domain.KindValidation, "resolution must be release, refund or partial_refund")
	}

	var (
		d   *models.Dispute
		b   *models.Booking
		job *models.SettlementJob
	)
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		var err error
		d, err = lockDispute(ctx, tx, disputeID)
		if err != nil {
			return err
		}
		if d.Status == domain.DisputeStatusResolved {
			return domain.Errorf(domain.KindConflict, "dispute already resolved")
		}
		b, err = tx.Bookings().GetForUpdate(ctx, d.DateOrderID)
		if err != nil {
			return domain.Internal("could not load booking", err)
		}
		if b.Status != domain.BookingStatusDisputed {
			return domain.Errorf(domain.KindInvalidTransition, "booking is %s, not disputed", b.Status)
		}

		now := s.now()
		var amount int64
		switch {
		case b.EscrowReleasedAt != nil:
			if in.Resolution != domain.ResolutionRelease {
				return domain.Errorf(domain.KindInvalidTransition, "escrow was already released; only release is possible")
			}
			b.Status = d.PreviousStatus
			if err := tx.Bookings().Save(ctx, b); err != nil {
				return domain.Internal("could not update booking", err)
			}

		case in.Resolution == domain.ResolutionRelease:
			if job, err = settleBooking(ctx, tx, b, b.TotalAmount, b.PartnerEarning, now); err != nil {
				return err
			}

		case in.Resolution == domain.ResolutionRefund:
			amount = b.TotalAmount
			if err := refundEscrow(ctx, tx, b.BookerID, b.ID, amount, domain.TxTypeDisputeRefund); err != nil {
				return err
			}
			b.Status = domain.BookingStatusCancelled
			b.CancelledAt = &now
			if err := tx.Bookings().Save(ctx, b); err != nil {
				return domain.Internal("could not update booking", err)
			}

		default:
			amount = in.Amount
			if amount <= 0 || amount >= b.TotalAmount {
				return domain.Errorf(domain.KindValidation, "partial refund must be between 1 and %d", b.TotalAmount-1)
			}
			remainder := b.TotalAmount - amount
			earning := remainder - pricing.FeeAt(remainder, b.FeeRateBps)
			if job, err = settleBooking(ctx, tx, b, remainder, earning, now); err != nil {
				return err
			}
			if err := refundEscrow(ctx, tx, b.BookerID, b.ID, amount, domain.TxTypeDisputeRefund); err != nil {
				return err
			}
		}

		d.Status = domain.DisputeStatusResolved
		d.Resolution = in.Resolution
		d.ResolutionAmount = amount
		d.ResolutionNote = strings.TrimSpace(in.Note)
		d.ResolvedBy = &adminID
		d.ResolvedAt = &now
		if err := tx.Disputes().Save(ctx, d); err != nil {
			return domain.Internal("could not update dispute", err)
		}
		return audit(ctx, tx, adminID, "dispute.resolve", "dispute", disputeID, map[string]interface{}{
			"resolution": in.Resolution,
			"amount":     amount,
			"booking_id": b.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("dispute resolved", zap.Uint("dispute_id", d.ID), zap.String("resolution", d.Resolution), zap.Int64("amount", d.ResolutionAmount))
	notifyAll(ctx, s.notifier, []uint{b.BookerID, b.PartnerID}, domain.NotifDisputeResolved,
		"Dispute resolved", "The dispute on your booking has been resolved.",
		map[string]interface{}{"dispute_id": d.ID, "booking_id": b.ID, "resolution": d.Resolution})
	if job != nil && s.settlement != nil {
		if err := s.settlement.Enrich(ctx, job.ID); err != nil {
			logger.Log.Warn("settlement enrichment deferred", zap.Uint("job_id", job.ID), zap.Error(err))
		}
	}
	return d, nil
}

func lockDispute(ctx context.Context, tx repository.Repos, id uint) (*models.Dispute, error) {
	d, err := tx.Disputes().GetForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, "dispute not found")
	}
	if err != nil {
		return nil, domain.Internal("could not load dispute", err)
	}
	return d, nil
}

func audit(ctx context.Context, tx repository.Repos, userID uint, action, resource string, resourceID uint, meta map[string]interface{}) error {
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: uintString(resourceID),
	}
	if meta != nil {
		b, _ := json.Marshal(meta)
		entry.Metadata = string(b)
	}
	if err := tx.AuditLogs().Create(ctx, entry); err != nil {
		return domain.Internal("could not write audit log", err)
	}
	return nil
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
