package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"meetly/internal/booking"
	"meetly/internal/domain"
	"meetly/internal/logger"
	"meetly/internal/models"
	"meetly/internal/pricing"
	"meetly/internal/repository"
	"meetly/pkg/location"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	scopeCreateBooking   = "create-booking"
	scopeCompleteBooking = "complete-booking"
)

// errReplay aborts a transaction that lost the race to store an idempotency key.
var errReplay = errors.New("idempotency key already used")

type QuoteInput struct {
	ProviderID    uint
	ServiceID     uint
	DurationHours int
	PromoCodeID   *uint
}

type CreateBookingInput struct {
	QuoteInput
	Date     string
	Time     string
	Location string
	Message  string
	// IdempotencyKey replays the first result for a repeated request.
	IdempotencyKey string
}

type CreateBookingResult struct {
	BookingID     uint   `json:"bookingId"`
	PromoDiscount int64  `json:"promoDiscount"`
	TotalAmount   int64  `json:"totalAmount"`
	Status        string `json:"status"`
}

type TransitionInput struct {
	BookingID uint
	// Action may be empty; the next action is then inferred from status and role.
	Action         string
	Lat            *float64
	Lng            *float64
	IdempotencyKey string
}

type TransitionResult struct {
	Success   bool   `json:"success"`
	BookingID uint   `json:"bookingId"`
	Status    string `json:"status"`
	// CheckInDistanceMeters is set once both parties checked in with coordinates.
	CheckInDistanceMeters *int `json:"checkInDistanceMeters,omitempty"`
}

type BookingService struct {
	store      repository.Store
	notifier   Notifier
	settlement *SettlementService
	now        func() time.Time
}

func NewBookingService(store repository.Store, notifier Notifier, settlement *SettlementService) *BookingService {
	return &BookingService{store: store, notifier: notifier, settlement: settlement, now: time.Now}
}

type pricedBooking struct {
	quote   *pricing.Quote
	service *models.Service
	promo   *models.PromoCode
}

// price loads the service, partner and promo through r and prices the booking.
// With lock set the promo row stays locked until r's transaction ends.
func (s *BookingService) price(ctx context.Context, r repository.Repos, payerID uint, in QuoteInput, lock bool) (*pricedBooking, error) {
	if in.ProviderID == 0 || in.ServiceID == 0 {
		return nil, domain.Errorf(domain.KindValidation, "providerId and serviceId are required")
	}
	if in.ProviderID == payerID {
		return nil, domain.Errorf(domain.KindValidation, "you cannot book your own service")
	}
	svc, err := r.Services().GetByID(ctx, in.ServiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Errorf(domain.KindValidation, "service not found")
	}
	if err != nil {
		return nil, domain.Internal("could not load service", err)
	}
	if svc.ProviderID != in.ProviderID {
		return nil, domain.Errorf(domain.KindValidation, "service does not belong to this provider")
	}
	if !svc.IsAvailable {
		return nil, domain.Errorf(domain.KindValidation, "service is not available")
	}
	partner, err := r.Users().GetByID(ctx, in.ProviderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Errorf(domain.KindValidation, "provider not found")
	}
	if err != nil {
		return nil, domain.Internal("could not load provider", err)
	}

	var promo *models.PromoCode
	if in.PromoCodeID != nil {
		if lock {
			promo, err = r.Promos().GetForUpdate(ctx, *in.PromoCodeID)
		} else {
			promo, err = r.Promos().GetByID(ctx, *in.PromoCodeID)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Errorf(domain.KindNotFound, "promo code not found")
		}
		if err != nil {
			return nil, domain.Internal("could not load promo code", err)
		}
		byUser, err := r.Promos().CountUsageByUser(ctx, promo.ID, payerID)
		if err != nil {
			return nil, domain.Internal("could not count promo usage", err)
		}
		prior, err := r.Bookings().CountActiveByBooker(ctx, payerID)
		if err != nil {
			return nil, domain.Internal("could not count bookings", err)
		}
		usage := pricing.PromoUsage{Now: s.now(), ByUser: byUser, PriorBookings: prior}
		if err := pricing.ValidatePromo(promo, svc.Price, usage); err != nil {
			return nil, err
		}
	}

	q, err := pricing.Calculate(pricing.Input{
		Price:            svc.Price,
		Duration:         svc.Duration,
		DurationOverride: in.DurationHours,
		PartnerTier:      partner.PartnerTier,
		Promo:            promo,
	})
	if err != nil {
		return nil, err
	}
	return &pricedBooking{quote: q, service: svc, promo: promo}, nil
}

// Quote prices a booking without writing anything.
func (s *BookingService) Quote(ctx context.Context, payerID uint, in QuoteInput) (*pricing.Quote, error) {
	p, err := s.price(ctx, s.store, payerID, in, false)
	if err != nil {
		return nil, err
	}
	return p.quote, nil
}

func validateSchedule(in CreateBookingInput) error {
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return domain.Errorf(domain.KindValidation, "date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", in.Time); err != nil {
		if _, err := time.Parse("15:04:05", in.Time); err != nil {
			return domain.Errorf(domain.KindValidation, "time must be HH:MM")
		}
	}
	if strings.TrimSpace(in.Location) == "" {
		return domain.Errorf(domain.KindValidation, "location is required")
	}
	return nil
}

// Create prices the booking, moves the total into the payer's escrow and
// inserts the booking as pending, all in one transaction. The second return
// value reports whether the result was replayed from an earlier call.
func (s *BookingService) Create(ctx context.Context, payerID uint, in CreateBookingInput) (*CreateBookingResult, bool, error) {
	if err := validateSchedule(in); err != nil {
		return nil, false, err
	}
	var prev CreateBookingResult
	if ok, err := s.replay(ctx, payerID, scopeCreateBooking, in.IdempotencyKey, &prev); ok || err != nil {
		return replayed(&prev, ok, err)
	}

	var res *CreateBookingResult
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		p, err := s.price(ctx, tx, payerID, in.QuoteInput, true)
		if err != nil {
			return err
		}
		q := p.quote

		w, err := lockWallet(ctx, tx, payerID)
		if err != nil {
			return err
		}
		if w.Balance < q.TotalAmount {
			return domain.Errorf(domain.KindInsufficientFunds, "insufficient balance: have %d, need %d", w.Balance, q.TotalAmount)
		}

		b := &models.Booking{
			BookerID:       payerID,
			PartnerID:      in.ProviderID,
			ServiceID:      p.service.ID,
			Activity:       p.service.Activity,
			DurationHours:  q.DurationHours,
			Date:           in.Date,
			Time:           in.Time,
			Location:       strings.TrimSpace(in.Location),
			Message:        in.Message,
			Status:         domain.BookingStatusPending,
			OriginalAmount: q.OriginalAmount,
			PromoDiscount:  q.PromoDiscount,
			TotalAmount:    q.TotalAmount,
			PlatformFee:    q.PlatformFee,
			PartnerEarning: q.PartnerEarning,
			FeeRateBps:     q.FeeRateBps,
		}
		if p.promo != nil {
			b.PromoCodeID = &p.promo.ID
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return domain.Internal("could not create booking", err)
		}
		if err := openEscrow(ctx, tx, w, payerID, b.ID, q.TotalAmount); err != nil {
			return err
		}

		if p.promo != nil {
			err := tx.Promos().CreateUsage(ctx, &models.PromoCodeUsage{
				PromoCodeID:    p.promo.ID,
				UserID:         payerID,
				BookingID:      b.ID,
				DiscountAmount: q.PromoDiscount,
			})
			if err != nil {
				return domain.Internal("could not record promo usage", err)
			}
			if err := tx.Promos().IncrementUsedCount(ctx, p.promo.ID); err != nil {
				return domain.Internal("could not record promo usage", err)
			}
		}

		res = &CreateBookingResult{
			BookingID:     b.ID,
			PromoDiscount: q.PromoDiscount,
			TotalAmount:   q.TotalAmount,
			Status:        b.Status,
		}
		return storeKey(ctx, tx, payerID, scopeCreateBooking, in.IdempotencyKey, b.ID, res)
	})
	if errors.Is(err, errReplay) {
		ok, err := s.replay(ctx, payerID, scopeCreateBooking, in.IdempotencyKey, &prev)
		return replayed(&prev, ok, err)
	}
	if err != nil {
		return nil, false, err
	}

	notifyAll(ctx, s.notifier, []uint{in.ProviderID}, domain.NotifBookingRequest,
		"New booking request", "You have a new booking request.",
		map[string]interface{}{"booking_id": res.BookingID})
	return res, false, nil
}

func replayed[T any](prev *T, ok bool, err error) (*T, bool, error) {
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, domain.Internal("idempotency key vanished", errReplay)
	}
	return prev, true, nil
}

// replay decodes a stored response into dst when key was already used.
func (s *BookingService) replay(ctx context.Context, userID uint, scope, key string, dst interface{}) (bool, error) {
	if key == "" {
		return false, nil
	}
	k, err := s.store.IdempotencyKeys().Get(ctx, userID, scope, key)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.Internal("could not read idempotency key", err)
	}
	if err := json.Unmarshal(k.Response, dst); err != nil {
		return false, domain.Internal("could not decode stored response", err)
	}
	return true, nil
}

func storeKey(ctx context.Context, tx repository.Repos, userID uint, scope, key string, resourceID uint, res interface{}) error {
	if key == "" {
		return nil
	}
	if len(key) > 64 {
		return domain.Errorf(domain.KindValidation, "Idempotency-Key must be at most 64 characters")
	}
	body, err := json.Marshal(res)
	if err != nil {
		return domain.Internal("could not encode response", err)
	}
	err = tx.IdempotencyKeys().Create(ctx, &models.IdempotencyKey{
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Response:   datatypes.JSON(body),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return errReplay
	}
	if err != nil {
		return domain.Internal("could not store idempotency key", err)
	}
	return nil
}

// Get returns a booking visible to userID: either party, or an admin.
func (s *BookingService) Get(ctx context.Context, userID uint, role string, bookingID uint) (*models.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, "booking not found")
	}
	if err != nil {
		return nil, domain.Internal("could not load booking", err)
	}
	if !b.IsParty(userID) && role != domain.RoleAdmin {
		return nil, domain.Errorf(domain.KindForbidden, "you are not a party to this booking")
	}
	return b, nil
}

// Transition applies one lifecycle action. Confirming a completed booking
// again succeeds without side effects.
func (s *BookingService) Transition(ctx context.Context, userID uint, in TransitionInput) (*TransitionResult, bool, error) {
	if err := validateCoordinates(in.Lat, in.Lng); err != nil {
		return nil, false, err
	}
	var prev TransitionResult
	if ok, err := s.replay(ctx, userID, scopeCompleteBooking, in.IdempotencyKey, &prev); ok || err != nil {
		return replayed(&prev, ok, err)
	}

	var (
		res    *TransitionResult
		b      *models.Booking
		job    *models.SettlementJob
		noop   bool
		action booking.Action
	)
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		var err error
		b, err = tx.Bookings().GetForUpdate(ctx, in.BookingID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Errorf(domain.KindNotFound, "booking not found")
		}
		if err != nil {
			return domain.Internal("could not load booking", err)
		}
		role, err := booking.RoleOf(b, userID)
		if err != nil {
			return err
		}
		if in.Action == "" {
			if action, err = booking.InferAction(b.Status, role); err != nil {
				return err
			}
		} else {
			var ok bool
			if action, ok = booking.ParseAction(in.Action); !ok {
				return domain.Errorf(domain.KindValidation, "unknown action %q", in.Action)
			}
		}
		out, err := booking.Transition(b.Status, role, action)
		if err != nil {
			return err
		}
		res = &TransitionResult{Success: true, BookingID: b.ID, Status: out.To}
		if out.NoOp {
			noop = true
			return nil
		}

		now := s.now()
		stampTransition(b, role, action, now, in.Lat, in.Lng)
		if action == booking.ActionCheckIn {
			res.CheckInDistanceMeters = checkInDistance(b)
		}
		switch out.Effect {
		case booking.EffectRefund:
			if err := refundEscrow(ctx, tx, b.BookerID, b.ID, b.TotalAmount, domain.TxTypeEscrowRefund); err != nil {
				return err
			}
		case booking.EffectSettle:
			job, err = settleBooking(ctx, tx, b, b.TotalAmount, b.PartnerEarning, now)
			if err != nil {
				return err
			}
		}
		if out.Effect != booking.EffectSettle {
			b.Status = out.To
			if err := tx.Bookings().Save(ctx, b); err != nil {
				return domain.Internal("could not update booking", err)
			}
		}
		return storeKey(ctx, tx, userID, scopeCompleteBooking, in.IdempotencyKey, b.ID, res)
	})
	if errors.Is(err, errReplay) {
		ok, err := s.replay(ctx, userID, scopeCompleteBooking, in.IdempotencyKey, &prev)
		return replayed(&prev, ok, err)
	}
	if err != nil {
		return nil, false, err
	}
	if noop {
		return res, false, nil
	}

	logger.Log.Info("booking transition",
		zap.Uint("booking_id", b.ID),
		zap.String("action", string(action)),
		zap.String("status", b.Status))
	notifyAll(ctx, s.notifier, []uint{b.CounterpartOf(userID)}, domain.NotifBookingUpdate,
		"Booking update", "Your booking is now "+strings.ReplaceAll(b.Status, "_", " ")+".",
		map[string]interface{}{"booking_id": b.ID, "status": b.Status, "action": string(action)})
	if job != nil && s.settlement != nil {
		if err := s.settlement.Enrich(ctx, job.ID); err != nil {
			logger.Log.Warn("settlement enrichment deferred", zap.Uint("job_id", job.ID), zap.Error(err))
		}
	}
	return res, false, nil
}

func stampTransition(b *models.Booking, role booking.Role, action booking.Action, now time.Time, lat, lng *float64) {
	switch action {
	case booking.ActionAccept:
		b.AcceptedAt = &now
	case booking.ActionReject, booking.ActionCancel:
		b.CancelledAt = &now
	case booking.ActionCheckIn:
		if role == booking.RolePartner {
			b.PartnerCheckInAt, b.PartnerCheckInLat, b.PartnerCheckInLng = &now, lat, lng
		} else {
			b.BookerCheckInAt, b.BookerCheckInLat, b.BookerCheckInLng = &now, lat, lng
		}
	case booking.ActionStart:
		b.StartedAt = &now
	case booking.ActionFinish:
		b.FinishedAt = &now
	}
}

func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return domain.Errorf(domain.KindValidation, "lat and lng must be sent together")
	}
	if lat != nil && !(location.Point{Lat: *lat, Lng: *lng}).Valid() {
		return domain.Errorf(domain.KindValidation, "coordinates out of range")
	}
	return nil
}

func checkInDistance(b *models.Booking) *int {
	if b.BookerCheckInLat == nil || b.PartnerCheckInLat == nil {
		return nil
	}
	d := location.DistanceMeters(
		location.Point{Lat: *b.BookerCheckInLat, Lng: *b.BookerCheckInLng},
		location.Point{Lat: *b.PartnerCheckInLat, Lng: *b.PartnerCheckInLng},
	)
	return &d
}

// Rate records the booker's rating of a completed booking and refreshes the
// partner's running average.
func (s *BookingService) Rate(ctx context.Context, userID, bookingID uint, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return domain.Errorf(domain.KindValidation, "rating must be between 1 and 5")
	}
	var partnerID uint
	var upgraded bool
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Errorf(domain.KindNotFound, "booking not found")
		}
		if err != nil {
			return domain.Internal("could not load booking", err)
		}
		if b.BookerID != userID {
			return domain.Errorf(domain.KindForbidden, "only the booker can rate this booking")
		}
		if b.Status != domain.BookingStatusCompleted {
			return domain.Errorf(domain.KindInvalidTransition, "only completed bookings can be rated")
		}
		if b.Rating != nil {
			return domain.Errorf(domain.KindConflict, "booking already rated")
		}
		b.Rating = &rating
		b.ReviewComment = strings.TrimSpace(comment)
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return domain.Internal("could not update booking", err)
		}

		partnerID = b.PartnerID
		partner, err := tx.Users().GetForUpdate(ctx, partnerID)
		if err != nil {
			return domain.Internal("could not load partner", err)
		}
		count := partner.RatingCount + 1
		avg := (partner.RatingAverage*float64(partner.RatingCount) + float64(rating)) / float64(count)
		if err := tx.Users().UpdateRating(ctx, partnerID, avg, count); err != nil {
			return domain.Internal("could not update rating", err)
		}
		upgraded, err = upgradeProIfEligible(ctx, tx, partnerID)
		return err
	})
	if err != nil {
		return err
	}
	if upgraded {
		n := proNotification(partnerID)
		notifyAll(ctx, s.notifier, []uint{n.userID}, n.notifType, n.title, n.body, n.data)
	}
	return nil
}
