package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"meetly/internal/domain"
	"meetly/internal/models"
	"meetly/internal/repository"
)

type userRepo struct{ *view }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	defer r.lock()()
	st := r.st()
	for _, existing := range st.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID == 0 {
		u.ID = st.id()
	}
	if u.Wallet.VIPTier == "" {
		u.Wallet.VIPTier = domain.TierFree
	}
	if u.PartnerTier == "" {
		u.PartnerTier = domain.PartnerTierFree
	}
	stamp(&u.CreatedAt)
	u.UpdatedAt = u.CreatedAt
	st.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	defer r.lock()()
	u, ok := r.st().users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetForUpdate(ctx context.Context, id uint) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r userRepo) ListIDsByRole(_ context.Context, role string) ([]uint, error) {
	defer r.lock()()
	var ids []uint
	for id, u := range r.st().users {
		if u.Role == role {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r userRepo) update(id uint, fn func(u *models.User)) error {
	defer r.lock()()
	st := r.st()
	u, ok := st.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	st.users[id] = u
	return nil
}

func (r userRepo) UpdateRating(_ context.Context, id uint, average float64, count int) error {
	return r.update(id, func(u *models.User) {
		u.RatingAverage = average
		u.RatingCount = count
	})
}

func (r userRepo) MarkPhoneVerified(_ context.Context, id uint, phone string, at time.Time) error {
	return r.update(id, func(u *models.User) {
		u.Phone = phone
		u.PhoneVerifiedAt = &at
	})
}

func (r userRepo) SetFCMToken(_ context.Context, id uint, token string) error {
	return r.update(id, func(u *models.User) { u.FCMToken = token })
}

type walletRepo struct{ *view }

func (r walletRepo) Get(_ context.Context, userID uint) (*models.Wallet, error) {
	defer r.lock()()
	u, ok := r.st().users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	w := u.Wallet
	return &w, nil
}

func (r walletRepo) GetForUpdate(ctx context.Context, userID uint) (*models.Wallet, error) {
	return r.Get(ctx, userID)
}

func (r walletRepo) Save(_ context.Context, userID uint, w *models.Wallet) error {
	defer r.lock()()
	st := r.st()
	u, ok := st.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if w.Balance < 0 || w.Escrow < 0 {
		return fmt.Errorf("check constraint violated: balance=%d escrow=%d", w.Balance, w.Escrow)
	}
	u.Wallet = *w
	st.users[userID] = u
	return nil
}

type serviceRepo struct{ *view }

func (r serviceRepo) Create(_ context.Context, s *models.Service) error {
	defer r.lock()()
	st := r.st()
	if s.ID == 0 {
		s.ID = st.id()
	}
	stamp(&s.CreatedAt)
	st.services[s.ID] = *s
	return nil
}

func (r serviceRepo) GetByID(_ context.Context, id uint) (*models.Service, error) {
	defer r.lock()()
	s, ok := r.st().services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

type bookingRepo struct{ *view }

func (r bookingRepo) Create(_ context.Context, b *models.Booking) error {
	defer r.lock()()
	st := r.st()
	b.ID = st.id()
	stamp(&b.CreatedAt)
	b.UpdatedAt = b.CreatedAt
	st.bookings[b.ID] = *b
	return nil
}

func (r bookingRepo) GetByID(_ context.Context, id uint) (*models.Booking, error) {
	defer r.lock()()
	b, ok := r.st().bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r bookingRepo) GetForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r bookingRepo) Save(_ context.Context, b *models.Booking) error {
	defer r.lock()()
	st := r.st()
	if _, ok := st.bookings[b.ID]; !ok {
		return repository.ErrNotFound
	}
	b.UpdatedAt = time.Now()
	st.bookings[b.ID] = *b
	return nil
}

func (r bookingRepo) count(match func(b models.Booking) bool) int64 {
	defer r.lock()()
	var n int64
	for _, b := range r.st().bookings {
		if match(b) {
			n++
		}
	}
	return n
}

func (r bookingRepo) CountActiveByBooker(_ context.Context, bookerID uint) (int64, error) {
	return r.count(func(b models.Booking) bool {
		return b.BookerID == bookerID &&
			b.Status != domain.BookingStatusCancelled &&
			b.Status != domain.BookingStatusRejected
	}), nil
}

func (r bookingRepo) CountCompletedByBooker(_ context.Context, bookerID uint) (int64, error) {
	return r.count(func(b models.Booking) bool {
		return b.BookerID == bookerID && b.Status == domain.BookingStatusCompleted
	}), nil
}

func (r bookingRepo) CountCompletedByPartner(_ context.Context, partnerID uint) (int64, error) {
	return r.count(func(b models.Booking) bool {
		return b.PartnerID == partnerID && b.Status == domain.BookingStatusCompleted
	}), nil
}

type promoRepo struct{ *view }

func (r promoRepo) Create(_ context.Context, p *models.PromoCode) error {
	defer r.lock()()
	st := r.st()
	for _, existing := range st.promos {
		if existing.Code == p.Code {
			return repository.ErrDuplicate
		}
	}
	p.ID = st.id()
	stamp(&p.CreatedAt)
	st.promos[p.ID] = *p
	return nil
}

func (r promoRepo) GetByID(_ context.Context, id uint) (*models.PromoCode, error) {
	defer r.lock()()
	p, ok := r.st().promos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r promoRepo) GetForUpdate(ctx context.Context, id uint) (*models.PromoCode, error) {
	return r.GetByID(ctx, id)
}

func (r promoRepo) IncrementUsedCount(_ context.Context, id uint) error {
	defer r.lock()()
	st := r.st()
	p, ok := st.promos[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.UsedCount++
	st.promos[id] = p
	return nil
}

func (r promoRepo) CountUsageByUser(_ context.Context, promoID, userID uint) (int64, error) {
	defer r.lock()()
	var n int64
	for _, u := range r.st().promoUsages {
		if u.PromoCodeID == promoID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r promoRepo) CreateUsage(_ context.Context, u *models.PromoCodeUsage) error {
	defer r.lock()()
	st := r.st()
	for _, existing := range st.promoUsages {
		if existing.BookingID == u.BookingID {
			return repository.ErrDuplicate
		}
	}
	u.ID = st.id()
	stamp(&u.CreatedAt)
	st.promoUsages = append(st.promoUsages, *u)
	return nil
}

type ledgerRepo struct{ *view }

func (r ledgerRepo) Append(_ context.Context, t *models.Transaction) error {
	defer r.lock()()
	st := r.st()
	t.ID = st.id()
	stamp(&t.CreatedAt)
	st.ledger = append(st.ledger, *t)
	return nil
}

func (r ledgerRepo) ListByUser(_ context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	defer r.lock()()
	var out []models.Transaction
	ledger := r.st().ledger
	for i := len(ledger) - 1; i >= 0; i-- {
		if ledger[i].UserID == userID {
			out = append(out, ledger[i])
		}
	}
	return page(out, limit, offset), nil
}

type disputeRepo struct{ *view }

func (r disputeRepo) Create(_ context.Context, d *models.Dispute) error {
	defer r.lock()()
	st := r.st()
	for _, existing := range st.disputes {
		if existing.DateOrderID == d.DateOrderID {
			return repository.ErrDuplicate
		}
	}
	d.ID = st.id()
	stamp(&d.CreatedAt)
	d.UpdatedAt = d.CreatedAt
	st.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) GetByID(_ context.Context, id uint) (*models.Dispute, error) {
	defer r.lock()()
	d, ok := r.st().disputes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r disputeRepo) GetForUpdate(ctx context.Context, id uint) (*models.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r disputeRepo) GetByBookingID(_ context.Context, bookingID uint) (*models.Dispute, error) {
	defer r.lock()()
	for _, d := range r.st().disputes {
		if d.DateOrderID == bookingID {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r disputeRepo) Save(_ context.Context, d *models.Dispute) error {
	defer r.lock()()
	st := r.st()
	if _, ok := st.disputes[d.ID]; !ok {
		return repository.ErrNotFound
	}
	d.UpdatedAt = time.Now()
	st.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) List(_ context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	defer r.lock()()
	var out []models.Dispute
	for _, d := range r.st().disputes {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

type referralRepo struct{ *view }

func (r referralRepo) GetOrCreateCode(_ context.Context, userID uint) (*models.ReferralCode, error) {
	defer r.lock()()
	st := r.st()
	if rc, ok := st.referralCodes[userID]; ok {
		return &rc, nil
	}
	code, err := repository.GenerateReferralCode()
	if err != nil {
		return nil, err
	}
	rc := models.ReferralCode{ID: st.id(), UserID: userID, Code: code, IsActive: true, CreatedAt: time.Now()}
	st.referralCodes[userID] = rc
	return &rc, nil
}

func (r referralRepo) GetByCode(_ context.Context, code string) (*models.ReferralCode, error) {
	defer r.lock()()
	for _, rc := range r.st().referralCodes {
		if rc.Code == code && rc.IsActive {
			return &rc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r referralRepo) CreateReward(_ context.Context, rw *models.ReferralReward) error {
	defer r.lock()()
	st := r.st()
	for _, existing := range st.rewards {
		if existing.ReferredID == rw.ReferredID {
			return repository.ErrDuplicate
		}
	}
	rw.ID = st.id()
	stamp(&rw.CreatedAt)
	rw.UpdatedAt = rw.CreatedAt
	st.rewards[rw.ID] = *rw
	return nil
}

func (r referralRepo) GetRewardByReferred(_ context.Context, referredID uint) (*models.ReferralReward, error) {
	defer r.lock()()
	for _, rw := range r.st().rewards {
		if rw.ReferredID == referredID {
			return &rw, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r referralRepo) GetRewardByReferredForUpdate(ctx context.Context, referredID uint) (*models.ReferralReward, error) {
	return r.GetRewardByReferred(ctx, referredID)
}

func (r referralRepo) SaveReward(_ context.Context, rw *models.ReferralReward) error {
	defer r.lock()()
	st := r.st()
	if _, ok := st.rewards[rw.ID]; !ok {
		return repository.ErrNotFound
	}
	rw.UpdatedAt = time.Now()
	st.rewards[rw.ID] = *rw
	return nil
}

type settlementRepo struct{ *view }

func (r settlementRepo) Create(_ context.Context, j *models.SettlementJob) error {
	defer r.lock()()
	st := r.st()
	j.ID = st.id()
	stamp(&j.CreatedAt)
	j.UpdatedAt = j.CreatedAt
	st.jobs[j.ID] = *j
	return nil
}

func (r settlementRepo) GetByID(_ context.Context, id uint) (*models.SettlementJob, error) {
	defer r.lock()()
	j, ok := r.st().jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (r settlementRepo) GetForUpdate(ctx context.Context, id uint) (*models.SettlementJob, error) {
	return r.GetByID(ctx, id)
}

func (r settlementRepo) Save(_ context.Context, j *models.SettlementJob) error {
	defer r.lock()()
	st := r.st()
	if _, ok := st.jobs[j.ID]; !ok {
		return repository.ErrNotFound
	}
	j.UpdatedAt = time.Now()
	st.jobs[j.ID] = *j
	return nil
}

func (r settlementRepo) ListPending(_ context.Context, limit int) ([]models.SettlementJob, error) {
	defer r.lock()()
	var out []models.SettlementJob
	for _, j := range r.st().jobs {
		if j.Status == domain.SettlementJobPending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return page(out, limit, 0), nil
}

type idempotencyRepo struct{ *view }

func (r idempotencyRepo) Get(_ context.Context, userID uint, scope, key string) (*models.IdempotencyKey, error) {
	defer r.lock()()
	for _, k := range r.st().idempotency {
		if k.UserID == userID && k.Scope == scope && k.Key == key {
			return &k, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r idempotencyRepo) Create(_ context.Context, k *models.IdempotencyKey) error {
	defer r.lock()()
	st := r.st()
	for _, existing := range st.idempotency {
		if existing.UserID == k.UserID && existing.Scope == k.Scope && existing.Key == k.Key {
			return repository.ErrDuplicate
		}
	}
	k.ID = st.id()
	stamp(&k.CreatedAt)
	st.idempotency = append(st.idempotency, *k)
	return nil
}

type notificationRepo struct{ *view }

func (r notificationRepo) Create(_ context.Context, n *models.Notification) error {
	defer r.lock()()
	st := r.st()
	n.ID = st.id()
	stamp(&n.CreatedAt)
	st.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) ListByUserID(_ context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	defer r.lock()()
	var out []models.Notification
	for _, n := range r.st().notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, userID uint, at time.Time) error {
	defer r.lock()()
	st := r.st()
	n, ok := st.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.ReadAt = &at
	st.notifications[id] = n
	return nil
}

type reportRepo struct{ *view }

func (r reportRepo) Create(_ context.Context, rep *models.Report) error {
	defer r.lock()()
	st := r.st()
	rep.ID = st.id()
	stamp(&rep.CreatedAt)
	st.reports = append(st.reports, *rep)
	return nil
}

type auditLogRepo struct{ *view }

func (r auditLogRepo) Create(_ context.Context, l *models.AuditLog) error {
	defer r.lock()()
	st := r.st()
	l.ID = st.id()
	stamp(&l.CreatedAt)
	st.auditLogs = append(st.auditLogs, *l)
	return nil
}

type otpRepo struct{ *view }

func (r otpRepo) Create(_ context.Context, o *models.OTPCode) error {
	defer r.lock()()
	st := r.st()
	o.ID = st.id()
	stamp(&o.CreatedAt)
	st.otps[o.ID] = *o
	return nil
}

func (r otpRepo) GetActiveForUpdate(_ context.Context, userID uint, phone string) (*models.OTPCode, error) {
	defer r.lock()()
	var best *models.OTPCode
	for _, o := range r.st().otps {
		if o.UserID != userID || o.Phone != phone || o.ConsumedAt != nil {
			continue
		}
		if best == nil || o.ID > best.ID {
			o := o
			best = &o
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r otpRepo) Save(_ context.Context, o *models.OTPCode) error {
	defer r.lock()()
	st := r.st()
	if _, ok := st.otps[o.ID]; !ok {
		return repository.ErrNotFound
	}
	st.otps[o.ID] = *o
	return nil
}

func (r otpRepo) InvalidateAll(_ context.Context, userID uint, phone string, at time.Time) error {
	defer r.lock()()
	st := r.st()
	for id, o := range st.otps {
		if o.UserID == userID && o.Phone == phone && o.ConsumedAt == nil {
			o.ConsumedAt = &at
			st.otps[id] = o
		}
	}
	return nil
}

type settingRepo struct{ *view }

func (r settingRepo) Get(_ context.Context, key string) (string, error) {
	defer r.lock()()
	s, ok := r.st().settings[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return s.Value, nil
}

func (r settingRepo) Set(_ context.Context, key, value string, updatedBy *uint) error {
	defer r.lock()()
	st := r.st()
	s, ok := st.settings[key]
	if !ok {
		s = models.SystemSetting{ID: st.id(), Key: key, CreatedAt: time.Now()}
	}
	s.Value = value
	s.UpdatedBy = updatedBy
	s.UpdatedAt = time.Now()
	st.settings[key] = s
	return nil
}

func (r settingRepo) GetAll(_ context.Context) ([]models.SystemSetting, error) {
	defer r.lock()()
	out := make([]models.SystemSetting, 0, len(r.st().settings))
	for _, s := range r.st().settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r settingRepo) SeedDefaults(_ context.Context, defaults map[string]string) error {
	defer r.lock()()
	st := r.st()
	for k, v := range defaults {
		if _, ok := st.settings[k]; ok {
			continue
		}
		st.settings[k] = models.SystemSetting{ID: st.id(), Key: k, Value: v, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	}
	return nil
}
