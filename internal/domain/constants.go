package domain

const (
	RoleUser    = "USER"
	RolePartner = "PARTNER"
	RoleAdmin   = "ADMIN"
)

// Payer-side VIP tiers, derived from lifetime spending.
const (
	TierFree = "free"
	TierVIP  = "vip"
	TierSVIP = "svip"
)

// Partner tiers grant a discount on the platform's cut.
const (
	PartnerTierFree     = "free"
	PartnerTierBronze   = "bronze"
	PartnerTierSilver   = "silver"
	PartnerTierGold     = "gold"
	PartnerTierPlatinum = "platinum"
)

const (
	VIPSpendingThreshold  int64 = 1_000_000
	SVIPSpendingThreshold int64 = 100_000_000
)

const (
	ProMinCompletedBookings         = 5
	ProMinAverageRating     float64 = 4.8
)

const (
	DurationSession = "session"
	DurationDay     = "day"

	SessionHours    = 3
	DefaultDayHours = 8
	MaxDayHours     = 24
)

const (
	BookingStatusPending          = "pending"
	BookingStatusAccepted         = "accepted"
	BookingStatusArrived          = "arrived"
	BookingStatusInProgress       = "in_progress"
	BookingStatusCompletedPending = "completed_pending"
	BookingStatusCompleted        = "completed"
	BookingStatusDisputed         = "disputed"
	BookingStatusRejected         = "rejected"
	BookingStatusCancelled        = "cancelled"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Ledger transaction types. Amount is always a positive magnitude.
const (
	TxTypeEscrowHold     = "escrow_hold"
	TxTypeEscrowRefund   = "escrow_refund"
	TxTypeBookingPayment = "booking_payment"
	TxTypeBookingEarning = "booking_earning"
	TxTypeReferralBonus  = "referral_bonus"
	TxTypeDisputeRefund  = "dispute_refund"
)

const TxStatusCompleted = "completed"

const (
	DisputeStatusPending       = "pending"
	DisputeStatusInvestigating = "investigating"
	DisputeStatusResolved      = "resolved"
)

const (
	DisputeReasonNoShow         = "no_show"
	DisputeReasonLateArrival    = "late_arrival"
	DisputeReasonNotAsDescribed = "service_not_as_described"
	DisputeReasonInappropriate  = "inappropriate_behavior"
	DisputeReasonSafetyConcern  = "safety_concern"
	DisputeReasonPaymentIssue   = "payment_issue"
	DisputeReasonOther          = "other"
)

var DisputeReasons = []string{
	DisputeReasonNoShow,
	DisputeReasonLateArrival,
	DisputeReasonNotAsDescribed,
	DisputeReasonInappropriate,
	DisputeReasonSafetyConcern,
	DisputeReasonPaymentIssue,
	DisputeReasonOther,
}

const (
	ResolutionRelease       = "release"
	ResolutionRefund        = "refund"
	ResolutionPartialRefund = "partial_refund"
)

const (
	RewardStatusPending   = "pending"
	RewardStatusCompleted = "completed"
)

const (
	SettlementJobPending = "pending"
	SettlementJobDone    = "done"
	SettlementJobFailed  = "failed"
)

const (
	ReportStatusPending = "PENDING"
)

// Settings keys (system_settings table)
const (
	SettingReferralBonusReferrer = "referral_bonus_referrer"
	SettingReferralBonusReferred = "referral_bonus_referred"
)

const (
	DefaultReferralBonusReferrer int64 = 50_000
	DefaultReferralBonusReferred int64 = 30_000
)

// Notification types
const (
	NotifBookingRequest  = "BOOKING_REQUEST"
	NotifBookingUpdate   = "BOOKING_UPDATE"
	NotifTierUpgrade     = "TIER_UPGRADE"
	NotifProUpgrade      = "PRO_UPGRADE"
	NotifReferralBonus   = "REFERRAL_BONUS"
	NotifDisputeFiled    = "DISPUTE_FILED"
	NotifDisputeResolved = "DISPUTE_RESOLVED"
	NotifUserReported    = "USER_REPORTED"
)
