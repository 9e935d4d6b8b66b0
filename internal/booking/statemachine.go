// Package booking holds the booking lifecycle rules: who may move a booking
// from which status to which, and what each move does to the escrowed funds.
package booking

import (
	"meetly/internal/domain"
	"meetly/internal/models"
)

type Role string

const (
	RoleBooker  Role = "booker"
	RolePartner Role = "partner"
)

type Action string

const (
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
	ActionCheckIn Action = "check_in"
	ActionStart   Action = "start"
	ActionFinish  Action = "finish"
	ActionConfirm Action = "confirm"
)

func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionAccept, ActionReject, ActionCancel, ActionCheckIn, ActionStart, ActionFinish, ActionConfirm:
		return a, true
	}
	return "", false
}

// Effect is what a transition does to the booking's escrow.
type Effect int

const (
	EffectNone   Effect = iota
	EffectRefund        // escrow back to the payer's balance
	EffectSettle        // escrow released to the partner, fee retained
)

type Outcome struct {
	From   string
	To     string
	Effect Effect
	// NoOp means the action was already applied; nothing must be written.
	NoOp bool
}

// RoleOf returns the caller's side of the booking, or FORBIDDEN for third parties.
func RoleOf(b *models.Booking, userID uint) (Role, error) {
	switch userID {
	case b.BookerID:
		return RoleBooker, nil
	case b.PartnerID:
		return RolePartner, nil
	}
	return "", domain.Errorf(domain.KindForbidden, "you are not a party to this booking")
}

// Transition validates action by role from status and returns the resulting move.
func Transition(status string, role Role, action Action) (Outcome, error) {
	out := Outcome{From: status, To: status}
	switch action {
	case ActionAccept:
		if role != RolePartner {
			return out, onlyPartner(action)
		}
		if status != domain.BookingStatusPending {
			return out, invalid(action, status)
		}
		out.To = domain.BookingStatusAccepted

	case ActionReject:
		if role != RolePartner {
			return out, onlyPartner(action)
		}
		if status != domain.BookingStatusPending {
			return out, invalid(action, status)
		}
		out.To = domain.BookingStatusRejected
		out.Effect = EffectRefund

	case ActionCancel:
		switch {
		case role == RoleBooker && (status == domain.BookingStatusPending || status == domain.BookingStatusAccepted):
		case role == RolePartner && status == domain.BookingStatusAccepted:
		default:
			return out, invalid(action, status)
		}
		out.To = domain.BookingStatusCancelled
		out.Effect = EffectRefund

	case ActionCheckIn:
		if role == RoleBooker {
			// informational only, status never moves
			switch status {
			case domain.BookingStatusAccepted, domain.BookingStatusArrived, domain.BookingStatusInProgress:
				return out, nil
			}
			return out, invalid(action, status)
		}
		switch status {
		case domain.BookingStatusAccepted:
			out.To = domain.BookingStatusArrived
		case domain.BookingStatusArrived:
			out.NoOp = true
		default:
			return out, invalid(action, status)
		}

	case ActionStart:
		if role != RolePartner {
			return out, onlyPartner(action)
		}
		if status != domain.BookingStatusArrived {
			return out, invalid(action, status)
		}
		out.To = domain.BookingStatusInProgress

	case ActionFinish:
		if role != RolePartner {
			return out, onlyPartner(action)
		}
		if status != domain.BookingStatusInProgress {
			return out, invalid(action, status)
		}
		out.To = domain.BookingStatusCompletedPending

	case ActionConfirm:
		if role != RoleBooker {
			return out, domain.Errorf(domain.KindForbidden, "only the booker can confirm completion")
		}
		switch status {
		case domain.BookingStatusCompletedPending:
			out.To = domain.BookingStatusCompleted
			out.Effect = EffectSettle
		case domain.BookingStatusCompleted:
			out.NoOp = true
		default:
			return out, invalid(action, status)
		}

	default:
		return out, domain.Errorf(domain.KindValidation, "unknown action %q", action)
	}
	return out, nil
}

// InferAction picks the natural next action when a caller does not name one.
func InferAction(status string, role Role) (Action, error) {
	if role == RolePartner {
		switch status {
		case domain.BookingStatusPending:
			return ActionAccept, nil
		case domain.BookingStatusAccepted:
			return ActionCheckIn, nil
		case domain.BookingStatusArrived:
			return ActionStart, nil
		case domain.BookingStatusInProgress:
			return ActionFinish, nil
		}
	} else {
		switch status {
		case domain.BookingStatusAccepted, domain.BookingStatusArrived, domain.BookingStatusInProgress:
			return ActionCheckIn, nil
		case domain.BookingStatusCompletedPending, domain.BookingStatusCompleted:
			return ActionConfirm, nil
		}
	}
	return "", domain.Errorf(domain.KindInvalidTransition, "no action available for a %s booking", status)
}

// IsDisputable reports whether a dispute may be filed: matched through completed.
func IsDisputable(status string) bool {
	switch status {
	case domain.BookingStatusAccepted,
		domain.BookingStatusArrived,
		domain.BookingStatusInProgress,
		domain.BookingStatusCompletedPending,
		domain.BookingStatusCompleted:
		return true
	}
	return false
}

// HoldsEscrow reports whether a booking in status still has its total in the payer's escrow.
// Disputed bookings hold escrow only if they were never settled, see models.Booking.EscrowReleasedAt.
func HoldsEscrow(status string) bool {
	switch status {
	case domain.BookingStatusPending,
		domain.BookingStatusAccepted,
		domain.BookingStatusArrived,
		domain.BookingStatusInProgress,
		domain.BookingStatusCompletedPending:
		return true
	}
	return false
}

func onlyPartner(a Action) error {
	return domain.Errorf(domain.KindForbidden, "only the partner can %s this booking", a)
}

func invalid(a Action, status string) error {
	return domain.Errorf(domain.KindInvalidTransition, "cannot %s a booking that is %s", a, status)
}
