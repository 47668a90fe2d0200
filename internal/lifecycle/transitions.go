// Package lifecycle holds the booking state machine: which trigger may move
// a booking from which status, and which time-based moves the sweep makes.
package lifecycle

import (
	"time"

	"guide-booking/internal/models"
)

type Trigger string

const (
	PaymentConfirmed Trigger = "payment-confirmed"
	GuideConfirm     Trigger = "guide-confirm"
	GuideReschedule  Trigger = "guide-reschedule"
	GuideCancel      Trigger = "guide-cancel"
	LearnerCancel    Trigger = "learner-cancel"
	StartSession     Trigger = "start-session"
	GuideComplete    Trigger = "guide-complete"
	SweepAutoConfirm Trigger = "sweep-auto-confirm"
	SweepNoShow      Trigger = "sweep-no-show"
	SweepComplete    Trigger = "sweep-complete"
)

// OverdueAfter is how far past its scheduled time a booking must be before
// the sweep closes it.
const OverdueAfter = time.Hour

// Transition is a single allowed edge.
type Transition struct {
	From    models.BookingStatus
	To      models.BookingStatus
	Trigger Trigger
}

const (
	pending    = models.BookingPending
	confirmed  = models.BookingConfirmed
	upcoming   = models.BookingUpcoming
	inProgress = models.BookingInProgress
	completed  = models.BookingCompleted
	cancelled  = models.BookingCancelled
	noShow     = models.BookingNoShow
)

// Nothing ever moves back to pending.
var transitionsTable = []Transition{
	{From: pending, To: confirmed, Trigger: PaymentConfirmed},
	{From: pending, To: confirmed, Trigger: GuideConfirm},

	{From: pending, To: confirmed, Trigger: GuideReschedule},
	{From: confirmed, To: confirmed, Trigger: GuideReschedule},
	{From: upcoming, To: confirmed, Trigger: GuideReschedule},

	{From: pending, To: cancelled, Trigger: GuideCancel},
	{From: confirmed, To: cancelled, Trigger: GuideCancel},
	{From: upcoming, To: cancelled, Trigger: GuideCancel},
	{From: inProgress, To: cancelled, Trigger: GuideCancel},

	{From: pending, To: cancelled, Trigger: LearnerCancel},
	{From: confirmed, To: cancelled, Trigger: LearnerCancel},
	{From: upcoming, To: cancelled, Trigger: LearnerCancel},

	{From: confirmed, To: inProgress, Trigger: StartSession},
	{From: upcoming, To: inProgress, Trigger: StartSession},

	{From: confirmed, To: completed, Trigger: GuideComplete},
	{From: upcoming, To: completed, Trigger: GuideComplete},
	{From: inProgress, To: completed, Trigger: GuideComplete},

	{From: pending, To: confirmed, Trigger: SweepAutoConfirm},
	{From: pending, To: noShow, Trigger: SweepNoShow},
	{From: confirmed, To: completed, Trigger: SweepComplete},
	{From: upcoming, To: completed, Trigger: SweepComplete},
}

// TransitionFor returns the allowed transition for a given status+trigger.
func TransitionFor(from models.BookingStatus, tr Trigger) (Transition, bool) {
	for _, t := range transitionsTable {
		if t.From == from && t.Trigger == tr {
			return t, true
		}
	}
	return Transition{}, false
}

// SweepTrigger picks the time-based transition due for b at now, if any.
// It depends only on stored fields and now, so re-running it after the
// transition was applied finds nothing to do.
func SweepTrigger(b *models.Booking, now time.Time) (Trigger, bool) {
	overdue := b.DateAndTime.Before(now.Add(-OverdueAfter))

	switch b.Status {
	case pending:
		if b.Price.IsFree() {
			return SweepAutoConfirm, true
		}
		if overdue {
			return SweepNoShow, true
		}
	case confirmed, upcoming:
		if overdue {
			return SweepComplete, true
		}
	}

	return "", false
}

// InitialStatus is confirmed for free bookings and pending otherwise.
func InitialStatus(price models.Price) models.BookingStatus {
	if price.IsFree() {
		return confirmed
	}
	return pending
}
