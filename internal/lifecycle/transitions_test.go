package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"guide-booking/internal/models"
)

var allStatuses = []models.BookingStatus{
	pending, confirmed, upcoming, inProgress, completed, cancelled, noShow,
}

var allTriggers = []Trigger{
	PaymentConfirmed, GuideConfirm, GuideReschedule, GuideCancel, LearnerCancel,
	StartSession, GuideComplete, SweepAutoConfirm, SweepNoShow, SweepComplete,
}

func TestNothingReturnsToPending(t *testing.T) {
	for _, tr := range transitionsTable {
		assert.NotEqual(t, pending, tr.To, "%s from %s", tr.Trigger, tr.From)
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, s := range allStatuses {
		if !s.Terminal() {
			continue
		}
		for _, tr := range allTriggers {
			_, ok := TransitionFor(s, tr)
			assert.False(t, ok, "%s from %s", tr, s)
		}
	}
}

func TestTransitionFor(t *testing.T) {
	cases := []struct {
		from models.BookingStatus
		tr   Trigger
		to   models.BookingStatus
		ok   bool
	}{
		{pending, PaymentConfirmed, confirmed, true},
		{confirmed, PaymentConfirmed, "", false},
		{pending, GuideConfirm, confirmed, true},
		{confirmed, GuideConfirm, "", false},
		{upcoming, GuideReschedule, confirmed, true},
		{completed, GuideReschedule, "", false},
		{inProgress, GuideCancel, cancelled, true},
		{inProgress, LearnerCancel, "", false},
		{upcoming, StartSession, inProgress, true},
		{pending, StartSession, "", false},
		{inProgress, GuideComplete, completed, true},
		{pending, GuideComplete, "", false},
		{pending, SweepNoShow, noShow, true},
		{upcoming, SweepComplete, completed, true},
		{inProgress, SweepComplete, "", false},
	}

	for _, tc := range cases {
		got, ok := TransitionFor(tc.from, tc.tr)
		assert.Equal(t, tc.ok, ok, "%s from %s", tc.tr, tc.from)
		if ok {
			assert.Equal(t, tc.to, got.To)
		}
	}
}

func TestSweepTrigger(t *testing.T) {
	now := time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC)
	twoHoursAgo := now.Add(-2 * time.Hour)
	halfHourAgo := now.Add(-30 * time.Minute)
	tomorrow := now.Add(24 * time.Hour)

	cases := []struct {
		name   string
		status models.BookingStatus
		price  models.Price
		at     time.Time
		want   Trigger
		ok     bool
	}{
		{"free pending promoted", pending, models.NumericPrice(0), tomorrow, SweepAutoConfirm, true},
		{"paid pending overdue", pending, models.NumericPrice(20), twoHoursAgo, SweepNoShow, true},
		{"paid pending within grace", pending, models.NumericPrice(20), halfHourAgo, "", false},
		{"paid pending future", pending, models.NumericPrice(20), tomorrow, "", false},
		{"confirmed overdue", confirmed, models.NumericPrice(20), twoHoursAgo, SweepComplete, true},
		{"upcoming overdue", upcoming, models.TextPrice("Free"), twoHoursAgo, SweepComplete, true},
		{"confirmed future", confirmed, models.NumericPrice(20), tomorrow, "", false},
		{"in progress untouched", inProgress, models.NumericPrice(20), twoHoursAgo, "", false},
		{"completed untouched", completed, models.NumericPrice(20), twoHoursAgo, "", false},
		{"no-show untouched", noShow, models.NumericPrice(20), twoHoursAgo, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &models.Booking{Status: tc.status, Price: tc.price, DateAndTime: tc.at}
			got, ok := SweepTrigger(b, now)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)

			if ok {
				edge, allowed := TransitionFor(tc.status, got)
				assert.True(t, allowed)

				b.Status = edge.To
				next, again := SweepTrigger(b, now)
				if again {
					assert.NotEqual(t, got, next)
				}
			}
		})
	}
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, confirmed, InitialStatus(models.Price{}))
	assert.Equal(t, confirmed, InitialStatus(models.TextPrice("0")))
	assert.Equal(t, confirmed, InitialStatus(models.TextPrice("Free")))
	assert.Equal(t, confirmed, InitialStatus(models.NumericPrice(0)))
	assert.Equal(t, pending, InitialStatus(models.NumericPrice(15)))
}
