package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"guide-booking/internal/lock"
	"guide-booking/internal/models"
	"guide-booking/pkg/response"
	"guide-booking/pkg/sl"
)

// Store is the persistence the service runs on. Lookups of missing records
// return response.ErrNotFound; uniqueness and precondition failures return
// response.ErrConflict.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetService(ctx context.Context, id string) (*models.Service, error)

	// Availability
	CreateAvailability(ctx context.Context, avail *models.Availability) error
	GetAvailability(ctx context.Context, guideID string) (*models.Availability, error)
	ReplaceAvailability(ctx context.Context, avail *models.Availability) error

	// Bookings
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	ListBookedTimes(ctx context.Context, guideID string, from, to time.Time) ([]time.Time, error)
	ListSweepCandidates(ctx context.Context) ([]*models.Booking, error)
	ListMissingMeetingLinks(ctx context.Context, after time.Time) ([]*models.Booking, error)

	// TransitionBooking moves the booking to `to` only while it is still in
	// `from`, writing patch in the same statement. Achievements in the patch
	// are also appended to the learner's profile.
	TransitionBooking(ctx context.Context, id string, from, to models.BookingStatus, patch models.BookingPatch) (*models.Booking, error)
	// SetMeetingLink stores link only when the booking has none yet.
	SetMeetingLink(ctx context.Context, id, link string) (bool, error)
	// RateBooking sets the rating of an unrated booking and folds the score
	// into the guide's aggregate atomically.
	RateBooking(ctx context.Context, id string, rating models.Rating) (*models.Booking, *models.RatingAggregate, error)
	SetFeedback(ctx context.Context, id string, feedback models.Feedback) (*models.Booking, error)
}

type MeetingProvisioner interface {
	CreateMeeting(ctx context.Context, start time.Time, durationMinutes int) (string, error)
}

type Mailer interface {
	SendBookingConfirmation(ctx context.Context, to, name, joinURL, date, clock string) error
}

type Options struct {
	// Location is the time zone availability windows are written in.
	Location *time.Location
	LockTTL  time.Duration
	// NotifyTimeout bounds the background meeting and email calls.
	NotifyTimeout time.Duration
	Now           func() time.Time
}

type Service struct {
	log      *slog.Logger
	store    Store
	locker   lock.Locker
	meetings MeetingProvisioner
	mailer   Mailer

	loc           *time.Location
	lockTTL       time.Duration
	notifyTimeout time.Duration
	now           func() time.Time

	// in-flight confirmation side effects
	wg sync.WaitGroup
}

func NewService(log *slog.Logger, store Store, locker lock.Locker, meetings MeetingProvisioner, mailer Mailer, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		log:           log.With(slog.String("component", "service")),
		store:         store,
		locker:        locker,
		meetings:      meetings,
		mailer:        mailer,
		loc:           opts.Location,
		lockTTL:       opts.LockTTL,
		notifyTimeout: opts.NotifyTimeout,
		now:           opts.Now,
	}
}

// Wait blocks until background confirmation work has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// withLock runs fn while holding key. When the lock backend itself fails
// fn still runs; the conditional updates in the store keep it correct.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}

	release, ok, err := s.locker.Lock(ctx, key, s.lockTTL)
	if err != nil {
		s.log.Warn("lock unavailable, continuing without it", slog.String("key", key), sl.Err(err))
		return fn()
	}
	if !ok {
		return response.Detail(response.ErrLocked, "resource is being modified, retry shortly")
	}
	defer release()

	return fn()
}

func (s *Service) actor(ctx context.Context, actorID string) (*models.User, error) {
	const op = "service.actor"

	if actorID == "" {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrUnauthorized, "missing user identity"))
	}

	user, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrUnauthorized, "unknown user"))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// bookingFor loads the booking and checks that the actor takes part in it.
// Admins may read any booking but only participants may act on one.
func (s *Service) bookingFor(ctx context.Context, actorID, bookingID string, allowAdmin bool) (*models.User, *models.Booking, error) {
	const op = "service.bookingFor"

	user, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	if bookingID == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "booking id is required"))
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !booking.IsParticipant(user.ID) && !(allowAdmin && user.Role == models.RoleAdmin) {
		return nil, nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrForbidden, "not a participant of this booking"))
	}

	return user, booking, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, response.ErrNotFound)
}
