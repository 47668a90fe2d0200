package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"guide-booking/api"
	"guide-booking/internal/lifecycle"
	"guide-booking/internal/models"
	"guide-booking/pkg/response"
)

// Bookings

func (s *Service) CreateBooking(ctx context.Context, actorID string, req *api.BookingRequest) (*api.BookingResponse, error) {
	const op = "service.CreateBooking"

	learner, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if learner.Role != models.RoleLearner {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrForbidden, "only learners can book sessions"))
	}

	if strings.TrimSpace(req.ServiceID) == "" {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "service_id is required"))
	}

	now := s.now()
	at, err := s.parseFutureDate(req.DateAndTime, "date_and_time", now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	svc, err := s.store.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking := &models.Booking{
		ID:              uuid.NewString(),
		ServiceID:       svc.ID,
		LearnerID:       learner.ID,
		GuideID:         svc.GuideID,
		DateAndTime:     at,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price,
		Status:          lifecycle.InitialStatus(svc.Price),
		LearnerNotes:    req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	lockKey := fmt.Sprintf("slot:%s:%d", booking.GuideID, booking.DateAndTime.Unix())
	err = s.withLock(ctx, lockKey, func() error {
		return s.store.CreateBooking(ctx, booking)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("booking created",
		slog.String("booking_id", booking.ID),
		slog.String("status", string(booking.Status)),
		slog.String("price", booking.Price.String()),
		slog.Bool("free", booking.Price.IsFree()),
	)

	if booking.Status == models.BookingConfirmed {
		s.dispatchConfirmation(booking)
	}

	return toBookingResponse(booking), nil
}

func (s *Service) GetBooking(ctx context.Context, actorID, bookingID string) (*api.BookingResponse, error) {
	const op = "service.GetBooking"

	_, booking, err := s.bookingFor(ctx, actorID, bookingID, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toBookingResponse(booking), nil
}

// ListBookings groups the actor's bookings into upcoming (soonest first),
// past (latest first) and cancelled.
func (s *Service) ListBookings(ctx context.Context, actorID string) (*api.BookingListResponse, error) {
	const op = "service.ListBookings"

	user, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bookings, err := s.store.ListBookingsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].DateAndTime.Before(bookings[j].DateAndTime)
	})

	result := &api.BookingListResponse{
		Upcoming:  []api.BookingResponse{},
		Past:      []api.BookingResponse{},
		Cancelled: []api.BookingResponse{},
	}

	for _, b := range bookings {
		switch {
		case b.Status == models.BookingCancelled:
			result.Cancelled = append(result.Cancelled, *toBookingResponse(b))
		case b.Status.Terminal():
			result.Past = append([]api.BookingResponse{*toBookingResponse(b)}, result.Past...)
		default:
			result.Upcoming = append(result.Upcoming, *toBookingResponse(b))
		}
	}

	return result, nil
}

func (s *Service) ConfirmBooking(ctx context.Context, actorID, bookingID string, req *api.BookingConfirmRequest) (*api.BookingResponse, error) {
	const op = "service.ConfirmBooking"

	var patch models.BookingPatch
	if link := strings.TrimSpace(req.MeetingLink); link != "" {
		patch.MeetingLink = &link
	}

	booking, err := s.guideTransition(ctx, actorID, bookingID, lifecycle.GuideConfirm, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.dispatchConfirmation(booking)

	return toBookingResponse(booking), nil
}

func (s *Service) RescheduleBooking(ctx context.Context, actorID, bookingID string, req *api.BookingRescheduleRequest) (*api.BookingResponse, error) {
	const op = "service.RescheduleBooking"

	now := s.now()
	newDate, err := s.parseFutureDate(req.NewDateAndTime, "new_date_and_time", now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result *models.Booking
	err = s.withLock(ctx, "booking:"+bookingID, func() error {
		user, booking, err := s.bookingFor(ctx, actorID, bookingID, false)
		if err != nil {
			return err
		}
		if user.ID != booking.GuideID {
			return response.Detail(response.ErrForbidden, "only the guide can reschedule")
		}

		patch := models.BookingPatch{
			DateAndTime: &newDate,
			Reschedule: &models.RescheduleEntry{
				PreviousDate:  booking.DateAndTime,
				NewDate:       newDate,
				Reason:        req.Reason,
				RescheduledBy: user.ID,
				RescheduledAt: now,
			},
		}

		result, err = s.transition(ctx, booking, lifecycle.GuideReschedule, patch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toBookingResponse(result), nil
}

// CancelBooking cancels on behalf of the guide or the learner; each side has
// its own set of statuses it may cancel from.
func (s *Service) CancelBooking(ctx context.Context, actorID, bookingID string, req *api.BookingCancelRequest) (*api.BookingResponse, error) {
	const op = "service.CancelBooking"

	var result *models.Booking
	err := s.withLock(ctx, "booking:"+bookingID, func() error {
		user, booking, err := s.bookingFor(ctx, actorID, bookingID, false)
		if err != nil {
			return err
		}

		trigger := lifecycle.LearnerCancel
		if user.ID == booking.GuideID {
			trigger = lifecycle.GuideCancel
		}

		patch := models.BookingPatch{
			Cancellation: &models.Cancellation{
				Reason:      req.Reason,
				CancelledBy: user.ID,
				CancelledAt: s.now(),
			},
		}

		result, err = s.transition(ctx, booking, trigger, patch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toBookingResponse(result), nil
}

func (s *Service) StartSession(ctx context.Context, actorID, bookingID string) (*api.BookingResponse, error) {
	const op = "service.StartSession"

	var result *models.Booking
	err := s.withLock(ctx, "booking:"+bookingID, func() error {
		_, booking, err := s.bookingFor(ctx, actorID, bookingID, false)
		if err != nil {
			return err
		}

		now := s.now()
		result, err = s.transition(ctx, booking, lifecycle.StartSession, models.BookingPatch{SessionStartedAt: &now})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toBookingResponse(result), nil
}

// CompleteBooking closes the session. Achievements are appended to the
// learner's profile as given; repeated titles are not merged.
func (s *Service) CompleteBooking(ctx context.Context, actorID, bookingID string, req *api.BookingCompleteRequest) (*api.BookingResponse, error) {
	const op = "service.CompleteBooking"

	now := s.now()
	patch := models.BookingPatch{SessionEndedAt: &now}
	if notes := strings.TrimSpace(req.SessionNotes); notes != "" {
		patch.SessionNotes = &notes
	}

	for _, a := range req.Achievements {
		if strings.TrimSpace(a.Title) == "" {
			return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "achievement title is required"))
		}
		patch.Achievements = append(patch.Achievements, models.Achievement{
			BookingID:   bookingID,
			Title:       a.Title,
			Description: a.Description,
			AwardedAt:   now,
		})
	}

	booking, err := s.guideTransition(ctx, actorID, bookingID, lifecycle.GuideComplete, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toBookingResponse(booking), nil
}

// RateBooking stores the learner's one and only rating for the booking and
// folds it into the guide's running average.
func (s *Service) RateBooking(ctx context.Context, actorID, bookingID string, req *api.BookingRateRequest) (*api.RatingResponse, error) {
	const op = "service.RateBooking"

	if req.Score < 1 || req.Score > 5 {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "score must be between 1 and 5"))
	}

	user, booking, err := s.bookingFor(ctx, actorID, bookingID, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.ID != booking.LearnerID {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrForbidden, "only the learner can rate"))
	}
	if booking.Rating != nil {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrConflict, "booking already rated"))
	}

	rating := models.Rating{
		Score:   req.Score,
		Comment: req.Comment,
		RatedAt: s.now(),
	}

	rated, agg, err := s.store.RateBooking(ctx, booking.ID, rating)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("booking rated",
		slog.String("booking_id", rated.ID),
		slog.String("guide_id", agg.GuideID),
		slog.Int("score", req.Score),
		slog.Float64("average", agg.Average),
		slog.Int("count", agg.Count),
	)

	return &api.RatingResponse{
		Booking: *toBookingResponse(rated),
		Guide: api.GuideRating{
			GuideID: agg.GuideID,
			Average: agg.Average,
			Count:   agg.Count,
			Total:   agg.Total,
		},
	}, nil
}

func (s *Service) AddFeedback(ctx context.Context, actorID, bookingID string, req *api.BookingFeedbackRequest) (*api.BookingResponse, error) {
	const op = "service.AddFeedback"

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "feedback text is required"))
	}

	user, booking, err := s.bookingFor(ctx, actorID, bookingID, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.ID != booking.LearnerID {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrForbidden, "only the learner can leave feedback"))
	}
	if booking.Rating == nil {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "rate the session before leaving feedback"))
	}
	if booking.Feedback != nil {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrConflict, "feedback already submitted"))
	}

	updated, err := s.store.SetFeedback(ctx, booking.ID, models.Feedback{Text: text, SubmittedAt: s.now()})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toBookingResponse(updated), nil
}

// guideTransition applies trigger on behalf of the booking's guide.
func (s *Service) guideTransition(ctx context.Context, actorID, bookingID string, trigger lifecycle.Trigger, patch models.BookingPatch) (*models.Booking, error) {
	var result *models.Booking

	err := s.withLock(ctx, "booking:"+bookingID, func() error {
		user, booking, err := s.bookingFor(ctx, actorID, bookingID, false)
		if err != nil {
			return err
		}
		if user.ID != booking.GuideID {
			return response.Detail(response.ErrForbidden, "only the guide can do this")
		}

		result, err = s.transition(ctx, booking, trigger, patch)
		return err
	})

	return result, err
}

// transition checks the edge against the table and commits it with a
// conditional update on the status that was checked.
func (s *Service) transition(ctx context.Context, booking *models.Booking, trigger lifecycle.Trigger, patch models.BookingPatch) (*models.Booking, error) {
	const op = "service.transition"

	edge, ok := lifecycle.TransitionFor(booking.Status, trigger)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrConflict,
			fmt.Sprintf("cannot apply %s to a %s booking", trigger, booking.Status)))
	}

	updated, err := s.store.TransitionBooking(ctx, booking.ID, edge.From, edge.To, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("booking transitioned",
		slog.String("booking_id", booking.ID),
		slog.String("trigger", string(trigger)),
		slog.String("from", string(edge.From)),
		slog.String("to", string(edge.To)),
	)

	return updated, nil
}

func (s *Service) parseFutureDate(raw, field string, now time.Time) (time.Time, error) {
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, response.Detail(response.ErrValidation, fmt.Sprintf("%s must be an RFC3339 timestamp", field))
	}
	if !at.After(now) {
		return time.Time{}, response.Detail(response.ErrValidation, fmt.Sprintf("%s must be in the future", field))
	}
	return at.UTC(), nil
}

func isConflict(err error) bool {
	return errors.Is(err, response.ErrConflict)
}

func toBookingResponse(b *models.Booking) *api.BookingResponse {
	return &api.BookingResponse{
		ID:                b.ID,
		ServiceID:         b.ServiceID,
		LearnerID:         b.LearnerID,
		GuideID:           b.GuideID,
		DateAndTime:       b.DateAndTime,
		DurationMinutes:   b.DurationMinutes,
		Price:             b.Price,
		IsFree:            b.Price.IsFree(),
		Status:            string(b.Status),
		Notes:             b.LearnerNotes,
		MeetingLink:       b.MeetingLink,
		SessionNotes:      b.SessionNotes,
		Rating:            b.Rating,
		Feedback:          b.Feedback,
		Achievements:      b.Achievements,
		RescheduleHistory: b.RescheduleHistory,
		Cancellation:      b.Cancellation,
		SessionStartedAt:  b.SessionStartedAt,
		SessionEndedAt:    b.SessionEndedAt,
		PaidAt:            b.PaidAt,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}
