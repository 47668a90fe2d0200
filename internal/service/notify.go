package service

import (
	"context"
	"fmt"
	"log/slog"

	"guide-booking/internal/models"
	"guide-booking/pkg/response"
	"guide-booking/pkg/sl"
)

// dispatchConfirmation provisions the meeting and emails the learner in the
// background. Nothing here can undo the status change that preceded it.
func (s *Service) dispatchConfirmation(booking *models.Booking) {
	b := *booking

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		s.sendConfirmation(ctx, &b)
	}()
}

func (s *Service) sendConfirmation(ctx context.Context, b *models.Booking) {
	const op = "service.sendConfirmation"

	log := s.log.With(slog.String("op", op), slog.String("booking_id", b.ID))

	link := b.MeetingLink
	if link == "" {
		provisioned, err := s.provisionMeeting(ctx, b)
		if err != nil {
			log.Error("meeting provisioning failed, booking stays confirmed without link", sl.Err(err))
		} else {
			link = provisioned
		}
	}

	if s.mailer == nil {
		return
	}

	learner, err := s.store.GetUser(ctx, b.LearnerID)
	if err != nil {
		log.Error("failed to load learner for confirmation email", sl.Err(err))
		return
	}

	local := b.DateAndTime.In(s.loc)
	err = s.mailer.SendBookingConfirmation(ctx, learner.Email, learner.Name, link, local.Format("2006-01-02"), local.Format("15:04"))
	if err != nil {
		log.Error("confirmation email failed", sl.Err(fmt.Errorf("%w: %v", response.ErrExternal, err)))
		return
	}

	log.Info("confirmation email sent", slog.String("to", learner.Email))
}

// provisionMeeting creates a room and stores its link unless the booking got
// one in the meantime, in which case the stored link wins.
func (s *Service) provisionMeeting(ctx context.Context, b *models.Booking) (string, error) {
	const op = "service.provisionMeeting"

	if s.meetings == nil {
		return "", fmt.Errorf("%s: %w", op, response.Detail(response.ErrExternal, "no meeting provider"))
	}

	link, err := s.meetings.CreateMeeting(ctx, b.DateAndTime, b.DurationMinutes)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, response.ErrExternal, err)
	}

	saved, err := s.store.SetMeetingLink(ctx, b.ID, link)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !saved {
		current, err := s.store.GetBooking(ctx, b.ID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return current.MeetingLink, nil
	}

	return link, nil
}
