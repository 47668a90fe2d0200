package service

import (
	"context"
	"fmt"
	"log/slog"

	"guide-booking/api"
	"guide-booking/internal/lifecycle"
	"guide-booking/internal/models"
	"guide-booking/pkg/response"
)

// HandlePaymentConfirmed reacts to the gateway's "payment succeeded" event.
// Redelivered events for a booking that already left pending are
// acknowledged without changing anything.
func (s *Service) HandlePaymentConfirmed(ctx context.Context, bookingID, paymentRef string) (*api.BookingResponse, error) {
	const op = "service.HandlePaymentConfirmed"

	if bookingID == "" {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "booking_id is required"))
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("booking_id", bookingID),
		slog.String("payment_reference", paymentRef),
	)

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if booking.Status != models.BookingPending {
		log.Info("payment event for booking no longer pending, ignoring", slog.String("status", string(booking.Status)))
		return toBookingResponse(booking), nil
	}

	now := s.now()
	updated, err := s.transition(ctx, booking, lifecycle.PaymentConfirmed, models.BookingPatch{PaidAt: &now})
	if err != nil {
		if !isConflict(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		// lost the race to another delivery or a guide action
		current, getErr := s.store.GetBooking(ctx, bookingID)
		if getErr != nil {
			return nil, fmt.Errorf("%s: %w", op, getErr)
		}
		log.Info("booking changed while confirming payment", slog.String("status", string(current.Status)))
		return toBookingResponse(current), nil
	}

	s.dispatchConfirmation(updated)

	return toBookingResponse(updated), nil
}
