package service

import (
	"context"
	"fmt"
	"log/slog"

	"guide-booking/api"
	"guide-booking/internal/lifecycle"
	"guide-booking/internal/models"
	"guide-booking/pkg/sl"
)

// RunSweep applies the time-based transitions to every open booking and
// retries meeting provisioning for confirmed bookings still missing a link.
// Each booking is handled on its own: a failure is counted and logged and
// the sweep moves on. Running it twice in a row changes nothing the second
// time.
func (s *Service) RunSweep(ctx context.Context) (*api.SweepReport, error) {
	const op = "service.RunSweep"

	log := s.log.With(slog.String("op", op))
	now := s.now()

	candidates, err := s.store.ListSweepCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &api.SweepReport{Examined: len(candidates)}
	// confirmed in this run; their meeting is already being provisioned
	dispatched := make(map[string]struct{})

	for _, b := range candidates {
		trigger, ok := lifecycle.SweepTrigger(b, now)
		if !ok {
			continue
		}

		updated, err := s.transition(ctx, b, trigger, models.BookingPatch{})
		if err != nil {
			if isConflict(err) {
				report.Skipped++
				continue
			}
			report.Failed++
			log.Error("sweep transition failed",
				slog.String("booking_id", b.ID),
				slog.String("trigger", string(trigger)),
				sl.Err(err),
			)
			continue
		}

		switch trigger {
		case lifecycle.SweepAutoConfirm:
			report.Confirmed++
			dispatched[updated.ID] = struct{}{}
			s.dispatchConfirmation(updated)
		case lifecycle.SweepNoShow:
			report.NoShow++
		case lifecycle.SweepComplete:
			report.Completed++
		}
	}

	if s.meetings != nil {
		report.Backfilled = s.backfillMeetingLinks(ctx, log, dispatched)
	}

	log.Info("sweep finished",
		slog.Int("examined", report.Examined),
		slog.Int("confirmed", report.Confirmed),
		slog.Int("no_show", report.NoShow),
		slog.Int("completed", report.Completed),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("backfilled", report.Backfilled),
	)

	return report, nil
}

func (s *Service) backfillMeetingLinks(ctx context.Context, log *slog.Logger, skip map[string]struct{}) int {
	missing, err := s.store.ListMissingMeetingLinks(ctx, s.now())
	if err != nil {
		log.Error("failed to list bookings without meeting link", sl.Err(err))
		return 0
	}

	filled := 0
	for _, b := range missing {
		if _, ok := skip[b.ID]; ok {
			continue
		}
		if _, err := s.provisionMeeting(ctx, b); err != nil {
			log.Warn("meeting backfill failed", slog.String("booking_id", b.ID), sl.Err(err))
			continue
		}
		filled++
	}

	return filled
}
