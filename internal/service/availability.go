package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"guide-booking/api"
	"guide-booking/internal/models"
	"guide-booking/internal/slots"
	"guide-booking/pkg/response"
)

// Availability

func (s *Service) CreateAvailability(ctx context.Context, actorID string, req *api.AvailabilityRequest) (*api.AvailabilityResponse, error) {
	const op = "service.CreateAvailability"

	guide, err := s.requireGuide(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	weekly, dates, err := validateAvailability(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	avail := &models.Availability{
		GuideID:            guide.ID,
		WeeklyAvailability: weekly,
		UnavailableDates:   dates,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.CreateAvailability(ctx, avail); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toAvailabilityResponse(avail), nil
}

func (s *Service) GetAvailability(ctx context.Context, guideID string) (*api.AvailabilityResponse, error) {
	const op = "service.GetAvailability"

	avail, err := s.store.GetAvailability(ctx, guideID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toAvailabilityResponse(avail), nil
}

// UpdateAvailability replaces the guide's pattern and exceptions wholesale.
func (s *Service) UpdateAvailability(ctx context.Context, actorID string, req *api.AvailabilityRequest) (*api.AvailabilityResponse, error) {
	const op = "service.UpdateAvailability"

	guide, err := s.requireGuide(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	weekly, dates, err := validateAvailability(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avail, err := s.store.GetAvailability(ctx, guide.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avail.WeeklyAvailability = weekly
	avail.UnavailableDates = dates
	avail.UpdatedAt = s.now()

	if err := s.store.ReplaceAvailability(ctx, avail); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toAvailabilityResponse(avail), nil
}

// Slots

// GetAvailableSlots lists the open slots of the guide for the next 14 days.
// A guide without availability simply has no slots.
func (s *Service) GetAvailableSlots(ctx context.Context, guideID, durationRaw string) ([]models.DaySlots, error) {
	const op = "service.GetAvailableSlots"

	if guideID == "" {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "guide id is required"))
	}

	duration, err := strconv.Atoi(strings.TrimSpace(durationRaw))
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("%s: %w", op, response.Detail(response.ErrValidation, "duration must be a positive number of minutes"))
	}

	avail, err := s.store.GetAvailability(ctx, guideID)
	if err != nil {
		if isNotFound(err) {
			return []models.DaySlots{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	from, to := slots.Window(now, s.loc)

	booked, err := s.store.ListBookedTimes(ctx, guideID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots.Generate(avail, booked, duration, now, s.loc), nil
}

func (s *Service) requireGuide(ctx context.Context, actorID string) (*models.User, error) {
	user, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleGuide {
		return nil, response.Detail(response.ErrForbidden, "only guides can manage availability")
	}
	return user, nil
}

func validateAvailability(req *api.AvailabilityRequest) (map[string][]models.TimeWindow, []string, error) {
	if req == nil {
		return nil, nil, response.Detail(response.ErrValidation, "request body is required")
	}

	weekly := make(map[string][]models.TimeWindow, len(models.Weekdays))
	for _, d := range models.Weekdays {
		weekly[d] = []models.TimeWindow{}
	}

	for day, windows := range req.WeeklyAvailability {
		key := strings.ToLower(strings.TrimSpace(day))
		if _, ok := weekly[key]; !ok {
			return nil, nil, response.Detail(response.ErrValidation, fmt.Sprintf("unknown weekday %q", day))
		}

		for _, w := range windows {
			if _, _, ok := slots.ParseClock(w.StartTime); !ok {
				return nil, nil, response.Detail(response.ErrValidation, fmt.Sprintf("invalid start_time %q on %s", w.StartTime, key))
			}
			if _, _, ok := slots.ParseEndClock(w.EndTime); !ok {
				return nil, nil, response.Detail(response.ErrValidation, fmt.Sprintf("invalid end_time %q on %s", w.EndTime, key))
			}
			weekly[key] = append(weekly[key], models.TimeWindow{StartTime: w.StartTime, EndTime: w.EndTime})
		}
	}

	dates := make([]string, 0, len(req.UnavailableDates))
	seen := make(map[string]struct{}, len(req.UnavailableDates))
	for _, raw := range req.UnavailableDates {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, response.Detail(response.ErrValidation, fmt.Sprintf("invalid unavailable date %q", raw))
		}
		key := d.Format("2006-01-02")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, key)
	}

	return weekly, dates, nil
}

func toAvailabilityResponse(a *models.Availability) *api.AvailabilityResponse {
	weekly := make(map[string][]api.TimeWindow, len(a.WeeklyAvailability))
	for day, windows := range a.WeeklyAvailability {
		out := make([]api.TimeWindow, 0, len(windows))
		for _, w := range windows {
			out = append(out, api.TimeWindow{StartTime: w.StartTime, EndTime: w.EndTime})
		}
		weekly[day] = out
	}

	dates := a.UnavailableDates
	if dates == nil {
		dates = []string{}
	}

	return &api.AvailabilityResponse{
		GuideID:            a.GuideID,
		WeeklyAvailability: weekly,
		UnavailableDates:   dates,
		UpdatedAt:          a.UpdatedAt,
	}
}
