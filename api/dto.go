package api

import (
	"time"

	"guide-booking/internal/models"
)

type TimeWindow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AvailabilityRequest struct {
	WeeklyAvailability map[string][]TimeWindow `json:"weekly_availability"`
	UnavailableDates   []string                `json:"unavailable_dates"`
}

type AvailabilityResponse struct {
	GuideID            string                  `json:"guide_id"`
	WeeklyAvailability map[string][]TimeWindow `json:"weekly_availability"`
	UnavailableDates   []string                `json:"unavailable_dates"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

type BookingRequest struct {
	ServiceID   string `json:"service_id"`
	DateAndTime string `json:"date_and_time"`
	Notes       string `json:"notes,omitempty"`
}

type BookingConfirmRequest struct {
	MeetingLink string `json:"meeting_link,omitempty"`
}

type BookingRescheduleRequest struct {
	NewDateAndTime string `json:"new_date_and_time"`
	Reason         string `json:"reason,omitempty"`
}

type BookingCancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AchievementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type BookingCompleteRequest struct {
	SessionNotes string               `json:"session_notes,omitempty"`
	Achievements []AchievementRequest `json:"achievements,omitempty"`
}

type BookingRateRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

type BookingFeedbackRequest struct {
	Text string `json:"text"`
}

type PaymentWebhookRequest struct {
	BookingID        string `json:"booking_id"`
	PaymentReference string `json:"payment_reference,omitempty"`
	Status           string `json:"status"`
}

type BookingResponse struct {
	ID                string                   `json:"id"`
	ServiceID         string                   `json:"service_id"`
	LearnerID         string                   `json:"learner_id"`
	GuideID           string                   `json:"guide_id"`
	DateAndTime       time.Time                `json:"date_and_time"`
	DurationMinutes   int                      `json:"duration_minutes"`
	Price             models.Price             `json:"price"`
	IsFree            bool                     `json:"is_free"`
	Status            string                   `json:"status"`
	Notes             string                   `json:"notes,omitempty"`
	MeetingLink       string                   `json:"meeting_link,omitempty"`
	SessionNotes      string                   `json:"session_notes,omitempty"`
	Rating            *models.Rating           `json:"rating,omitempty"`
	Feedback          *models.Feedback         `json:"feedback,omitempty"`
	Achievements      []models.Achievement     `json:"achievements,omitempty"`
	RescheduleHistory []models.RescheduleEntry `json:"reschedule_history,omitempty"`
	Cancellation      *models.Cancellation     `json:"cancellation,omitempty"`
	SessionStartedAt  *time.Time               `json:"session_started_at,omitempty"`
	SessionEndedAt    *time.Time               `json:"session_ended_at,omitempty"`
	PaidAt            *time.Time               `json:"paid_at,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

type BookingListResponse struct {
	Upcoming  []BookingResponse `json:"upcoming"`
	Past      []BookingResponse `json:"past"`
	Cancelled []BookingResponse `json:"cancelled"`
}

type RatingResponse struct {
	Booking BookingResponse `json:"booking"`
	Guide   GuideRating     `json:"guide_rating"`
}

type GuideRating struct {
	GuideID string  `json:"guide_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
}

type SweepReport struct {
	Examined   int `json:"examined"`
	Confirmed  int `json:"confirmed"`
	NoShow     int `json:"no_show"`
	Completed  int `json:"completed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Backfilled int `json:"backfilled"`
}
