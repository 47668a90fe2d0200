package models

import "time"

type Role string

const (
	RoleGuide   Role = "guide"
	RoleLearner Role = "learner"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID    string `db:"id"`
	Role  Role   `db:"role"`
	Email string `db:"email"`
	Name  string `db:"name"`
}

type Service struct {
	ID              string `db:"id"`
	GuideID         string `db:"guide_id"`
	Title           string `db:"title"`
	Price           Price  `db:"price"`
	DurationMinutes int    `db:"duration_minutes"`
}

// Weekdays are the fixed keys of a weekly availability pattern.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type TimeWindow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Availability struct {
	ID                 string                  `db:"id"`
	GuideID            string                  `db:"guide_id"`
	WeeklyAvailability map[string][]TimeWindow `db:"weekly_availability"`
	UnavailableDates   []string                `db:"unavailable_dates"`
	CreatedAt          time.Time               `db:"created_at"`
	UpdatedAt          time.Time               `db:"updated_at"`
}

type Slot struct {
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	StartsAt  time.Time `json:"starts_at"`
}

type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

type RatingAggregate struct {
	GuideID string  `db:"guide_id"`
	Average float64 `db:"average"`
	Count   int     `db:"count"`
	Total   float64 `db:"total"`
}
