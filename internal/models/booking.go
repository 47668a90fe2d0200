package models

import "time"

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingUpcoming   BookingStatus = "upcoming"
	BookingInProgress BookingStatus = "in-progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingNoShow     BookingStatus = "no-show"
)

// Terminal reports whether no further status change is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingNoShow
}

type Rating struct {
	Score   int       `json:"score"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

type Feedback struct {
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Cancellation struct {
	Reason      string    `json:"reason,omitempty"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type RescheduleEntry struct {
	PreviousDate  time.Time `json:"previous_date"`
	NewDate       time.Time `json:"new_date"`
	Reason        string    `json:"reason,omitempty"`
	RescheduledBy string    `json:"rescheduled_by"`
	RescheduledAt time.Time `json:"rescheduled_at"`
}

type Achievement struct {
	BookingID   string    `json:"booking_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AwardedAt   time.Time `json:"awarded_at"`
}

type Booking struct {
	ID                string            `db:"id"`
	ServiceID         string            `db:"service_id"`
	LearnerID         string            `db:"learner_id"`
	GuideID           string            `db:"guide_id"`
	DateAndTime       time.Time         `db:"date_and_time"`
	DurationMinutes   int               `db:"duration_minutes"`
	Price             Price             `db:"price"`
	Status            BookingStatus     `db:"status"`
	LearnerNotes      string            `db:"learner_notes"`
	MeetingLink       string            `db:"meeting_link"`
	SessionNotes      string            `db:"session_notes"`
	Rating            *Rating           `db:"rating"`
	Feedback          *Feedback         `db:"feedback"`
	Achievements      []Achievement     `db:"achievements"`
	RescheduleHistory []RescheduleEntry `db:"reschedule_history"`
	Cancellation      *Cancellation     `db:"cancellation"`
	SessionStartedAt  *time.Time        `db:"session_started_at"`
	SessionEndedAt    *time.Time        `db:"session_ended_at"`
	PaidAt            *time.Time        `db:"paid_at"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

// IsParticipant reports whether userID is the booking's learner or guide.
func (b *Booking) IsParticipant(userID string) bool {
	return userID == b.LearnerID || userID == b.GuideID
}

// BookingPatch lists the fields a status transition writes alongside the
// status itself. Nil fields are left untouched; list fields are appended.
type BookingPatch struct {
	DateAndTime      *time.Time
	MeetingLink      *string
	SessionNotes     *string
	Reschedule       *RescheduleEntry
	Cancellation     *Cancellation
	Achievements     []Achievement
	SessionStartedAt *time.Time
	SessionEndedAt   *time.Time
	PaidAt           *time.Time
}
