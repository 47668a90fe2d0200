package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"guide-booking/internal/models"
	"guide-booking/pkg/response"
)

const bookingColumns = `id, service_id, learner_id, guide_id, date_and_time, duration_minutes,
	price, status, learner_notes, meeting_link, session_notes,
	rating_score, rating_comment, rated_at, feedback, feedback_at,
	achievements, reschedule_history, cancel_reason, cancelled_by, cancelled_at,
	session_started_at, session_ended_at, paid_at, created_at, updated_at`

const slotTakenMsg = "guide already booked at this time"

// statuses that free the guide's slot again
var inactiveStatuses = []string{string(models.BookingCancelled), string(models.BookingNoShow)}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var (
		ratingScore   sql.NullInt64
		ratingComment sql.NullString
		ratedAt       sql.NullTime
		feedback      sql.NullString
		feedbackAt    sql.NullTime
		achievements  []byte
		history       []byte
		cancelReason  sql.NullString
		cancelledBy   sql.NullString
		cancelledAt   sql.NullTime
		startedAt     sql.NullTime
		endedAt       sql.NullTime
		paidAt        sql.NullTime
	)

	err := row.Scan(
		&b.ID,
		&b.ServiceID,
		&b.LearnerID,
		&b.GuideID,
		&b.DateAndTime,
		&b.DurationMinutes,
		&b.Price,
		&b.Status,
		&b.LearnerNotes,
		&b.MeetingLink,
		&b.SessionNotes,
		&ratingScore,
		&ratingComment,
		&ratedAt,
		&feedback,
		&feedbackAt,
		&achievements,
		&history,
		&cancelReason,
		&cancelledBy,
		&cancelledAt,
		&startedAt,
		&endedAt,
		&paidAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ratingScore.Valid {
		b.Rating = &models.Rating{
			Score:   int(ratingScore.Int64),
			Comment: ratingComment.String,
			RatedAt: ratedAt.Time,
		}
	}
	if feedback.Valid {
		b.Feedback = &models.Feedback{Text: feedback.String, SubmittedAt: feedbackAt.Time}
	}
	if cancelledAt.Valid {
		b.Cancellation = &models.Cancellation{
			Reason:      cancelReason.String,
			CancelledBy: cancelledBy.String,
			CancelledAt: cancelledAt.Time,
		}
	}

	if len(achievements) > 0 {
		if err := json.Unmarshal(achievements, &b.Achievements); err != nil {
			return nil, fmt.Errorf("achievements: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &b.RescheduleHistory); err != nil {
			return nil, fmt.Errorf("reschedule_history: %w", err)
		}
	}

	b.SessionStartedAt = timePtr(startedAt)
	b.SessionEndedAt = timePtr(endedAt)
	b.PaidAt = timePtr(paidAt)

	return &b, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (s *Storage) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// #### bookings ####

func (s *Storage) CreateBooking(ctx context.Context, b *models.Booking) error {
	const op = "storage.postgres.CreateBooking"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings
		(id, service_id, learner_id, guide_id, date_and_time, duration_minutes,
		price, is_free, status, learner_notes, meeting_link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID,
		b.ServiceID,
		b.LearnerID,
		b.GuideID,
		b.DateAndTime,
		b.DurationMinutes,
		b.Price,
		b.Price.IsFree(),
		string(b.Status),
		b.LearnerNotes,
		b.MeetingLink,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, slotTakenMsg))
	}

	return nil
}

func (s *Storage) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	const op = "storage.postgres.GetBooking"

	b, err := scanBooking(s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	return b, nil
}

func (s *Storage) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	const op = "storage.postgres.ListBookingsByUser"

	bookings, err := s.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		WHERE learner_id=$1 OR guide_id=$1
		ORDER BY date_and_time`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

// ListBookedTimes returns the start times in [from, to) the guide is
// already booked for.
func (s *Storage) ListBookedTimes(ctx context.Context, guideID string, from, to time.Time) ([]time.Time, error) {
	const op = "storage.postgres.ListBookedTimes"

	rows, err := s.db.QueryContext(ctx,
		`SELECT date_and_time FROM bookings
		WHERE guide_id=$1
		AND date_and_time >= $2
		AND date_and_time < $3
		AND status <> ALL($4)`,
		guideID, from, to, pq.Array(inactiveStatuses))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		times = append(times, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return times, nil
}

func (s *Storage) ListSweepCandidates(ctx context.Context) ([]*models.Booking, error) {
	const op = "storage.postgres.ListSweepCandidates"

	open := []string{
		string(models.BookingPending),
		string(models.BookingConfirmed),
		string(models.BookingUpcoming),
	}

	bookings, err := s.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		WHERE status = ANY($1)
		ORDER BY date_and_time`, pq.Array(open))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

// ListMissingMeetingLinks returns confirmed bookings starting after the
// given time that still have no meeting link.
func (s *Storage) ListMissingMeetingLinks(ctx context.Context, after time.Time) ([]*models.Booking, error) {
	const op = "storage.postgres.ListMissingMeetingLinks"

	confirmed := []string{string(models.BookingConfirmed), string(models.BookingUpcoming)}

	bookings, err := s.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		WHERE status = ANY($1)
		AND meeting_link = ''
		AND date_and_time > $2
		ORDER BY date_and_time`, pq.Array(confirmed), after)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

const transitionQuery = `UPDATE bookings SET
	status = $3,
	date_and_time = COALESCE($4, date_and_time),
	meeting_link = COALESCE($5, meeting_link),
	session_notes = COALESCE($6, session_notes),
	reschedule_history = reschedule_history || COALESCE($7::jsonb, '[]'::jsonb),
	achievements = achievements || COALESCE($8::jsonb, '[]'::jsonb),
	cancel_reason = COALESCE($9, cancel_reason),
	cancelled_by = COALESCE($10, cancelled_by),
	cancelled_at = COALESCE($11, cancelled_at),
	session_started_at = COALESCE($12, session_started_at),
	session_ended_at = COALESCE($13, session_ended_at),
	paid_at = COALESCE($14, paid_at),
	updated_at = NOW()
	WHERE id = $1 AND status = ANY($2)
	RETURNING ` + bookingColumns

// transitionArgs lays the patch out in transitionQuery's parameter order;
// untouched fields are passed as NULL.
func transitionArgs(id string, from, to models.BookingStatus, p models.BookingPatch) ([]any, error) {
	var history, achievements any
	if p.Reschedule != nil {
		raw, err := json.Marshal([]models.RescheduleEntry{*p.Reschedule})
		if err != nil {
			return nil, err
		}
		history = string(raw)
	}
	if len(p.Achievements) > 0 {
		raw, err := json.Marshal(p.Achievements)
		if err != nil {
			return nil, err
		}
		achievements = string(raw)
	}

	var cancelReason, cancelledBy, cancelledAt any
	if p.Cancellation != nil {
		cancelReason = p.Cancellation.Reason
		cancelledBy = p.Cancellation.CancelledBy
		cancelledAt = p.Cancellation.CancelledAt
	}

	return []any{
		id,
		pq.Array([]string{string(from)}),
		string(to),
		p.DateAndTime,
		p.MeetingLink,
		p.SessionNotes,
		history,
		achievements,
		cancelReason,
		cancelledBy,
		cancelledAt,
		p.SessionStartedAt,
		p.SessionEndedAt,
		p.PaidAt,
	}, nil
}

// TransitionBooking applies the patch only while the booking is still in
// from. Achievements land on the learner's profile in the same transaction.
func (s *Storage) TransitionBooking(ctx context.Context, id string, from, to models.BookingStatus, patch models.BookingPatch) (*models.Booking, error) {
	const op = "storage.postgres.TransitionBooking"

	args, err := transitionArgs(id, from, to, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer tx.Rollback()

	b, err := scanBooking(tx.QueryRowContext(ctx, transitionQuery, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, missingOrConflict(ctx, tx, id, "booking no longer in expected state"))
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err, slotTakenMsg))
	}

	for _, a := range patch.Achievements {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO learner_achievements
			(learner_id, booking_id, title, description, awarded_at)
			VALUES ($1, $2, $3, $4, $5)`,
			b.LearnerID,
			b.ID,
			a.Title,
			a.Description,
			a.AwardedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: achievement: %w", op, mapError(err, ""))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

func (s *Storage) SetMeetingLink(ctx context.Context, id, link string) (bool, error) {
	const op = "storage.postgres.SetMeetingLink"

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET meeting_link=$2, updated_at=NOW()
		WHERE id=$1 AND meeting_link=''`, id, link)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return false, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return false, nil
}

// RateBooking records the rating and folds it into guide_ratings in one
// transaction; the aggregate is updated by a single upsert so concurrent
// ratings of the same guide never lose an increment.
func (s *Storage) RateBooking(ctx context.Context, id string, rating models.Rating) (*models.Booking, *models.RatingAggregate, error) {
	const op = "storage.postgres.RateBooking"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	defer tx.Rollback()

	b, err := scanBooking(tx.QueryRowContext(ctx,
		`UPDATE bookings
		SET rating_score=$2, rating_comment=$3, rated_at=$4, updated_at=NOW()
		WHERE id=$1 AND rating_score IS NULL
		RETURNING `+bookingColumns,
		id, rating.Score, rating.Comment, rating.RatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%s: %w", op, missingOrConflict(ctx, tx, id, "booking already rated"))
		}
		return nil, nil, fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	var agg models.RatingAggregate
	err = tx.QueryRowContext(ctx,
		`INSERT INTO guide_ratings (guide_id, average, count, total)
		VALUES ($1, $2, 1, $2)
		ON CONFLICT (guide_id) DO UPDATE SET
			total = guide_ratings.total + EXCLUDED.total,
			count = guide_ratings.count + 1,
			average = (guide_ratings.total + EXCLUDED.total) / (guide_ratings.count + 1)
		RETURNING guide_id, average, count, total`,
		b.GuideID, float64(rating.Score)).
		Scan(
			&agg.GuideID,
			&agg.Average,
			&agg.Count,
			&agg.Total,
		)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: aggregate: %w", op, mapError(err, ""))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, &agg, nil
}

func (s *Storage) SetFeedback(ctx context.Context, id string, feedback models.Feedback) (*models.Booking, error) {
	const op = "storage.postgres.SetFeedback"

	b, err := scanBooking(s.db.QueryRowContext(ctx,
		`UPDATE bookings
		SET feedback=$2, feedback_at=$3, updated_at=NOW()
		WHERE id=$1 AND rating_score IS NOT NULL AND feedback IS NULL
		RETURNING `+bookingColumns,
		id, feedback.Text, feedback.SubmittedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, missingOrConflict(ctx, s.db, id, "feedback not accepted for this booking"))
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	return b, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// missingOrConflict explains why a conditional update matched no rows.
func missingOrConflict(ctx context.Context, q queryRower, id, conflictMsg string) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return response.ErrNotFound
	}
	return response.Detail(response.ErrConflict, conflictMsg)
}
