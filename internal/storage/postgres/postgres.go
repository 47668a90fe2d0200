package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"guide-booking/internal/models"
	"guide-booking/pkg/response"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Migrate creates the tables and indexes the service needs.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### users ####

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgres.GetUser"

	var user models.User

	err := s.db.QueryRowContext(ctx, `SELECT id, role, email, name FROM users WHERE id=$1`, id).
		Scan(
			&user.ID,
			&user.Role,
			&user.Email,
			&user.Name,
		)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	return &user, nil
}

// #### services ####

func (s *Storage) GetService(ctx context.Context, id string) (*models.Service, error) {
	const op = "storage.postgres.GetService"

	var svc models.Service

	err := s.db.QueryRowContext(ctx,
		`SELECT id, guide_id, title, price, duration_minutes
		FROM services WHERE id=$1`, id).
		Scan(
			&svc.ID,
			&svc.GuideID,
			&svc.Title,
			&svc.Price,
			&svc.DurationMinutes,
		)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	return &svc, nil
}

// #### availability ####

func (s *Storage) CreateAvailability(ctx context.Context, avail *models.Availability) error {
	const op = "storage.postgres.CreateAvailability"

	weekly, err := json.Marshal(avail.WeeklyAvailability)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO availabilities
		(guide_id, weekly_availability, unavailable_dates, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		avail.GuideID,
		string(weekly),
		pq.Array(dateList(avail.UnavailableDates)),
		avail.CreatedAt,
		avail.UpdatedAt,
	).Scan(&avail.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, "availability already exists for this guide"))
	}

	return nil
}

func (s *Storage) GetAvailability(ctx context.Context, guideID string) (*models.Availability, error) {
	const op = "storage.postgres.GetAvailability"

	var avail models.Availability
	var weekly []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT id, guide_id, weekly_availability, unavailable_dates, created_at, updated_at
		FROM availabilities WHERE guide_id=$1`, guideID).
		Scan(
			&avail.ID,
			&avail.GuideID,
			&weekly,
			pq.Array(&avail.UnavailableDates),
			&avail.CreatedAt,
			&avail.UpdatedAt,
		)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	if err := json.Unmarshal(weekly, &avail.WeeklyAvailability); err != nil {
		return nil, fmt.Errorf("%s: weekly_availability: %w", op, err)
	}

	return &avail, nil
}

func (s *Storage) ReplaceAvailability(ctx context.Context, avail *models.Availability) error {
	const op = "storage.postgres.ReplaceAvailability"

	weekly, err := json.Marshal(avail.WeeklyAvailability)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE availabilities
		SET weekly_availability=$2, unavailable_dates=$3, updated_at=$4
		WHERE guide_id=$1`,
		avail.GuideID,
		string(weekly),
		pq.Array(dateList(avail.UnavailableDates)),
		avail.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, ""))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// dateList keeps a nil slice from being written as NULL.
func dateList(dates []string) []string {
	if dates == nil {
		return []string{}
	}
	return dates
}
