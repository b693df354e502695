package trip

import (
	"context"
	"errors"
	"strings"

	"github.com/lordninja097-ops/journey-plus-one/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) CreateTrip(ctx context.Context, input Trip) (Trip, error) {
	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, user_id, user_name, user_email, destination, start_date, end_date, budget, interests, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, input.ID, input.UserID, input.UserName, input.UserEmail, input.Destination, input.StartDate, input.EndDate, input.Budget, input.Interests, input.Notes)
	if err := row.Scan(&input.CreatedAt, &input.UpdatedAt); err != nil {
		return Trip{}, err
	}
	return input, nil
}

// ListTrips returns the 50 most recent trips, newest first. A destination
// filter adds a lexicographic range condition to the store query and the
// fetched page is then refined with case-insensitive substring matches.
// The range condition can exclude rows whose destination contains the
// filter text but sorts below it; that mismatch is inherited behavior.
func (s *Service) ListTrips(ctx context.Context, filters Filters) ([]Trip, error) {
	query := `
		SELECT id, user_id, user_name, user_email, destination, start_date, end_date, budget, interests, notes, created_at, updated_at
		FROM trips`
	args := []any{}
	if filters.Destination != "" {
		query += `
		WHERE destination >= $1`
		args = append(args, filters.Destination)
	}
	query += `
		ORDER BY created_at DESC
		LIMIT 50`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserName, &t.UserEmail, &t.Destination, &t.StartDate, &t.EndDate, &t.Budget, &t.Interests, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return filterTrips(trips, filters), nil
}

func filterTrips(trips []Trip, filters Filters) []Trip {
	filtered := trips
	if filters.Destination != "" {
		filtered = keep(filtered, func(t Trip) bool {
			return containsFold(t.Destination, filters.Destination)
		})
	}
	if filters.Interests != "" {
		filtered = keep(filtered, func(t Trip) bool {
			return containsFold(t.Interests, filters.Interests)
		})
	}
	if filters.Month != "" {
		filtered = keep(filtered, func(t Trip) bool {
			return containsFold(t.StartDate, filters.Month) || containsFold(t.EndDate, filters.Month)
		})
	}
	return filtered
}

func keep(trips []Trip, match func(Trip) bool) []Trip {
	var out []Trip
	for _, t := range trips {
		if match(t) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// GetTrip returns nil without error when no trip has the given id.
func (s *Service) GetTrip(ctx context.Context, id string) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, user_name, user_email, destination, start_date, end_date, budget, interests, notes, created_at, updated_at
		FROM trips WHERE id=$1
	`, id)
	var t Trip
	err := row.Scan(&t.ID, &t.UserID, &t.UserName, &t.UserEmail, &t.Destination, &t.StartDate, &t.EndDate, &t.Budget, &t.Interests, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) UpdateTrip(ctx context.Context, id string, patch Trip) (Trip, error) {
	current, err := s.GetTrip(ctx, id)
	if err != nil {
		return Trip{}, err
	}
	if current == nil {
		return Trip{}, pgx.ErrNoRows
	}

	trip := *current
	if patch.Destination != "" {
		trip.Destination = patch.Destination
	}
	if patch.StartDate != "" {
		trip.StartDate = patch.StartDate
	}
	if patch.EndDate != "" {
		trip.EndDate = patch.EndDate
	}
	if patch.Budget != "" {
		trip.Budget = patch.Budget
	}
	if patch.Interests != "" {
		trip.Interests = patch.Interests
	}
	if patch.Notes != "" {
		trip.Notes = patch.Notes
	}

	row := s.db.QueryRow(ctx, `
		UPDATE trips
		SET destination=$2, start_date=$3, end_date=$4, budget=$5, interests=$6, notes=$7, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, trip.ID, trip.Destination, trip.StartDate, trip.EndDate, trip.Budget, trip.Interests, trip.Notes)
	if err := row.Scan(&trip.UpdatedAt); err != nil {
		return Trip{}, err
	}
	return trip, nil
}

func (s *Service) DeleteTrip(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Service) ListTripsByUser(ctx context.Context, userID string) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, user_name, user_email, destination, start_date, end_date, budget, interests, notes, created_at, updated_at
		FROM trips WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserName, &t.UserEmail, &t.Destination, &t.StartDate, &t.EndDate, &t.Budget, &t.Interests, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, nil
}
