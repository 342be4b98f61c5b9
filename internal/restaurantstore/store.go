// Package restaurantstore persists resolved restaurants keyed by their
// external id. It backs the get-or-create endpoint the reconciliation
// client depends on.
package restaurantstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Restaurant is a persisted row. InternalID is the stable identifier write
// operations reference; ExternalID is the idempotency key for resolution.
type Restaurant struct {
	InternalID  string    `json:"internalId"`
	ExternalID  string    `json:"externalId"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CuisineType string    `json:"cuisineType"`
	Photos      []string  `json:"photos"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Input carries the fields of the get-or-create payload.
type Input struct {
	ExternalID  string
	Name        string
	Address     string
	Phone       string
	Latitude    float64
	Longitude   float64
	CuisineType string
	Photos      []string
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS restaurants (
    internal_id  UUID PRIMARY KEY,
    external_id  TEXT NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    address      TEXT NOT NULL DEFAULT '',
    phone        TEXT NOT NULL DEFAULT '',
    latitude     DOUBLE PRECISION NOT NULL,
    longitude    DOUBLE PRECISION NOT NULL,
    cuisine_type TEXT NOT NULL DEFAULT '',
    photos       TEXT[] NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the restaurants table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure restaurants schema: %w", err)
	}
	return nil
}

const insertQuery = `
INSERT INTO restaurants (internal_id, external_id, name, address, phone, latitude, longitude, cuisine_type, photos)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (external_id) DO NOTHING
RETURNING internal_id, created_at`

const selectQuery = `
SELECT internal_id, external_id, name, address, phone, latitude, longitude, cuisine_type, photos, created_at
FROM restaurants
WHERE external_id = $1`

// GetOrCreate inserts a restaurant for a never-seen external id, or returns
// the existing row. Concurrent callers racing on the same external id are
// collapsed by the unique constraint: the insert is attempted first and a
// conflict is answered by re-selecting the winner's row, never by surfacing
// the violation. "Insert, catch conflict, re-select" is used instead of
// "select, then insert" because only the former is race-safe.
func (s *Store) GetOrCreate(ctx context.Context, in Input) (*Restaurant, bool, error) {
	internalID := uuid.NewString()
	photos := in.Photos
	if photos == nil {
		photos = []string{}
	}

	row := s.db.QueryRowContext(ctx, insertQuery,
		internalID, in.ExternalID, in.Name, in.Address, in.Phone,
		in.Latitude, in.Longitude, in.CuisineType, pq.Array(photos),
	)

	var createdAt time.Time
	err := row.Scan(&internalID, &createdAt)
	switch {
	case err == nil:
		return &Restaurant{
			InternalID:  internalID,
			ExternalID:  in.ExternalID,
			Name:        in.Name,
			Address:     in.Address,
			Phone:       in.Phone,
			Latitude:    in.Latitude,
			Longitude:   in.Longitude,
			CuisineType: in.CuisineType,
			Photos:      photos,
			CreatedAt:   createdAt,
		}, true, nil

	case err == sql.ErrNoRows || isUniqueViolation(err):
		// The conflict branch: another caller won the insert. Serve
		// their row.
		existing, ferr := s.FindByExternalID(ctx, in.ExternalID)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil

	default:
		return nil, false, fmt.Errorf("insert restaurant: %w", err)
	}
}

// FindByExternalID returns the row for an external id, or sql.ErrNoRows.
func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*Restaurant, error) {
	var r Restaurant
	err := s.db.QueryRowContext(ctx, selectQuery, externalID).Scan(
		&r.InternalID, &r.ExternalID, &r.Name, &r.Address, &r.Phone,
		&r.Latitude, &r.Longitude, &r.CuisineType, pq.Array(&r.Photos), &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation (class 23505). ON CONFLICT normally absorbs the race, but the
// error can still appear on older schemas missing the constraint target.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
