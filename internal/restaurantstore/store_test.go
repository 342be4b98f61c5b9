package restaurantstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func sampleInput() Input {
	return Input{
		ExternalID:  "osm:node/101",
		Name:        "Grand Cafe",
		Address:     "Tverskaya 7, Moscow",
		Phone:       "+7 495 000-00-00",
		Latitude:    55.7601,
		Longitude:   37.6208,
		CuisineType: "italian",
		Photos:      []string{"https://img.example/1.jpg"},
	}
}

func TestGetOrCreate_InsertsNewRow(t *testing.T) {
	store, mock := newMockStore(t)
	in := sampleInput()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO restaurants").
		WithArgs(sqlmock.AnyArg(), in.ExternalID, in.Name, in.Address, in.Phone,
			in.Latitude, in.Longitude, in.CuisineType, pq.Array(in.Photos)).
		WillReturnRows(sqlmock.NewRows([]string{"internal_id", "created_at"}).
			AddRow("7b61a9f2-0000-4000-8000-000000000001", now))

	r, created, err := store.GetOrCreate(context.Background(), in)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "7b61a9f2-0000-4000-8000-000000000001", r.InternalID)
	assert.Equal(t, in.ExternalID, r.ExternalID)
	assert.Equal(t, in.Photos, r.Photos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_ConflictReturnsExistingRow(t *testing.T) {
	store, mock := newMockStore(t)
	in := sampleInput()
	now := time.Now()

	// ON CONFLICT DO NOTHING yields no row for an already-known external id.
	mock.ExpectQuery("INSERT INTO restaurants").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT internal_id, external_id").
		WithArgs(in.ExternalID).
		WillReturnRows(sqlmock.NewRows([]string{
			"internal_id", "external_id", "name", "address", "phone",
			"latitude", "longitude", "cuisine_type", "photos", "created_at",
		}).AddRow("existing-id", in.ExternalID, in.Name, in.Address, in.Phone,
			in.Latitude, in.Longitude, in.CuisineType, "{}", now))

	r, created, err := store.GetOrCreate(context.Background(), in)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing-id", r.InternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_UniqueViolationFallsBackToSelect(t *testing.T) {
	store, mock := newMockStore(t)
	in := sampleInput()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO restaurants").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery("SELECT internal_id, external_id").
		WithArgs(in.ExternalID).
		WillReturnRows(sqlmock.NewRows([]string{
			"internal_id", "external_id", "name", "address", "phone",
			"latitude", "longitude", "cuisine_type", "photos", "created_at",
		}).AddRow("winner-id", in.ExternalID, in.Name, in.Address, in.Phone,
			in.Latitude, in.Longitude, in.CuisineType, "{}", now))

	r, created, err := store.GetOrCreate(context.Background(), in)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner-id", r.InternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_DatabaseErrorSurfaces(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO restaurants").
		WillReturnError(sql.ErrConnDone)

	_, _, err := store.GetOrCreate(context.Background(), sampleInput())

	assert.ErrorContains(t, err, "insert restaurant")
}

func TestGetOrCreate_NilPhotosStoredAsEmptyArray(t *testing.T) {
	store, mock := newMockStore(t)
	in := sampleInput()
	in.Photos = nil

	mock.ExpectQuery("INSERT INTO restaurants").
		WithArgs(sqlmock.AnyArg(), in.ExternalID, in.Name, in.Address, in.Phone,
			in.Latitude, in.Longitude, in.CuisineType, pq.Array([]string{})).
		WillReturnRows(sqlmock.NewRows([]string{"internal_id", "created_at"}).
			AddRow("new-id", time.Now()))

	r, created, err := store.GetOrCreate(context.Background(), in)

	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, r.Photos)
	assert.Empty(t, r.Photos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByExternalID_NoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT internal_id, external_id").
		WithArgs("osm:node/404").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindByExternalID(context.Background(), "osm:node/404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
