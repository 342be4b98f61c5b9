package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/restaurantstore"
)

func newRestaurantRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	handler, err := NewRestaurantHandler(restaurantstore.New(db), logger.NewTestLogger(t))
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.Register(r)
	return r, mock
}

const validPayload = `{
  "externalId": "osm:node/101",
  "name": "Grand Cafe",
  "address": "Tverskaya 7, Moscow",
  "latitude": 55.7601,
  "longitude": 37.6208,
  "cuisineType": "italian",
  "photos": []
}`

func TestGetOrCreate_CreatesAndAnswers200(t *testing.T) {
	r, mock := newRestaurantRouter(t)

	mock.ExpectQuery("INSERT INTO restaurants").
		WillReturnRows(sqlmock.NewRows([]string{"internal_id", "created_at"}).
			AddRow("7b61a9f2-0000-4000-8000-000000000001", time.Now()))

	w := doRequest(r, http.MethodPost, "/restaurants", validPayload)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Restaurant restaurantstore.Restaurant `json:"restaurant"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "7b61a9f2-0000-4000-8000-000000000001", body.Restaurant.InternalID)
	assert.Equal(t, "osm:node/101", body.Restaurant.ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_KnownExternalIDAnswersExistingRow(t *testing.T) {
	r, mock := newRestaurantRouter(t)

	mock.ExpectQuery("INSERT INTO restaurants").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT internal_id, external_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"internal_id", "external_id", "name", "address", "phone",
			"latitude", "longitude", "cuisine_type", "photos", "created_at",
		}).AddRow("existing-id", "osm:node/101", "Grand Cafe", "Tverskaya 7, Moscow", "",
			55.7601, 37.6208, "italian", "{}", time.Now()))

	w := doRequest(r, http.MethodPost, "/restaurants", validPayload)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Restaurant restaurantstore.Restaurant `json:"restaurant"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "existing-id", body.Restaurant.InternalID)
}

func TestGetOrCreate_SchemaRejectsMissingRequiredFields(t *testing.T) {
	r, _ := newRestaurantRouter(t)

	for _, payload := range []string{
		`{"name": "No Identity", "latitude": 55.7, "longitude": 37.6}`,
		`{"externalId": "osm:node/1", "latitude": 55.7, "longitude": 37.6}`,
		`{"externalId": "osm:node/1", "name": "No Coordinates"}`,
	} {
		w := doRequest(r, http.MethodPost, "/restaurants", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		code, _ := errorCode(t, w)
		assert.Equal(t, string(errors.ErrCodeInvalidRequest), code, payload)
	}
}

func TestGetOrCreate_SchemaRejectsUnknownFields(t *testing.T) {
	r, _ := newRestaurantRouter(t)

	w := doRequest(r, http.MethodPost, "/restaurants",
		`{"externalId": "osm:node/1", "name": "X", "latitude": 55.7, "longitude": 37.6, "rating": 9.1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrCreate_SchemaRejectsOutOfRangeCoordinates(t *testing.T) {
	r, _ := newRestaurantRouter(t)

	w := doRequest(r, http.MethodPost, "/restaurants",
		`{"externalId": "osm:node/1", "name": "X", "latitude": 95.0, "longitude": 37.6}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrCreate_MalformedJSONIs400(t *testing.T) {
	r, _ := newRestaurantRouter(t)

	w := doRequest(r, http.MethodPost, "/restaurants", `{"externalId": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrCreate_DatabaseErrorIs500(t *testing.T) {
	r, mock := newRestaurantRouter(t)

	mock.ExpectQuery("INSERT INTO restaurants").
		WillReturnError(sql.ErrConnDone)

	w := doRequest(r, http.MethodPost, "/restaurants", validPayload)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	code, retryable := errorCode(t, w)
	assert.Equal(t, string(errors.ErrCodeDatabaseInsertFailed), code)
	assert.True(t, retryable)
}
