package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/place"
)

type stubFinder struct {
	places []place.Place
	err    error

	lastRadius float64
	lastQuery  string
	lastCoord  *place.Coordinate
}

func (f *stubFinder) FindNearby(_ context.Context, _ place.Coordinate, radiusMeters float64) ([]place.Place, error) {
	f.lastRadius = radiusMeters
	return f.places, f.err
}

func (f *stubFinder) SearchByText(_ context.Context, query string, coord *place.Coordinate) ([]place.Place, error) {
	f.lastQuery = query
	f.lastCoord = coord
	return f.places, f.err
}

type stubResolver struct {
	internalID string
	err        error
}

func (r *stubResolver) Resolve(_ context.Context, _ place.Place) (string, error) {
	return r.internalID, r.err
}

func newRouter(t *testing.T, finder *stubFinder, resolver *stubResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewDiscoveryHandler(finder, resolver, 5000, logger.NewTestLogger(t)).Register(r)
	return r
}

func doRequest(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) (string, bool) {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			Retryable bool   `json:"retryable"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Retryable
}

func TestNearby_ReturnsPlaces(t *testing.T) {
	finder := &stubFinder{places: []place.Place{{ExternalID: "osm:node/1", Provider: place.ProviderOSM, Name: "Grand Cafe"}}}
	r := newRouter(t, finder, &stubResolver{})

	w := doRequest(r, http.MethodGet, "/api/v1/places/nearby?lat=55.7558&lon=37.6173&radius=1200", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1200.0, finder.lastRadius)

	var body struct {
		Places []place.Place `json:"places"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Places, 1)
	assert.Equal(t, "Grand Cafe", body.Places[0].Name)
}

func TestNearby_DefaultRadiusWhenOmitted(t *testing.T) {
	finder := &stubFinder{}
	r := newRouter(t, finder, &stubResolver{})

	w := doRequest(r, http.MethodGet, "/api/v1/places/nearby?lat=55.7558&lon=37.6173", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5000.0, finder.lastRadius)
}

func TestNearby_InvalidParamsAre400(t *testing.T) {
	r := newRouter(t, &stubFinder{}, &stubResolver{})

	for _, target := range []string{
		"/api/v1/places/nearby",
		"/api/v1/places/nearby?lat=abc&lon=37.6",
		"/api/v1/places/nearby?lat=55.7&lon=37.6&radius=-1",
	} {
		w := doRequest(r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		code, _ := errorCode(t, w)
		assert.Equal(t, string(errors.ErrCodeInvalidRequest), code, target)
	}
}

func TestNearby_ExhaustedChainIs503(t *testing.T) {
	finder := &stubFinder{err: errors.NewAllProvidersExhausted()}
	r := newRouter(t, finder, &stubResolver{})

	w := doRequest(r, http.MethodGet, "/api/v1/places/nearby?lat=55.7&lon=37.6", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	code, retryable := errorCode(t, w)
	assert.Equal(t, string(errors.ErrCodeAllProvidersExhausted), code)
	assert.True(t, retryable)
}

func TestSearch_RequiresQuery(t *testing.T) {
	r := newRouter(t, &stubFinder{}, &stubResolver{})

	w := doRequest(r, http.MethodGet, "/api/v1/places/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_CoordinateIsOptional(t *testing.T) {
	finder := &stubFinder{}
	r := newRouter(t, finder, &stubResolver{})

	w := doRequest(r, http.MethodGet, "/api/v1/places/search?q=sushi", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sushi", finder.lastQuery)
	assert.Nil(t, finder.lastCoord)

	w = doRequest(r, http.MethodGet, "/api/v1/places/search?q=sushi&lat=55.7&lon=37.6", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, finder.lastCoord)
	assert.Equal(t, 55.7, finder.lastCoord.Latitude)
}

func TestResolve_ReturnsInternalID(t *testing.T) {
	resolver := &stubResolver{internalID: "internal-1"}
	r := newRouter(t, &stubFinder{}, resolver)

	w := doRequest(r, http.MethodPost, "/api/v1/places/resolve",
		`{"externalId": "osm:node/1", "provider": "osm", "name": "Grand Cafe", "location": {"latitude": 55.76, "longitude": 37.62}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		InternalID string `json:"internalId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal-1", body.InternalID)
}

func TestResolve_MissingIdentityIs400(t *testing.T) {
	r := newRouter(t, &stubFinder{}, &stubResolver{internalID: "internal-1"})

	w := doRequest(r, http.MethodPost, "/api/v1/places/resolve", `{"name": "No Identity"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolve_ReconciliationFailureIs502Retryable(t *testing.T) {
	resolver := &stubResolver{err: errors.NewReconciliationFailed(context.DeadlineExceeded)}
	r := newRouter(t, &stubFinder{}, resolver)

	w := doRequest(r, http.MethodPost, "/api/v1/places/resolve",
		`{"externalId": "osm:node/1", "provider": "osm"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	code, retryable := errorCode(t, w)
	assert.Equal(t, string(errors.ErrCodeReconciliationFailed), code)
	assert.True(t, retryable)
}

func TestRespondError_UnknownErrorIsOpaque500(t *testing.T) {
	finder := &stubFinder{err: context.DeadlineExceeded}
	r := newRouter(t, finder, &stubResolver{})

	w := doRequest(r, http.MethodGet, "/api/v1/places/nearby?lat=55.7&lon=37.6", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	code, _ := errorCode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", code)
}
