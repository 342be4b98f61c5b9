// Package googleplaces queries the Google Places nearby/text search APIs.
//
// Two provider quirks live here and nowhere else: ratings arrive on a 0-5
// scale and are doubled during normalization to the canonical 0-10 scale,
// and paginated responses hand out a continuation token that only becomes
// valid after a pause, so the adapter waits the configured page delay
// (2 seconds by default, per the provider's pacing contract) before every
// follow-up page request.
package googleplaces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"restaurant-discovery/internal/common/config"
	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/httpclient"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/geo"
	"restaurant-discovery/internal/place"
)

type Adapter struct {
	cfg    config.GoogleConfig
	client *httpclient.Client
	logger logger.Logger
}

func New(cfg config.GoogleConfig, client *httpclient.Client, log logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: log.With(map[string]interface{}{"provider": place.ProviderGoogle}),
	}
}

func (a *Adapter) Name() place.ProviderName { return place.ProviderGoogle }

func (a *Adapter) Available() bool { return a.cfg.APIKey != "" }

func (a *Adapter) SearchNearby(ctx context.Context, coord place.Coordinate, radiusMeters float64, maxResults int) ([]place.Place, error) {
	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", coord.Latitude, coord.Longitude)},
		"radius":   {fmt.Sprintf("%.0f", radiusMeters)},
		"type":     {"restaurant"},
	}
	return a.searchPaged(ctx, "nearbysearch", params, &coord, maxResults)
}

func (a *Adapter) SearchByText(ctx context.Context, query string, coord *place.Coordinate) ([]place.Place, error) {
	params := url.Values{
		"query": {query + " restaurant"},
	}
	if coord != nil {
		params.Set("location", fmt.Sprintf("%f,%f", coord.Latitude, coord.Longitude))
	}
	const textSearchLimit = 60
	return a.searchPaged(ctx, "textsearch", params, coord, textSearchLimit)
}

// searchPaged walks the paginated response chain: stop at the configured max
// page count or once maxResults places are collected, whichever comes first.
func (a *Adapter) searchPaged(ctx context.Context, endpoint string, params url.Values, queryCoord *place.Coordinate, maxResults int) ([]place.Place, error) {
	if !a.Available() {
		return nil, errors.NewProviderUnavailable(string(a.Name()), nil)
	}

	places := make([]place.Place, 0, maxResults)
	pageToken := ""

	for page := 0; page < a.cfg.MaxPages; page++ {
		if pageToken != "" {
			if err := a.waitPageDelay(ctx); err != nil {
				// Deadline hit mid-pagination: what we have is a
				// valid partial result, not a failure.
				break
			}
		}

		payload, err := a.fetchPage(ctx, endpoint, params, pageToken)
		if err != nil {
			if len(places) > 0 {
				break
			}
			return nil, err
		}

		for _, raw := range payload.Results {
			p, ok := a.normalizeResult(raw, queryCoord)
			if !ok {
				a.logger.Debug("skipping result", map[string]interface{}{"placeId": raw.PlaceID})
				continue
			}
			places = append(places, p)
			if maxResults > 0 && len(places) >= maxResults {
				return places, nil
			}
		}

		pageToken = payload.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if len(places) == 0 {
		return nil, errors.NewProviderEmpty(string(a.Name()))
	}
	return places, nil
}

func (a *Adapter) waitPageDelay(ctx context.Context) error {
	timer := time.NewTimer(a.cfg.PageDelay())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Adapter) fetchPage(ctx context.Context, endpoint string, params url.Values, pageToken string) (*searchResponse, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", a.cfg.APIKey)
	if pageToken != "" {
		query.Set("pagetoken", pageToken)
	}

	searchURL := fmt.Sprintf("%s/%s/json?%s", a.cfg.BaseURL, endpoint, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderUnavailable(string(a.Name()), fmt.Errorf("google places returned %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}

	switch payload.Status {
	case "OK", "ZERO_RESULTS":
		return &payload, nil
	default:
		return nil, errors.NewProviderUnavailable(string(a.Name()), fmt.Errorf("google places status %s", payload.Status))
	}
}

type searchResponse struct {
	Results       []googlePlace `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
}

type googlePlace struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	// textsearch responses use formatted_address instead of vicinity.
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Types            []string `json:"types"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	Photos           []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

// normalizeResult converts one raw Google place into the canonical shape.
// Pure aside from reading adapter config for photo URL construction.
func (a *Adapter) normalizeResult(raw googlePlace, queryCoord *place.Coordinate) (place.Place, bool) {
	if raw.PlaceID == "" || raw.Name == "" {
		return place.Place{}, false
	}

	address := raw.Vicinity
	if address == "" {
		address = raw.FormattedAddress
	}

	p := place.Place{
		ExternalID:  "gplaces:" + raw.PlaceID,
		Provider:    place.ProviderGoogle,
		Name:        raw.Name,
		Address:     address,
		Location:    place.Coordinate{Latitude: raw.Geometry.Location.Lat, Longitude: raw.Geometry.Location.Lng},
		CuisineType: cuisineFromTypes(raw.Types),
	}

	// Google ratings are 0-5; the canonical scale is 0-10.
	if raw.Rating != nil {
		p.AverageRating = place.Float64Ptr(*raw.Rating * 2)
	}
	if raw.UserRatingsTotal != nil {
		p.ReviewCount = place.IntPtr(*raw.UserRatingsTotal)
	}

	// Photo references require a deterministic URL-construction step, not
	// a network call.
	for _, photo := range raw.Photos {
		if photo.PhotoReference == "" {
			continue
		}
		p.Photos = append(p.Photos, fmt.Sprintf(
			"%s?maxwidth=800&photo_reference=%s&key=%s",
			a.cfg.PhotoBaseURL, url.QueryEscape(photo.PhotoReference), url.QueryEscape(a.cfg.APIKey),
		))
	}

	if queryCoord != nil {
		p.DistanceMeters = place.Float64Ptr(geo.Distance(*queryCoord, p.Location))
	}

	return p, true
}

func cuisineFromTypes(types []string) string {
	for _, t := range types {
		switch t {
		case "cafe", "bakery", "bar", "meal_takeaway", "meal_delivery":
			return t
		}
	}
	return "restaurant"
}
