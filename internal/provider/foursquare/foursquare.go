// Package foursquare queries the Foursquare Places v3 search API. Ratings
// already arrive on the canonical 0-10 scale and pass through unchanged.
// The adapter is skipped entirely when no API key is configured.
package foursquare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"restaurant-discovery/internal/common/config"
	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/httpclient"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/geo"
	"restaurant-discovery/internal/place"
)

// foodCategory is the Foursquare taxonomy root for dining and drinking.
const foodCategory = "13000"

type Adapter struct {
	cfg    config.FoursquareConfig
	client *httpclient.Client
	logger logger.Logger
}

func New(cfg config.FoursquareConfig, client *httpclient.Client, log logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: log.With(map[string]interface{}{"provider": place.ProviderFoursquare}),
	}
}

func (a *Adapter) Name() place.ProviderName { return place.ProviderFoursquare }

func (a *Adapter) Available() bool { return a.cfg.APIKey != "" }

func (a *Adapter) SearchNearby(ctx context.Context, coord place.Coordinate, radiusMeters float64, maxResults int) ([]place.Place, error) {
	params := url.Values{
		"ll":         {fmt.Sprintf("%f,%f", coord.Latitude, coord.Longitude)},
		"radius":     {fmt.Sprintf("%.0f", radiusMeters)},
		"categories": {foodCategory},
		"fields":     {"fsq_id,name,location,geocodes,categories,rating,stats,tel,website,photos"},
	}
	if maxResults > 0 {
		params.Set("limit", fmt.Sprintf("%d", maxResults))
	}
	return a.search(ctx, params, &coord)
}

func (a *Adapter) SearchByText(ctx context.Context, query string, coord *place.Coordinate) ([]place.Place, error) {
	params := url.Values{
		"query":      {query},
		"categories": {foodCategory},
		"fields":     {"fsq_id,name,location,geocodes,categories,rating,stats,tel,website,photos"},
	}
	if coord != nil {
		params.Set("ll", fmt.Sprintf("%f,%f", coord.Latitude, coord.Longitude))
	}
	return a.search(ctx, params, coord)
}

func (a *Adapter) search(ctx context.Context, params url.Values, queryCoord *place.Coordinate) ([]place.Place, error) {
	if !a.Available() {
		return nil, errors.NewProviderUnavailable(string(a.Name()), nil)
	}

	searchURL := fmt.Sprintf("%s/places/search?%s", a.cfg.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}
	req.Header.Set("Authorization", a.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderUnavailable(string(a.Name()), fmt.Errorf("foursquare returned %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}

	places := make([]place.Place, 0, len(payload.Results))
	for _, raw := range payload.Results {
		p, ok := normalizeResult(raw, queryCoord)
		if !ok {
			a.logger.Debug("skipping result", map[string]interface{}{"fsqId": raw.FsqID})
			continue
		}
		places = append(places, p)
	}

	if len(places) == 0 {
		return nil, errors.NewProviderEmpty(string(a.Name()))
	}
	return places, nil
}

type searchResponse struct {
	Results []fsqPlace `json:"results"`
}

type fsqPlace struct {
	FsqID    string `json:"fsq_id"`
	Name     string `json:"name"`
	Location struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"location"`
	Geocodes struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Rating *float64 `json:"rating,omitempty"`
	Stats  *struct {
		TotalRatings int `json:"total_ratings"`
	} `json:"stats,omitempty"`
	Tel     string `json:"tel"`
	Website string `json:"website"`
	Photos  []struct {
		Prefix string `json:"prefix"`
		Suffix string `json:"suffix"`
	} `json:"photos"`
}

// normalizeResult converts one raw Foursquare place into the canonical shape.
// Pure; photo materialization joins the prefix/suffix reference pair into a
// fetchable URL without any network call.
func normalizeResult(raw fsqPlace, queryCoord *place.Coordinate) (place.Place, bool) {
	if raw.FsqID == "" || raw.Name == "" {
		return place.Place{}, false
	}

	p := place.Place{
		ExternalID:  "fsq:" + raw.FsqID,
		Provider:    place.ProviderFoursquare,
		Name:        raw.Name,
		Address:     raw.Location.FormattedAddress,
		Location:    place.Coordinate{Latitude: raw.Geocodes.Main.Latitude, Longitude: raw.Geocodes.Main.Longitude},
		CuisineType: "restaurant",
		Phone:       raw.Tel,
		Website:     raw.Website,
	}

	if len(raw.Categories) > 0 && raw.Categories[0].Name != "" {
		p.CuisineType = raw.Categories[0].Name
	}

	// Foursquare ratings are natively 0-10: no scale conversion.
	if raw.Rating != nil {
		p.AverageRating = place.Float64Ptr(*raw.Rating)
	}
	if raw.Stats != nil {
		p.ReviewCount = place.IntPtr(raw.Stats.TotalRatings)
	}

	for _, photo := range raw.Photos {
		if photo.Prefix != "" && photo.Suffix != "" {
			p.Photos = append(p.Photos, photo.Prefix+"original"+photo.Suffix)
		}
	}

	if queryCoord != nil {
		p.DistanceMeters = place.Float64Ptr(geo.Distance(*queryCoord, p.Location))
	}

	return p, true
}
