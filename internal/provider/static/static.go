// Package static is the compiled-in last-resort provider. It performs no
// I/O, always succeeds and always returns at least one place, which is what
// lets discovery guarantee a non-empty answer when every network provider is
// down or unconfigured.
package static

import (
	"context"
	"sort"
	"strings"

	"restaurant-discovery/internal/geo"
	"restaurant-discovery/internal/place"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Name() place.ProviderName { return place.ProviderStatic }

func (a *Adapter) Available() bool { return true }

// SearchNearby returns the fixed venue list with distances recomputed
// against the query coordinate. No radius filtering happens here: trimming
// the list could break the never-empty guarantee for far-away queries.
func (a *Adapter) SearchNearby(ctx context.Context, coord place.Coordinate, radiusMeters float64, maxResults int) ([]place.Place, error) {
	places := a.snapshot(&coord)

	sort.Slice(places, func(i, j int) bool {
		return *places[i].DistanceMeters < *places[j].DistanceMeters
	})

	if maxResults > 0 && len(places) > maxResults {
		places = places[:maxResults]
	}
	return places, nil
}

// SearchByText filters the fixed list by name. When the filter would leave
// nothing, the full list is returned instead: this provider must never be
// empty.
func (a *Adapter) SearchByText(ctx context.Context, query string, coord *place.Coordinate) ([]place.Place, error) {
	places := a.snapshot(coord)

	filtered := make([]place.Place, 0, len(places))
	for _, p := range places {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return places, nil
	}
	return filtered, nil
}

// snapshot copies the venue list so callers can't mutate the package data,
// populating distances when a query coordinate is present.
func (a *Adapter) snapshot(coord *place.Coordinate) []place.Place {
	places := make([]place.Place, len(venues))
	copy(places, venues)
	for i := range places {
		if coord != nil {
			places[i].DistanceMeters = place.Float64Ptr(geo.Distance(*coord, places[i].Location))
		}
	}
	return places
}

var venues = []place.Place{
	{
		ExternalID:  "static:1",
		Provider:    place.ProviderStatic,
		Name:        "Café Pushkin",
		Address:     "Tverskoy Blvd 26A, Moscow",
		Location:    place.Coordinate{Latitude: 55.7649, Longitude: 37.6049},
		CuisineType: "russian",
		Phone:       "+7 495 739-00-33",
		Website:     "https://cafe-pushkin.ru",
	},
	{
		ExternalID:  "static:2",
		Provider:    place.ProviderStatic,
		Name:        "White Rabbit",
		Address:     "Smolenskaya Sq 3, Moscow",
		Location:    place.Coordinate{Latitude: 55.7473, Longitude: 37.5816},
		CuisineType: "european",
		Website:     "https://whiterabbitmoscow.ru",
	},
	{
		ExternalID:  "static:3",
		Provider:    place.ProviderStatic,
		Name:        "Teremok",
		Address:     "Arbat St 45, Moscow",
		Location:    place.Coordinate{Latitude: 55.7487, Longitude: 37.5855},
		CuisineType: "russian",
	},
	{
		ExternalID:  "static:4",
		Provider:    place.ProviderStatic,
		Name:        "Mizandari",
		Address:     "Bolshaya Gruzinskaya St 36, Moscow",
		Location:    place.Coordinate{Latitude: 55.7708, Longitude: 37.5790},
		CuisineType: "georgian",
	},
	{
		ExternalID:  "static:5",
		Provider:    place.ProviderStatic,
		Name:        "Danilovsky Market Food Hall",
		Address:     "Mytnaya St 74, Moscow",
		Location:    place.Coordinate{Latitude: 55.7112, Longitude: 37.6213},
		CuisineType: "food court",
	},
	{
		ExternalID:  "static:6",
		Provider:    place.ProviderStatic,
		Name:        "Varenichnaya No. 1",
		Address:     "Arbat St 29, Moscow",
		Location:    place.Coordinate{Latitude: 55.7495, Longitude: 37.5892},
		CuisineType: "ukrainian",
	},
}
