// Package provider defines the contract every external geo-data source
// adapter satisfies. The variant set is closed (OSM, Foursquare, Google
// Places, static fallback); there is no runtime plugin loading.
package provider

import (
	"context"

	"restaurant-discovery/internal/place"
)

// Adapter executes a provider-specific nearby search and returns canonical
// places. Implementations catch their own network/auth/parsing failures and
// report them as errors.NewProviderUnavailable, and report a valid
// zero-result response as errors.NewProviderEmpty, so nothing
// provider-specific leaks past the adapter boundary.
type Adapter interface {
	Name() place.ProviderName

	// Available reports whether the adapter is usable at all (for keyed
	// providers: whether a credential is configured). An unavailable
	// adapter is skipped by the orchestrator, which is a valid
	// configuration rather than an error.
	Available() bool

	SearchNearby(ctx context.Context, coord place.Coordinate, radiusMeters float64, maxResults int) ([]place.Place, error)
}

// TextSearcher is the optional capability for providers that support
// free-text queries. The coordinate is optional; when absent, results carry
// no DistanceMeters.
type TextSearcher interface {
	Adapter
	SearchByText(ctx context.Context, query string, coord *place.Coordinate) ([]place.Place, error)
}
