// Package place defines the canonical, provider-agnostic representation of a
// discovered venue exchanged between the provider adapters, the aggregation
// orchestrator and the reconciliation client.
package place

import "fmt"

// ProviderName identifies which adapter produced a Place. It never changes
// after normalization.
type ProviderName string

const (
	ProviderOSM        ProviderName = "osm"
	ProviderFoursquare ProviderName = "foursquare"
	ProviderGoogle     ProviderName = "google"
	ProviderStatic     ProviderName = "static"
)

// Coordinate is a WGS-84 point. Providers are trusted to stay within valid
// ranges, so no defensive validation happens here.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is the canonical venue record.
//
// ExternalID is opaque and provider-prefixed (e.g. "osm:node/123"), so the
// pair (Provider, ExternalID) is the true external key; ExternalID alone is
// only unique within one provider.
//
// Ratings are always on a 0-10 scale. Optional numerics are pointers so that
// "provider has no such concept" survives serialization as absence rather
// than a zero value; any zero-filling is a presentation concern.
type Place struct {
	ExternalID     string       `json:"externalId"`
	Provider       ProviderName `json:"provider"`
	Name           string       `json:"name"`
	Address        string       `json:"address"`
	Location       Coordinate   `json:"location"`
	CuisineType    string       `json:"cuisineType"`
	DistanceMeters *float64     `json:"distanceMeters,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Website        string       `json:"website,omitempty"`
	Photos         []string     `json:"photos,omitempty"`
	AverageRating  *float64     `json:"averageRating,omitempty"`
	ReviewCount    *int         `json:"reviewCount,omitempty"`
}

// Key returns the cache/idempotency key for this place.
func (p Place) Key() string {
	return fmt.Sprintf("%s:%s", p.Provider, p.ExternalID)
}

// Float64Ptr and IntPtr are small helpers for building optional fields.
func Float64Ptr(v float64) *float64 { return &v }
func IntPtr(v int) *int             { return &v }
