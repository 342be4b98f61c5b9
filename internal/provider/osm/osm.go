// Package osm queries an Overpass-style OpenStreetMap interface for food
// venues. It needs no API key, so it is the default first provider in the
// fallback chain. OSM has no rating concept: AverageRating and ReviewCount
// are never populated here.
package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"restaurant-discovery/internal/common/config"
	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/httpclient"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/geo"
	"restaurant-discovery/internal/place"
)

// amenityFilter matches the OSM tag values considered food venues.
const amenityFilter = "restaurant|cafe|fast_food|bar|pub|food_court"

type Adapter struct {
	cfg    config.OSMConfig
	client *httpclient.Client
	logger logger.Logger
}

func New(cfg config.OSMConfig, client *httpclient.Client, log logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: log.With(map[string]interface{}{"provider": place.ProviderOSM}),
	}
}

func (a *Adapter) Name() place.ProviderName { return place.ProviderOSM }

// Available is always true: the public Overpass interface is keyless.
func (a *Adapter) Available() bool { return true }

func (a *Adapter) SearchNearby(ctx context.Context, coord place.Coordinate, radiusMeters float64, maxResults int) ([]place.Place, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];(node["amenity"~"%[1]s"](around:%.0[2]f,%[3]f,%[4]f);way["amenity"~"%[1]s"](around:%.0[2]f,%[3]f,%[4]f);relation["amenity"~"%[1]s"](around:%.0[2]f,%[3]f,%[4]f););out center;`,
		amenityFilter, radiusMeters, coord.Latitude, coord.Longitude)

	return a.run(ctx, query, &coord, maxResults, "")
}

// SearchByText issues a name-filtered Overpass query. Overpass has no ranked
// text index, so with a coordinate the nearby result set is filtered by name;
// without one a global case-insensitive name regex is used.
func (a *Adapter) SearchByText(ctx context.Context, query string, coord *place.Coordinate) ([]place.Place, error) {
	const textSearchRadius = 20000.0
	const textSearchLimit = 50

	if coord != nil {
		overpass := fmt.Sprintf(`[out:json][timeout:25];(node["amenity"~"%[1]s"](around:%.0[2]f,%[3]f,%[4]f);way["amenity"~"%[1]s"](around:%.0[2]f,%[3]f,%[4]f););out center;`,
			amenityFilter, textSearchRadius, coord.Latitude, coord.Longitude)
		return a.run(ctx, overpass, coord, textSearchLimit, query)
	}

	escaped := regexEscape(query)
	overpass := fmt.Sprintf(`[out:json][timeout:25];(node["amenity"~"%[1]s"]["name"~"%[2]s",i];way["amenity"~"%[1]s"]["name"~"%[2]s",i];);out center %[3]d;`,
		amenityFilter, escaped, textSearchLimit)
	return a.run(ctx, overpass, nil, textSearchLimit, "")
}

func (a *Adapter) run(ctx context.Context, overpassQL string, queryCoord *place.Coordinate, maxResults int, nameFilter string) ([]place.Place, error) {
	body := strings.NewReader(url.Values{"data": {overpassQL}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL, body)
	if err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderUnavailable(string(a.Name()), fmt.Errorf("overpass returned %d", resp.StatusCode))
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewProviderUnavailable(string(a.Name()), err)
	}

	places := make([]place.Place, 0, len(payload.Elements))
	for _, el := range payload.Elements {
		p, ok := normalizeElement(el, queryCoord)
		if !ok {
			// Placeholder venues with neither name nor address add
			// noise, not signal; malformed elements must not abort
			// the rest of the batch.
			a.logger.Debug("skipping element", map[string]interface{}{
				"osmType": el.Type,
				"osmId":   el.ID,
			})
			continue
		}
		if nameFilter != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(nameFilter)) {
			continue
		}
		places = append(places, p)
		if maxResults > 0 && len(places) >= maxResults {
			break
		}
	}

	if len(places) == 0 {
		return nil, errors.NewProviderEmpty(string(a.Name()))
	}
	return places, nil
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// normalizeElement converts one Overpass element into a canonical Place. It
// is pure: no I/O, no side effects. The bool result is false for elements
// that should be dropped.
func normalizeElement(el overpassElement, queryCoord *place.Coordinate) (place.Place, bool) {
	lat, lon := el.Lat, el.Lon
	if el.Center != nil {
		// Ways and relations carry their centroid under "center".
		lat, lon = el.Center.Lat, el.Center.Lon
	}
	if lat == 0 && lon == 0 {
		return place.Place{}, false
	}

	name := el.Tags["name"]
	address := buildAddress(el.Tags)
	if name == "" && address == "" {
		return place.Place{}, false
	}

	p := place.Place{
		ExternalID:  fmt.Sprintf("osm:%s/%d", el.Type, el.ID),
		Provider:    place.ProviderOSM,
		Name:        name,
		Address:     address,
		Location:    place.Coordinate{Latitude: lat, Longitude: lon},
		CuisineType: cuisineFromTags(el.Tags),
		Phone:       firstTag(el.Tags, "phone", "contact:phone"),
		Website:     firstTag(el.Tags, "website", "contact:website"),
	}

	if queryCoord != nil {
		p.DistanceMeters = place.Float64Ptr(geo.Distance(*queryCoord, p.Location))
	}

	return p, true
}

func buildAddress(tags map[string]string) string {
	parts := make([]string, 0, 3)
	street := tags["addr:street"]
	if street != "" {
		if num := tags["addr:housenumber"]; num != "" {
			street = street + " " + num
		}
		parts = append(parts, street)
	}
	if city := tags["addr:city"]; city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}

// cuisineFromTags picks the best-effort classification: the first cuisine
// tag value, then the amenity value, then a generic label.
func cuisineFromTags(tags map[string]string) string {
	if cuisine := tags["cuisine"]; cuisine != "" {
		first := strings.Split(cuisine, ";")[0]
		return strings.ReplaceAll(strings.TrimSpace(first), "_", " ")
	}
	if amenity := tags["amenity"]; amenity != "" {
		return strings.ReplaceAll(amenity, "_", " ")
	}
	return "restaurant"
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func regexEscape(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
		`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
		`^`, `\^`, `$`, `\$`, `|`, `\|`, `"`, `\"`,
	)
	return replacer.Replace(s)
}
