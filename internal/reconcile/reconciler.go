// Package reconcile maps externally-discovered places to persistent internal
// identifiers. Provider ids are ephemeral and meaningless to the backend, so
// every write that references a place goes through Resolve first.
package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/httpclient"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/common/metrics"
	"restaurant-discovery/internal/place"
)

// Reconciler resolves a canonical Place to its backend internal id via the
// persistence collaborator's idempotent get-or-create endpoint.
type Reconciler struct {
	baseURL string
	client  *httpclient.Client
	cache   Cache
	logger  logger.Logger
}

func New(baseURL string, client *httpclient.Client, cache Cache, log logger.Logger) *Reconciler {
	return &Reconciler{
		baseURL: baseURL,
		client:  client,
		cache:   cache,
		logger:  log.With(map[string]interface{}{"component": "reconcile"}),
	}
}

// resolvePayload is the collaborator's POST /restaurants contract.
type resolvePayload struct {
	ExternalID  string   `json:"externalId"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone,omitempty"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	CuisineType string   `json:"cuisineType"`
	Photos      []string `json:"photos"`
}

type resolveResponse struct {
	Restaurant struct {
		InternalID string `json:"internalId"`
	} `json:"restaurant"`
}

// Resolve returns the persistent internal id for a place, creating the
// backend record on first use. On failure nothing is cached and the error
// surfaces to the caller: a write issued under an unresolved identity would
// silently corrupt referential integrity.
func (r *Reconciler) Resolve(ctx context.Context, p place.Place) (string, error) {
	key := p.Key()

	if internalID, ok := r.cache.Get(ctx, key); ok {
		metrics.ResolutionCacheHits.Inc()
		metrics.ResolveRequests.WithLabelValues("hit").Inc()
		return internalID, nil
	}

	internalID, err := r.getOrCreate(ctx, p)
	if err != nil {
		metrics.ResolveRequests.WithLabelValues("failed").Inc()
		r.logger.Error("resolution failed", map[string]interface{}{
			"externalId": p.ExternalID,
			"provider":   p.Provider,
			"error":      err.Error(),
		})
		return "", errors.NewReconciliationFailed(err)
	}

	r.cache.Put(ctx, key, internalID)
	metrics.ResolveRequests.WithLabelValues("resolved").Inc()
	r.logger.Info("place resolved", map[string]interface{}{
		"externalId": p.ExternalID,
		"internalId": internalID,
	})
	return internalID, nil
}

func (r *Reconciler) getOrCreate(ctx context.Context, p place.Place) (string, error) {
	payload := resolvePayload{
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Address:     p.Address,
		Phone:       p.Phone,
		Latitude:    p.Location.Latitude,
		Longitude:   p.Location.Longitude,
		CuisineType: p.CuisineType,
		Photos:      p.Photos,
	}
	if payload.Photos == nil {
		payload.Photos = []string{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/restaurants", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	var decoded resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Restaurant.InternalID == "" {
		return "", fmt.Errorf("backend response missing internalId")
	}

	return decoded.Restaurant.InternalID, nil
}
