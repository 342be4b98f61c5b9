// Package discovery drives the provider fallback chain. Providers are tried
// strictly in priority order and the first non-empty result set wins; results
// from different providers are never merged within one call, because their
// external-id spaces and data completeness are not comparable and merging
// would duplicate venues without a reliable dedup key.
package discovery

import (
	"context"
	"time"

	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/common/metrics"
	"restaurant-discovery/internal/place"
	"restaurant-discovery/internal/provider"
)

// Orchestrator walks an ordered adapter chain sequentially. Sequential, not
// parallel: the short-circuit contract makes fan-out wasteful, and it would
// interleave with the Google pagination pacing.
type Orchestrator struct {
	adapters []provider.Adapter
	// fallback always runs when the chain exhausts, even if it already
	// appeared in the chain and reported empty there. It is expected to
	// never be empty.
	fallback   provider.Adapter
	timeout    time.Duration
	maxResults int
	logger     logger.Logger
}

func New(adapters []provider.Adapter, fallback provider.Adapter, timeout time.Duration, maxResults int, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		adapters:   adapters,
		fallback:   fallback,
		timeout:    timeout,
		maxResults: maxResults,
		logger:     log.With(map[string]interface{}{"component": "discovery"}),
	}
}

// FindNearby returns places near the coordinate from the first provider in
// the priority chain that produces any. Provider failures never escape:
// they are logged, counted and absorbed by moving down the chain.
func (o *Orchestrator) FindNearby(ctx context.Context, coord place.Coordinate, radiusMeters float64) ([]place.Place, error) {
	depth := 0
	for _, adapter := range o.adapters {
		if !adapter.Available() {
			metrics.ProviderSearches.WithLabelValues(string(adapter.Name()), "skipped").Inc()
			o.logger.Debug("provider skipped, not configured", map[string]interface{}{
				"provider": adapter.Name(),
			})
			continue
		}

		depth++
		places, err := o.callNearby(ctx, adapter, coord, radiusMeters)
		if err != nil {
			o.recordFailure(adapter.Name(), err)
			continue
		}

		metrics.ProviderSearches.WithLabelValues(string(adapter.Name()), "ok").Inc()
		metrics.FallbackDepth.Observe(float64(depth))
		o.logger.Info("discovery served", map[string]interface{}{
			"provider": adapter.Name(),
			"results":  len(places),
			"depth":    depth,
		})
		return places, nil
	}

	return o.runFallback(ctx, coord, radiusMeters, depth)
}

// SearchByText applies the same chain restricted to providers that support
// free-text queries. The coordinate is optional.
func (o *Orchestrator) SearchByText(ctx context.Context, query string, coord *place.Coordinate) ([]place.Place, error) {
	for _, adapter := range o.adapters {
		searcher, ok := adapter.(provider.TextSearcher)
		if !ok {
			continue
		}
		if !adapter.Available() {
			metrics.ProviderSearches.WithLabelValues(string(adapter.Name()), "skipped").Inc()
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		start := time.Now()
		places, err := searcher.SearchByText(callCtx, query, coord)
		metrics.ProviderSearchDuration.WithLabelValues(string(adapter.Name())).Observe(time.Since(start).Seconds())
		cancel()

		if err != nil {
			o.recordFailure(adapter.Name(), err)
			continue
		}

		metrics.ProviderSearches.WithLabelValues(string(adapter.Name()), "ok").Inc()
		return places, nil
	}

	if searcher, ok := o.fallback.(provider.TextSearcher); ok {
		places, err := searcher.SearchByText(ctx, query, coord)
		if err == nil && len(places) > 0 {
			return places, nil
		}
	}
	return nil, errors.NewAllProvidersExhausted()
}

func (o *Orchestrator) callNearby(ctx context.Context, adapter provider.Adapter, coord place.Coordinate, radiusMeters float64) ([]place.Place, error) {
	// A slow provider must never block discovery of the next one beyond
	// its deadline.
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	places, err := adapter.SearchNearby(callCtx, coord, radiusMeters, o.maxResults)
	metrics.ProviderSearchDuration.WithLabelValues(string(adapter.Name())).Observe(time.Since(start).Seconds())
	return places, err
}

// runFallback is the final guarantee: the static provider is invoked
// unconditionally once the chain exhausts, and is not subject to the
// skip-on-empty rule because it must never be empty. The exhausted branch
// below is defensive only.
func (o *Orchestrator) runFallback(ctx context.Context, coord place.Coordinate, radiusMeters float64, depth int) ([]place.Place, error) {
	places, err := o.fallback.SearchNearby(ctx, coord, radiusMeters, o.maxResults)
	if err != nil || len(places) == 0 {
		o.logger.Error("every provider exhausted", map[string]interface{}{
			"triedProviders": depth,
		})
		return nil, errors.NewAllProvidersExhausted()
	}

	metrics.ProviderSearches.WithLabelValues(string(o.fallback.Name()), "ok").Inc()
	metrics.FallbackDepth.Observe(float64(depth + 1))
	o.logger.Warn("discovery served from static fallback", map[string]interface{}{
		"results": len(places),
	})
	return places, nil
}

// recordFailure distinguishes the empty and failed outcomes for logs and
// metrics; both route into the same fallback behavior.
func (o *Orchestrator) recordFailure(name place.ProviderName, err error) {
	outcome := "failed"
	logMsg := "provider failed, falling back"
	if errors.CodeOf(err) == errors.ErrCodeProviderEmpty {
		outcome = "empty"
		logMsg = "provider returned no results, falling back"
	}
	metrics.ProviderSearches.WithLabelValues(string(name), outcome).Inc()
	o.logger.Warn(logMsg, map[string]interface{}{
		"provider": name,
		"error":    err.Error(),
	})
}
