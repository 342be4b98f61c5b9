// Package api holds the gin handlers for the discovery server and the
// restaurant (persistence collaborator) server.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/place"
)

// Finder is the discovery surface exposed to the UI layer.
type Finder interface {
	FindNearby(ctx context.Context, coord place.Coordinate, radiusMeters float64) ([]place.Place, error)
	SearchByText(ctx context.Context, query string, coord *place.Coordinate) ([]place.Place, error)
}

// Resolver maps a canonical place to a persistent internal id.
type Resolver interface {
	Resolve(ctx context.Context, p place.Place) (string, error)
}

type DiscoveryHandler struct {
	finder        Finder
	resolver      Resolver
	defaultRadius float64
	logger        logger.Logger
}

func NewDiscoveryHandler(finder Finder, resolver Resolver, defaultRadius float64, log logger.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		finder:        finder,
		resolver:      resolver,
		defaultRadius: defaultRadius,
		logger:        log.With(map[string]interface{}{"component": "api"}),
	}
}

func (h *DiscoveryHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.GET("/places/nearby", h.Nearby)
	v1.GET("/places/search", h.Search)
	v1.POST("/places/resolve", h.Resolve)
}

// Nearby handles GET /api/v1/places/nearby?lat=&lon=&radius=
func (h *DiscoveryHandler) Nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("lat must be a number"))
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("lon must be a number"))
		return
	}

	radius := h.defaultRadius
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			respondError(c, errors.NewInvalidRequest("radius must be a positive number"))
			return
		}
	}

	coord := place.Coordinate{Latitude: lat, Longitude: lon}
	places, err := h.finder.FindNearby(c.Request.Context(), coord, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"places": places})
}

// Search handles GET /api/v1/places/search?q=&lat=&lon= (coordinate optional).
func (h *DiscoveryHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondError(c, errors.NewInvalidRequest("q is required"))
		return
	}

	var coord *place.Coordinate
	if latRaw, lonRaw := c.Query("lat"), c.Query("lon"); latRaw != "" && lonRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		if latErr != nil || lonErr != nil {
			respondError(c, errors.NewInvalidRequest("lat and lon must be numbers"))
			return
		}
		coord = &place.Coordinate{Latitude: lat, Longitude: lon}
	}

	places, err := h.finder.SearchByText(c.Request.Context(), query, coord)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"places": places})
}

// Resolve handles POST /api/v1/places/resolve with a canonical Place body.
// A reconciliation failure blocks the dependent write and surfaces as a
// retryable error.
func (h *DiscoveryHandler) Resolve(c *gin.Context) {
	var p place.Place
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, errors.NewInvalidRequest(err.Error()))
		return
	}
	if p.ExternalID == "" || p.Provider == "" {
		respondError(c, errors.NewInvalidRequest("externalId and provider are required"))
		return
	}

	internalID, err := h.resolver.Resolve(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"internalId": internalID})
}

// respondError maps a StandardError onto the HTTP boundary; anything else
// becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	if code == "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "INTERNAL_ERROR", "message": "unexpected error", "retryable": true},
		})
		return
	}

	var stdErr *errors.StandardError
	stderrors.As(err, &stdErr)
	c.JSON(errors.HTTPStatus(code), gin.H{
		"error": gin.H{
			"code":      stdErr.Code,
			"message":   stdErr.Message,
			"details":   stdErr.Details,
			"retryable": stdErr.Retryable,
		},
	})
}
