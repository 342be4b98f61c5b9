package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"restaurant-discovery/internal/common/errors"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/restaurantstore"
)

// restaurantSchema validates the get-or-create payload before it reaches the
// store. externalId is the idempotency key and must be present.
const restaurantSchema = `{
  "type": "object",
  "required": ["externalId", "name", "latitude", "longitude"],
  "properties": {
    "externalId":  {"type": "string", "minLength": 1},
    "name":        {"type": "string", "minLength": 1},
    "address":     {"type": "string"},
    "phone":       {"type": "string"},
    "latitude":    {"type": "number", "minimum": -90, "maximum": 90},
    "longitude":   {"type": "number", "minimum": -180, "maximum": 180},
    "cuisineType": {"type": "string"},
    "photos":      {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": false
}`

type restaurantRequest struct {
	ExternalID  string   `json:"externalId"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	CuisineType string   `json:"cuisineType"`
	Photos      []string `json:"photos"`
}

type RestaurantHandler struct {
	store  *restaurantstore.Store
	schema *gojsonschema.Schema
	logger logger.Logger
}

func NewRestaurantHandler(store *restaurantstore.Store, log logger.Logger) (*RestaurantHandler, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(restaurantSchema))
	if err != nil {
		return nil, err
	}
	return &RestaurantHandler{
		store:  store,
		schema: schema,
		logger: log.With(map[string]interface{}{"component": "restaurants-api"}),
	}, nil
}

func (h *RestaurantHandler) Register(r *gin.Engine) {
	r.POST("/restaurants", h.GetOrCreate)
}

// GetOrCreate handles POST /restaurants. The operation is idempotent by
// externalId: both the found and the created case answer 200 with the
// winning row.
func (h *RestaurantHandler) GetOrCreate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, errors.NewInvalidRequest("unreadable body"))
		return
	}

	result, err := h.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		respondError(c, errors.NewInvalidRequest("body is not valid JSON"))
		return
	}
	if !result.Valid() {
		respondError(c, errors.NewInvalidRequest(validationDetails(result)))
		return
	}

	var req restaurantRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, errors.NewInvalidRequest(err.Error()))
		return
	}

	restaurant, created, err := h.store.GetOrCreate(c.Request.Context(), restaurantstore.Input{
		ExternalID:  req.ExternalID,
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		CuisineType: req.CuisineType,
		Photos:      req.Photos,
	})
	if err != nil {
		h.logger.WithError(err).Error("get-or-create failed", map[string]interface{}{
			"externalId": req.ExternalID,
		})
		respondError(c, errors.NewDatabaseInsertFailed(err))
		return
	}

	h.logger.Info("restaurant resolved", map[string]interface{}{
		"externalId": restaurant.ExternalID,
		"internalId": restaurant.InternalID,
		"created":    created,
	})
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

func validationDetails(result *gojsonschema.Result) string {
	details := ""
	for i, desc := range result.Errors() {
		if i > 0 {
			details += "; "
		}
		details += desc.String()
	}
	return details
}
