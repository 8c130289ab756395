package handler

import (
	"context"
	"net/http"
	"strconv"

	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SearchHandler handles free-text place search requests
type SearchHandler struct {
	service SearchService
}

// SearchService interface for dependency injection
type SearchService interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.SearchCandidate, error)
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search handles GET /search requests
//
//	@Summary		Search places by name
//	@Description	Fuzzy name search, optionally biased toward and limited around a location. Queries shorter than two characters return an empty list.
//	@Tags			places
//	@Produce		json
//	@Param			q			query		string	false	"Search text"
//	@Param			limit		query		int		false	"Maximum number of results"
//	@Param			lat			query		number	false	"Latitude of the location hint"
//	@Param			lon			query		number	false	"Longitude of the location hint"
//	@Param			radius_km	query		number	false	"Only return places within this distance of the hint"
//	@Success		200			{array}		models.SearchCandidate
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	query := models.SearchQuery{Text: c.Query("q")}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		query.Limit = limit
	}

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if (latStr == "") != (lonStr == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters 'lat' and 'lon' must be given together"})
		return
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude format"})
			return
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude format"})
			return
		}
		near := geo.Point{Lat: lat, Lon: lon}
		if err := near.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		query.Near = &near
	}

	if radiusStr := c.Query("radius_km"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_km"})
			return
		}
		if query.Near == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'radius_km' requires 'lat' and 'lon'"})
			return
		}
		query.RadiusKm = radius
	}

	candidates, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		if abortedRequest(c, err) {
			return
		}
		log.Error().Err(err).Str("q", query.Text).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, candidates)
}
