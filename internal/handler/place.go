package handler

import (
	"context"
	"errors"
	"net/http"

	"stillopen-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PlaceHandler handles single-place prediction requests
type PlaceHandler struct {
	service PlaceService
}

// PlaceService interface for dependency injection
type PlaceService interface {
	Detail(ctx context.Context, placeID string) (models.PlaceDetail, error)
}

// NewPlaceHandler creates a new place handler
func NewPlaceHandler(svc PlaceService) *PlaceHandler {
	return &PlaceHandler{service: svc}
}

// GetPlace handles GET /place/:id requests
//
//	@Summary		Predict whether a place is open
//	@Description	Returns the place with its predicted status, confidence and explanation.
//	@Tags			places
//	@Produce		json
//	@Param			id	path		string	true	"Place ID"
//	@Success		200	{object}	models.PlaceDetail
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/place/{id} [get]
func (h *PlaceHandler) GetPlace(c *gin.Context) {
	placeID := c.Param("id")

	detail, err := h.service.Detail(c.Request.Context(), placeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "place not found"})
			return
		}
		if abortedRequest(c, err) {
			return
		}
		log.Error().Err(err).Str("place_id", placeID).Msg("place lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error" example:"place not found"`
}

// StatusClientClosedRequest answers requests whose caller went away.
const StatusClientClosedRequest = 499

// abortedRequest writes the response for a request that ran out of time or
// was cancelled by the client, and reports whether err was such a case.
func abortedRequest(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	case errors.Is(err, context.Canceled):
		log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("client closed request")
		c.JSON(StatusClientClosedRequest, gin.H{"error": "request canceled"})
	default:
		return false
	}
	return true
}
