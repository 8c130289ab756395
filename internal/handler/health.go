package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ModelStatus reports whether the classifier is loaded.
type ModelStatus interface {
	Ready() error
	ModelVersion() string
	SchemaFingerprint() string
}

// CatalogPinger checks that the catalog store is reachable.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service readiness
type HealthHandler struct {
	model   ModelStatus
	catalog CatalogPinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(model ModelStatus, catalog CatalogPinger) *HealthHandler {
	return &HealthHandler{model: model, catalog: catalog}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string `json:"status" example:"ok"`
	Model        string `json:"model" example:"ok"`
	ModelVersion string `json:"model_version,omitempty" example:"rf-2026-02"`
	Schema       string `json:"schema" example:"3f9a1c0d2b7e4a51"`
	Catalog      string `json:"catalog" example:"ok"`
}

// Health handles GET /health requests
//
//	@Summary		Service health
//	@Description	Reports 503 while the classifier is not loaded or the catalog is unreachable.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Model: "ok", Catalog: "ok", Schema: h.model.SchemaFingerprint()}
	status := http.StatusOK

	if h.model.Ready() != nil {
		resp.Model = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		resp.ModelVersion = h.model.ModelVersion()
	}
	if err := h.catalog.Ping(c.Request.Context()); err != nil {
		resp.Catalog = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		resp.Status = "degraded"
	}

	c.JSON(status, resp)
}
