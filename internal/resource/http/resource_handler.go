// Package http provides HTTP handlers for the resource registry.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/accessgate/internal/httputil"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/resource/domain"
	"github.com/allisson/accessgate/internal/resource/http/dto"
	resourceUseCase "github.com/allisson/accessgate/internal/resource/usecase"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// ResourceHandler handles HTTP requests for resource registration and attributes.
type ResourceHandler struct {
	resourceUseCase resourceUseCase.ResourceUseCase
	logger          *slog.Logger
}

// NewResourceHandler creates a new resource handler with required dependencies.
func NewResourceHandler(resourceUseCase resourceUseCase.ResourceUseCase, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		resourceUseCase: resourceUseCase,
		logger:          logger,
	}
}

// RegisterHandler registers a resource with its initial label.
// POST /v1/resources - Returns 201 Created.
func (h *ResourceHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	resource, err := h.resourceUseCase.Register(c.Request.Context(), &domain.RegisterResourceInput{
		Type:       req.Type,
		ExternalID: req.ExternalID,
		OwnerID:    httputil.OptionalUUID(req.OwnerID),
		Label:      macDomain.Label{Level: macDomain.Level(req.SecurityLevel), Compartments: req.Compartments},
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapResourceToResponse(resource))
}

// GetHandler retrieves a resource by id.
// GET /v1/resources/:id
func (h *ResourceHandler) GetHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	resource, err := h.resourceUseCase.Get(c.Request.Context(), resourceID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapResourceToResponse(resource))
}

// ListHandler lists resources, or looks one up when both type and external_id are given.
// GET /v1/resources?type=document&external_id=doc-1&offset=0&limit=50
func (h *ResourceHandler) ListHandler(c *gin.Context) {
	resourceType := c.Query("type")

	if externalID := c.Query("external_id"); externalID != "" && resourceType != "" {
		resource, err := h.resourceUseCase.GetByRef(c.Request.Context(), resourceType, externalID)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, dto.MapResourcesToListResponse([]*domain.Resource{resource}))
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	resources, err := h.resourceUseCase.List(c.Request.Context(), resourceType, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapResourcesToListResponse(resources))
}

// ListAttributesHandler lists the attributes of a resource.
// GET /v1/resources/:id/attributes
func (h *ResourceHandler) ListAttributesHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	attributes, err := h.resourceUseCase.ListAttributes(c.Request.Context(), resourceID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAttributesToListResponse(attributes))
}

// SetAttributeHandler stores a declared attribute.
// PUT /v1/resources/:id/attributes/:name
func (h *ResourceHandler) SetAttributeHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.SetAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	attribute, err := h.resourceUseCase.SetAttribute(c.Request.Context(), resourceID, c.Param("name"), req.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAttributeToResponse(attribute))
}

// DeleteAttributeHandler removes an attribute.
// DELETE /v1/resources/:id/attributes/:name - Returns 204 No Content.
func (h *ResourceHandler) DeleteAttributeHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.resourceUseCase.DeleteAttribute(c.Request.Context(), resourceID, c.Param("name")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
