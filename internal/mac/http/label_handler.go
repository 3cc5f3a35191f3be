// Package http provides HTTP handlers for clearance grants and resource classification.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/accessgate/internal/httputil"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/mac/http/dto"
	macUseCase "github.com/allisson/accessgate/internal/mac/usecase"
	resourceDTO "github.com/allisson/accessgate/internal/resource/http/dto"
	userDTO "github.com/allisson/accessgate/internal/user/http/dto"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// LabelHandler handles HTTP requests for MAC administration.
type LabelHandler struct {
	labelUseCase macUseCase.LabelUseCase
	logger       *slog.Logger
}

// NewLabelHandler creates a new label handler with required dependencies.
func NewLabelHandler(labelUseCase macUseCase.LabelUseCase, logger *slog.Logger) *LabelHandler {
	return &LabelHandler{
		labelUseCase: labelUseCase,
		logger:       logger,
	}
}

// bindLabel parses and validates a label request, writing the error response on failure.
func (h *LabelHandler) bindLabel(c *gin.Context) (macDomain.Label, bool) {
	var req dto.LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return macDomain.Label{}, false
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return macDomain.Label{}, false
	}

	return macDomain.NewLabel(macDomain.Level(req.SecurityLevel), req.Compartments), true
}

// GrantClearanceHandler sets a principal's clearance.
// PUT /v1/users/:id/clearance
func (h *LabelHandler) GrantClearanceHandler(c *gin.Context) {
	userID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	label, ok := h.bindLabel(c)
	if !ok {
		return
	}

	user, err := h.labelUseCase.GrantClearance(c.Request.Context(), userID, label)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, userDTO.MapUserToResponse(user))
}

// ClassifyHandler raises a resource label.
// POST /v1/resources/:id/classify
func (h *LabelHandler) ClassifyHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	label, ok := h.bindLabel(c)
	if !ok {
		return
	}

	resource, err := h.labelUseCase.Classify(c.Request.Context(), resourceID, label)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, resourceDTO.MapResourceToResponse(resource))
}

// DeclassifyHandler lowers a resource label.
// POST /v1/resources/:id/declassify
func (h *LabelHandler) DeclassifyHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	label, ok := h.bindLabel(c)
	if !ok {
		return
	}

	resource, err := h.labelUseCase.Declassify(c.Request.Context(), resourceID, label)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, resourceDTO.MapResourceToResponse(resource))
}

// AutoClassifyHandler classifies a resource from supplied content.
// POST /v1/resources/:id/auto-classify
func (h *LabelHandler) AutoClassifyHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ClassifyTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	outcome, err := h.labelUseCase.AutoClassify(c.Request.Context(), resourceID, req.Text, req.Apply)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAutoClassificationToResponse(outcome))
}

// ClassifyTextHandler classifies text without a resource.
// POST /v1/classify
func (h *LabelHandler) ClassifyTextHandler(c *gin.Context) {
	var req dto.ClassifyTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapClassificationToResponse(h.labelUseCase.ClassifyText(req.Text)))
}
