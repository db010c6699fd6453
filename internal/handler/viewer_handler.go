package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/service"
	appErrors "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/errors"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/response"
)

type viewerRequestService interface {
	List(ctx context.Context, filter models.RequestFilter, claims *models.JWTClaims) (*models.RequestList, error)
	MarkAllowed(ctx context.Context, requestID string, claims *models.JWTClaims, meta service.RequestMeta) (*models.GatePassRequest, error)
}

// ViewerHandler serves the gate viewer endpoints.
type ViewerHandler struct {
	service viewerRequestService
}

// NewViewerHandler constructs a viewer handler.
func NewViewerHandler(svc viewerRequestService) *ViewerHandler {
	return &ViewerHandler{service: svc}
}

// AllRequests godoc
// @Summary List decided requests
// @Description Returns approved and rejected requests for the gate log
// @Tags Viewer
// @Produce json
// @Param status query string false "Status filter (approved|rejected)"
// @Param date query string false "Calendar date filter"
// @Param faculty_email query string false "Faculty email substring filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /viewer/all-requests [get]
func (h *ViewerHandler) AllRequests(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.service.List(c.Request.Context(), filterFromQuery(c, models.ScopeDecidedOnly), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// AllAllowed godoc
// @Summary List allowed requests
// @Description Returns requests already marked as allowed through the gate, most recent first
// @Tags Viewer
// @Produce json
// @Param date query string false "Calendar date filter"
// @Param faculty_email query string false "Faculty email substring filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /viewer/all-allowed [get]
func (h *ViewerHandler) AllAllowed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.service.List(c.Request.Context(), filterFromQuery(c, models.ScopeAllowedOnly), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// MarkAllowed godoc
// @Summary Mark request as allowed
// @Description Latches the allowed flag on a decided request. Repeat calls are no-ops.
// @Tags Viewer
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /viewer/mark-allowed/{id} [put]
func (h *ViewerHandler) MarkAllowed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "request id is required"))
		return
	}

	request, err := h.service.MarkAllowed(c.Request.Context(), id, claims, metaFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}
