package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	appErrors "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/errors"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, claims *models.JWTClaims) (*models.DashboardSummary, error)
}

// DashboardHandler serves the cached summary endpoint.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Returns role-scoped request counts. Faculty see their own totals; admins and viewers see global totals.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}
