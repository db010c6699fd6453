package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/service"
	appErrors "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/errors"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/export"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/response"
)

type adminRequestService interface {
	Decide(ctx context.Context, req models.DecisionRequest, claims *models.JWTClaims, meta service.RequestMeta) (*models.GatePassRequest, bool, error)
	Reopen(ctx context.Context, req models.ReopenRequest, claims *models.JWTClaims, meta service.RequestMeta) (*models.GatePassRequest, error)
	List(ctx context.Context, filter models.RequestFilter, claims *models.JWTClaims) (*models.RequestList, error)
	ExportDataset(ctx context.Context, filter models.RequestFilter, claims *models.JWTClaims) (export.Dataset, error)
}

// AdminHandler serves the admin decision and reporting endpoints.
type AdminHandler struct {
	service adminRequestService
	metrics *service.MetricsService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(svc adminRequestService, metrics *service.MetricsService) *AdminHandler {
	return &AdminHandler{
		service: svc,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

// PendingRequests godoc
// @Summary List pending requests
// @Description Returns requests awaiting a decision, oldest first by date
// @Tags Admin
// @Produce json
// @Param date query string false "Calendar date filter"
// @Param faculty_email query string false "Faculty email substring filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/pending-requests [get]
func (h *AdminHandler) PendingRequests(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.service.List(c.Request.Context(), filterFromQuery(c, models.ScopePendingOnly), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// AllRequests godoc
// @Summary List all requests
// @Description Returns the full request log with optional status, date and email filters
// @Tags Admin
// @Produce json
// @Param status query string false "Status filter (pending|approved|rejected)"
// @Param date query string false "Calendar date filter"
// @Param faculty_email query string false "Faculty email substring filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/all-requests [get]
func (h *AdminHandler) AllRequests(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.service.List(c.Request.Context(), filterFromQuery(c, models.ScopeAll), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// UpdateRequest godoc
// @Summary Decide a request
// @Description Approve or reject a pending request and notify the faculty member
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/update-request [post]
func (h *AdminHandler) UpdateRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	request, notified, err := h.service.Decide(c.Request.Context(), req, claims, metaFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveDecision(string(request.Status))
		result := "sent"
		if !notified {
			result = "failed"
		}
		h.metrics.ObserveNotification(result)
	}

	response.JSON(c, http.StatusOK, request, nil, map[string]interface{}{
		"notification_sent": notified,
	})
}

// ReopenRequest godoc
// @Summary Re-open a decided request
// @Description Moves an approved or rejected request back to pending and clears its allow stamp
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.ReopenRequest true "Reopen payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reopen-request [post]
func (h *AdminHandler) ReopenRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ReopenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reopen payload"))
		return
	}

	request, err := h.service.Reopen(c.Request.Context(), req, claims, metaFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// Export godoc
// @Summary Export the request log
// @Description Renders the filtered request log as a CSV or PDF download
// @Tags Admin
// @Produce octet-stream
// @Param format query string true "Export format (csv|pdf)"
// @Param status query string false "Status filter"
// @Param date query string false "Calendar date filter"
// @Param faculty_email query string false "Faculty email substring filter"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")

	dataset, err := h.service.ExportDataset(c.Request.Context(), filterFromQuery(c, models.ScopeAll), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("gate-pass-requests-%s", time.Now().UTC().Format("20060102"))
	switch format {
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render csv export"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(dataset, "Gate Pass Requests")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render pdf export"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be 'csv' or 'pdf'"))
	}
}
