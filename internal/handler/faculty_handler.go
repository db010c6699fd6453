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

type facultyRequestService interface {
	Submit(ctx context.Context, req models.SubmitRequest, claims *models.JWTClaims, meta service.RequestMeta) (*models.GatePassRequest, error)
	List(ctx context.Context, filter models.RequestFilter, claims *models.JWTClaims) (*models.RequestList, error)
}

// FacultyHandler serves the faculty-facing request endpoints.
type FacultyHandler struct {
	service facultyRequestService
}

// NewFacultyHandler constructs a faculty handler.
func NewFacultyHandler(svc facultyRequestService) *FacultyHandler {
	return &FacultyHandler{service: svc}
}

// SubmitRequest godoc
// @Summary Submit leave request
// @Description Create a pending gate pass request. Admins may submit on behalf of another faculty member.
// @Tags Faculty
// @Accept json
// @Produce json
// @Param payload body models.SubmitRequest true "Leave request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/leave-request [post]
func (h *FacultyHandler) SubmitRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave request payload"))
		return
	}
	if req.FacultyID == "" {
		req.FacultyID = claims.UserID
	}

	request, err := h.service.Submit(c.Request.Context(), req, claims, metaFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// MyRequests godoc
// @Summary List own requests
// @Description Returns the caller's submissions with status counts
// @Tags Faculty
// @Produce json
// @Param status query string false "Status filter (pending|approved|rejected)"
// @Param date query string false "Calendar date filter"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/my-requests [get]
func (h *FacultyHandler) MyRequests(c *gin.Context) {
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
