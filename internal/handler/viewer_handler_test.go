package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/middleware"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/service"
	appErrors "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/errors"
)

type fakeViewerSrv struct {
	listResp   *models.RequestList
	listErr    error
	lastFilter models.RequestFilter
	markResp   *models.GatePassRequest
	markErr    error
	lastMarkID string
}

func (f *fakeViewerSrv) List(ctx context.Context, filter models.RequestFilter, claims *models.JWTClaims) (*models.RequestList, error) {
	f.lastFilter = filter
	return f.listResp, f.listErr
}

func (f *fakeViewerSrv) MarkAllowed(ctx context.Context, requestID string, claims *models.JWTClaims, meta service.RequestMeta) (*models.GatePassRequest, error) {
	f.lastMarkID = requestID
	return f.markResp, f.markErr
}

func viewerTestContext(t *testing.T, rec *httptest.ResponseRecorder, req *http.Request) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "viewer-1", Role: models.RoleViewer, Name: "Gate Viewer"})
	return c
}

func TestViewerHandlerAllRequestsDecidedScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeViewerSrv{listResp: &models.RequestList{}}
	handler := NewViewerHandler(srv)

	rec := httptest.NewRecorder()
	c := viewerTestContext(t, rec, httptest.NewRequest(http.MethodGet, "/api/viewer/all-requests", nil))

	handler.AllRequests(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ScopeDecidedOnly, srv.lastFilter.Scope)
}

func TestViewerHandlerAllAllowedScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeViewerSrv{listResp: &models.RequestList{}}
	handler := NewViewerHandler(srv)

	rec := httptest.NewRecorder()
	c := viewerTestContext(t, rec, httptest.NewRequest(http.MethodGet, "/api/viewer/all-allowed", nil))

	handler.AllAllowed(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ScopeAllowedOnly, srv.lastFilter.Scope)
}

func TestViewerHandlerMarkAllowed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeViewerSrv{markResp: &models.GatePassRequest{ID: "r1", Allowed: true}}
	handler := NewViewerHandler(srv)

	rec := httptest.NewRecorder()
	c := viewerTestContext(t, rec, httptest.NewRequest(http.MethodPut, "/api/viewer/mark-allowed/r1", nil))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.MarkAllowed(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", srv.lastMarkID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Data["allowed"])
}

func TestViewerHandlerMarkAllowedPendingRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeViewerSrv{markErr: appErrors.Clone(appErrors.ErrInvalidTransition, "cannot mark a pending request as allowed")}
	handler := NewViewerHandler(srv)

	rec := httptest.NewRecorder()
	c := viewerTestContext(t, rec, httptest.NewRequest(http.MethodPut, "/api/viewer/mark-allowed/r1", nil))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.MarkAllowed(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
