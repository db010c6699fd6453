package main

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/handler"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/service"
)

func TestRegisterRoutesMethodTable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(nil, nil, nil, service.AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour})
	requestSvc := service.NewRequestService(nil, nil, nil, nil, nil, nil, 0)

	r := gin.New()
	registerRoutes(r, routeDeps{
		apiPrefix: "/api",
		auth:      authSvc,
		authH:     handler.NewAuthHandler(authSvc),
		facultyH:  handler.NewFacultyHandler(requestSvc),
		adminH:    handler.NewAdminHandler(requestSvc, nil),
		viewerH:   handler.NewViewerHandler(requestSvc),
		dashH:     handler.NewDashboardHandler(requestSvc),
		metricsH:  handler.NewMetricsHandler(nil, nil),
	})

	seen := map[string]bool{}
	for _, route := range r.Routes() {
		seen[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /api/auth/register",
		"POST /api/auth/login",
		"GET /api/auth/me",
		"POST /api/auth/logout",
		"POST /api/faculty/leave-request",
		"GET /api/faculty/my-requests",
		"GET /api/admin/pending-requests",
		"GET /api/admin/all-requests",
		"POST /api/admin/update-request",
		"POST /api/admin/reopen-request",
		"GET /api/admin/export",
		"GET /api/viewer/all-requests",
		"GET /api/viewer/all-allowed",
		"PUT /api/viewer/mark-allowed/:id",
		"GET /api/dashboard/summary",
	} {
		assert.True(t, seen[want], want)
	}

	// The decision and reopen endpoints accept POST only.
	assert.False(t, seen["PUT /api/admin/update-request"])
	assert.False(t, seen["PUT /api/admin/reopen-request"])
}
