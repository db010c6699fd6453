package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/middleware"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func metaFromContext(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// filterFromQuery builds a request filter from the common query parameters.
// Status and date validity are enforced by the service.
func filterFromQuery(c *gin.Context, scope models.RequestScope) models.RequestFilter {
	filter := models.RequestFilter{
		Date:         c.Query("date"),
		FacultyEmail: c.Query("faculty_email"),
		Scope:        scope,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.RequestStatus(raw)
		filter.Status = &status
	}
	return filter
}
