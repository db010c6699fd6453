package models

import "time"

// DashboardSummary is the role-scoped aggregate served by the dashboard
// endpoint. Faculty see their own counts; admin and viewer see the global
// picture.
type DashboardSummary struct {
	Role        UserRole     `json:"role"`
	Counts      StatusCounts `json:"counts"`
	GeneratedAt time.Time    `json:"generated_at"`
}
