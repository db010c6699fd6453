package models

import "time"

// Audit actions recorded by the service.
const (
	AuditActionRegister = "REGISTER"
	AuditActionLogin    = "LOGIN"
	AuditActionSubmit   = "SUBMIT_REQUEST"
	AuditActionDecision = "DECIDE_REQUEST"
	AuditActionReopen   = "REOPEN_REQUEST"
	AuditActionAllow    = "MARK_ALLOWED"
)

// AuditLog stores a durable record of a state-changing action.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
