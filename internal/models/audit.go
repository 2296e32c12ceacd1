package models

import "time"

// Audit actions recorded by the services.
const (
	AuditActionLogin              = "LOGIN"
	AuditActionEditRequestIssue   = "EDIT_REQUEST_ISSUE"
	AuditActionEditRequestApprove = "EDIT_REQUEST_APPROVE"
	AuditActionEditRequestReject  = "EDIT_REQUEST_REJECT"
	AuditActionEditRequestDelete  = "EDIT_REQUEST_DELETE"
	AuditActionEditRequestExpire  = "EDIT_REQUEST_EXPIRE"
)

// AuditLog records a state-changing action for traceability.
type AuditLog struct {
	ID         int64     `db:"id"`
	UserID     *int64    `db:"user_id"`
	Action     string    `db:"action"`
	Resource   string    `db:"resource"`
	ResourceID *string   `db:"resource_id"`
	NewValues  []byte    `db:"new_values"`
	OldValues  []byte    `db:"old_values"`
	IPAddress  string    `db:"ip_address"`
	UserAgent  string    `db:"user_agent"`
	CreatedAt  time.Time `db:"created_at"`
}
