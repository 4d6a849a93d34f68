package models

import (
	"time"

	"github.com/gocql/gocql"
)

// AuditLog is one row of the audit_logs table.
type AuditLog struct {
	ID         gocql.UUID `json:"id"`
	UserID     string     `json:"user_id"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	ResourceID string     `json:"resource_id,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	IPAddress  string     `json:"ip_address"`
	Success    bool       `json:"success"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
