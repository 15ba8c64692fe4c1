package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionInitialize     AuditAction = "INITIALIZE"
	AuditActionRegister       AuditAction = "REGISTER_BUSINESS"
	AuditActionBusinessStatus AuditAction = "UPDATE_BUSINESS_STATUS"
	AuditActionBusinessFee    AuditAction = "UPDATE_BUSINESS_FEE"
	AuditActionCreatePayment  AuditAction = "CREATE_PAYMENT"
	AuditActionExecute        AuditAction = "EXECUTE_PAYMENT"
	AuditActionCancel         AuditAction = "CANCEL_PAYMENT"
)

// AuditLog records a single audited action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Actor        Address     `json:"actor,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	StatusCode   int         `json:"status_code"`
	CreatedAt    time.Time   `json:"created_at"`
}
