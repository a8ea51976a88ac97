package model

import "time"

// AuditLog represents an audit log entry
type AuditLog struct {
	ID           string                 `json:"id"`
	UserID       *string                `json:"userId,omitempty"`
	Action       string                 `json:"action"`
	ResourceType *string                `json:"resourceType,omitempty"`
	ResourceID   *string                `json:"resourceId,omitempty"`
	IPAddress    *string                `json:"ipAddress,omitempty"`
	UserAgent    *string                `json:"userAgent,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// Audit action constants
const (
	AuditActionLogin             = "user.login"
	AuditActionLoginFailed       = "user.login_failed"
	AuditActionPasswordChange    = "user.password_change"
	AuditActionCodeGenerated     = "code.generated"
	AuditActionCodeDeactivated   = "code.deactivated"
	AuditActionCodeDeleted       = "code.deleted"
	AuditActionDeviceAdmitted    = "device.admitted"
	AuditActionDeviceRefreshed   = "device.refreshed"
	AuditActionDeviceCascaded    = "device.cascade_deactivated"
	AuditActionDeviceDeactivated = "device.deactivated"
	AuditActionDeviceRenamed     = "device.renamed"
	AuditActionDeviceRemoved     = "device.removed"
	AuditActionVisitCreated      = "visit.created"
	AuditActionVisitCheckedOut   = "visit.checked_out"
)
