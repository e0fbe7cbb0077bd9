package models

import (
	"github.com/google/uuid"
)

// swagger:enum AuditAction
type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
)

// RelatedEntity links an activity log entry to a resource that was
// involved in the action without being its main subject.
type RelatedEntity struct {
	EntityType string    `json:"entityType"`
	EntityID   uuid.UUID `json:"entityId"`
}

// ActivityLog is the audit trail. Entries are written asynchronously by
// the audit recorder, never directly by request handlers.
type ActivityLog struct {
	DefaultModel
	ActorID         uuid.UUID       `json:"actorId" gorm:"index"`
	Action          AuditAction     `json:"action"`
	ResourceType    string          `json:"resourceType" gorm:"index:idx_activity_logs_resource"`
	ResourceID      uuid.UUID       `json:"resourceId" gorm:"index:idx_activity_logs_resource"`
	RelatedEntities []RelatedEntity `json:"relatedEntities" gorm:"serializer:json"`
	Description     string          `json:"description"`
	Details         map[string]any  `json:"details" gorm:"serializer:json"`
	SourceAddress   string          `json:"sourceAddress,omitempty"`
}
