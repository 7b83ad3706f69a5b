package domain

import "time"

// ChangeOperation describes a persisted activity operation for an entity.
type ChangeOperation string

// ChangeOperation values used by the activity ledger.
const (
	ChangeOperationCreate   ChangeOperation = "create"
	ChangeOperationUpdate   ChangeOperation = "update"
	ChangeOperationMove     ChangeOperation = "move"
	ChangeOperationRecommit ChangeOperation = "recommit"
	ChangeOperationComplete ChangeOperation = "complete"
	ChangeOperationPromote  ChangeOperation = "promote"
	ChangeOperationDelete   ChangeOperation = "delete"
)

// EntityType identifies the entity class a change event refers to.
type EntityType string

// EntityType values.
const (
	EntityTypeProject     EntityType = "project"
	EntityTypeStream      EntityType = "stream"
	EntityTypeDeliverable EntityType = "deliverable"
	EntityTypeNote        EntityType = "note"
	EntityTypeTrack       EntityType = "track"
	EntityTypeUser        EntityType = "user"
)

// ChangeEvent represents a single activity-log entry for a project entity.
type ChangeEvent struct {
	ID         int64
	ProjectID  string
	EntityType EntityType
	EntityID   string
	Operation  ChangeOperation
	ActorID    string
	Metadata   map[string]string
	OccurredAt time.Time
}
