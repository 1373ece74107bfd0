package domain

import "time"

// AuditAction identifies what happened.
type AuditAction string

const (
	AuditFenceCreated   AuditAction = "fence_created"
	AuditFenceUpdated   AuditAction = "fence_updated"
	AuditFenceDeleted   AuditAction = "fence_deleted"
	AuditMemberAdded    AuditAction = "member_added"
	AuditMemberRemoved  AuditAction = "member_removed"
	AuditSessionRevoked AuditAction = "session_revoked"
)

// AuditEvent is an append-only record of a state change.
type AuditEvent struct {
	ID        string         `json:"id" db:"id"`
	ActorID   string         `json:"actor_id" db:"actor_id"`
	Action    AuditAction    `json:"action" db:"action"`
	SubjectID string         `json:"subject_id" db:"subject_id"`
	Metadata  map[string]any `json:"metadata,omitempty" db:"-"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
