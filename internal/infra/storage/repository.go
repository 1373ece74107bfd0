package storage

import (
	"context"
	"time"

	"github.com/vietddude/fencer/internal/core/domain"
)

// FenceRepository handles geofence storage operations
type FenceRepository interface {
	// Create inserts a new fence
	Create(ctx context.Context, fence *domain.Geofence) error

	// GetByID retrieves a fence by ID (soft-deleted fences are not returned)
	GetByID(ctx context.Context, id string) (*domain.Geofence, error)

	// ListByUser retrieves all fences the user is a member of
	ListByUser(ctx context.Context, userID string) ([]*domain.Geofence, error)

	// Update updates mutable fence fields
	Update(ctx context.Context, fence *domain.Geofence) error

	// SoftDelete marks a fence deleted
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// PurgeDeletedBefore permanently removes fences soft-deleted before the threshold
	PurgeDeletedBefore(ctx context.Context, threshold time.Time) (int64, error)
}

// MemberRepository handles fence membership operations
type MemberRepository interface {
	// Add adds a member to a fence
	Add(ctx context.Context, m *domain.Member) error

	// Get retrieves a single membership
	Get(ctx context.Context, fenceID, userID string) (*domain.Member, error)

	// ListByFence retrieves all members of a fence
	ListByFence(ctx context.Context, fenceID string) ([]*domain.Member, error)

	// Remove removes a member from a fence
	Remove(ctx context.Context, fenceID, userID string) error

	// CountOwners counts members with the owner role
	CountOwners(ctx context.Context, fenceID string) (int, error)
}

// UserRepository handles user account operations
type UserRepository interface {
	// Create inserts a new user
	Create(ctx context.Context, u *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SessionRepository handles session storage operations
type SessionRepository interface {
	// Create inserts a new session
	Create(ctx context.Context, s *domain.Session) error

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// Rotate swaps the refresh token ID and extends expiry
	Rotate(ctx context.Context, id, newRefreshTokenID string, expiresAt time.Time) error

	// Revoke marks a session revoked
	Revoke(ctx context.Context, id string) error

	// DeleteExpiredBefore removes sessions that expired or were revoked before the threshold
	DeleteExpiredBefore(ctx context.Context, threshold time.Time) (int64, error)
}

// AuditRepository handles the append-only audit trail
type AuditRepository interface {
	// Record appends an audit event
	Record(ctx context.Context, e *domain.AuditEvent) error

	// ListBySubject retrieves events for a subject, newest first
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]*domain.AuditEvent, error)
}
