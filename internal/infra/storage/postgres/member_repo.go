package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/fencer/internal/core/domain"
)

// MemberRepo implements storage.MemberRepository using PostgreSQL.
type MemberRepo struct {
	db *DB
}

// NewMemberRepo creates a new PostgreSQL member repository.
func NewMemberRepo(db *DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// Add adds a member to a fence.
func (r *MemberRepo) Add(ctx context.Context, m *domain.Member) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fence_members (fence_id, user_id, role, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fence_id, user_id) DO NOTHING`,
		m.FenceID, m.UserID, m.Role, m.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyMember
	}
	return nil
}

// Get retrieves a single membership.
func (r *MemberRepo) Get(ctx context.Context, fenceID, userID string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.GetContext(ctx, &m, `
		SELECT fence_id, user_id, role, added_at
		FROM fence_members
		WHERE fence_id = $1 AND user_id = $2`, fenceID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// ListByFence retrieves all members of a fence.
func (r *MemberRepo) ListByFence(ctx context.Context, fenceID string) ([]*domain.Member, error) {
	var members []*domain.Member
	err := r.db.SelectContext(ctx, &members, `
		SELECT fence_id, user_id, role, added_at
		FROM fence_members
		WHERE fence_id = $1
		ORDER BY added_at`, fenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// Remove removes a member from a fence.
func (r *MemberRepo) Remove(ctx context.Context, fenceID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM fence_members WHERE fence_id = $1 AND user_id = $2`, fenceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotAMember
	}
	return nil
}

// CountOwners counts members with the owner role.
func (r *MemberRepo) CountOwners(ctx context.Context, fenceID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM fence_members WHERE fence_id = $1 AND role = 'owner'`, fenceID)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}
