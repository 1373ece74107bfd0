package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/fencer/internal/core/domain"
)

// FenceRepo implements storage.FenceRepository using PostgreSQL.
type FenceRepo struct {
	db *DB
}

// NewFenceRepo creates a new PostgreSQL fence repository.
func NewFenceRepo(db *DB) *FenceRepo {
	return &FenceRepo{db: db}
}

// Create inserts a new fence.
func (r *FenceRepo) Create(ctx context.Context, fence *domain.Geofence) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fences (id, name, description, owner_id, latitude, longitude, radius_m, hysteresis_m, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		fence.ID, fence.Name, fence.Description, fence.OwnerID,
		fence.Latitude, fence.Longitude, fence.RadiusM, fence.HysteresisM,
		fence.CreatedAt, fence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fence: %w", err)
	}
	return nil
}

// GetByID retrieves a fence by ID. Soft-deleted fences are treated as absent.
func (r *FenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	var fence domain.Geofence
	err := r.db.GetContext(ctx, &fence, `
		SELECT id, name, description, owner_id, latitude, longitude, radius_m, hysteresis_m, created_at, updated_at, deleted_at
		FROM fences
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fence: %w", err)
	}
	return &fence, nil
}

// ListByUser retrieves all live fences the user is a member of.
func (r *FenceRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Geofence, error) {
	var fences []*domain.Geofence
	err := r.db.SelectContext(ctx, &fences, `
		SELECT f.id, f.name, f.description, f.owner_id, f.latitude, f.longitude, f.radius_m, f.hysteresis_m, f.created_at, f.updated_at, f.deleted_at
		FROM fences f
		JOIN fence_members m ON m.fence_id = f.id
		WHERE m.user_id = $1 AND f.deleted_at IS NULL
		ORDER BY f.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fences: %w", err)
	}
	return fences, nil
}

// Update updates the mutable fence fields.
func (r *FenceRepo) Update(ctx context.Context, fence *domain.Geofence) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fences
		SET name = $2, description = $3, latitude = $4, longitude = $5, radius_m = $6, hysteresis_m = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`,
		fence.ID, fence.Name, fence.Description,
		fence.Latitude, fence.Longitude, fence.RadiusM, fence.HysteresisM,
		fence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update fence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFenceNotFound
	}
	return nil
}

// SoftDelete marks a fence deleted.
func (r *FenceRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fences SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete fence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFenceNotFound
	}
	return nil
}

// PurgeDeletedBefore permanently removes long-gone fences.
func (r *FenceRepo) PurgeDeletedBefore(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM fences WHERE deleted_at IS NOT NULL AND deleted_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to purge fences: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
