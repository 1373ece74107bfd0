package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/fencer/internal/core/domain"
)

// AuditRepo implements storage.AuditRepository using PostgreSQL.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new PostgreSQL audit repository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Record appends an audit event.
func (r *AuditRepo) Record(ctx context.Context, e *domain.AuditEvent) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_id, action, subject_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.ActorID, e.Action, e.SubjectID, raw, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListBySubject retrieves events for a subject, newest first.
func (r *AuditRepo) ListBySubject(
	ctx context.Context,
	subjectID string,
	limit int,
) ([]*domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_id, action, subject_id, metadata, created_at
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []*domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var raw []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.SubjectID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &e.Metadata)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
