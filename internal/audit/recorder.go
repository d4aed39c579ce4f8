// Package audit persists one structured record per state-changing action
// and mirrors it to the application log.
package audit

import (
	"context"
	"time"

	"github.com/hrops/casetrack/internal/domain"
	"github.com/hrops/casetrack/internal/pkg/ctxlog"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one audit record.
type Entry struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder writes audit entries to the audit_log table. Audit failures are
// logged, never propagated: they must not roll back the action they record.
type Recorder struct {
	db *pgxpool.Pool
}

func NewRecorder(db *pgxpool.Pool) *Recorder {
	return &Recorder{db: db}
}

// Record persists one audit entry for the actor's action.
func (r *Recorder) Record(ctx context.Context, actor domain.Actor, action, entityKind, entityID, summary string) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("audit",
		"actor_id", actor.ID,
		"action", action,
		"entity_kind", entityKind,
		"entity_id", entityID,
		"summary", summary,
	)

	if r.db == nil {
		return
	}

	query := `
		INSERT INTO audit_log (actor_id, actor_name, action, entity_kind, entity_id, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query, actor.ID, actor.Name, action, entityKind, entityID, summary); err != nil {
		logger.Error("failed to persist audit entry",
			"action", action,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// List returns the most recent audit entries, newest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, actor_id, actor_name, action, entity_kind, entity_id, summary, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &e.Action, &e.EntityKind, &e.EntityID, &e.Summary, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
