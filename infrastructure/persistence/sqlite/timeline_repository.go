package sqlite

import (
	"context"
	"database/sql"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

const timelineColumns = `id, world_id, parent_id, title, branch_prompt, status, created_at`

type timelineRepository struct {
	q querier
}

func (r *timelineRepository) Save(ctx context.Context, timeline *entities.Timeline) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO timelines (`+timelineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		timelineArgs(timeline)...,
	)
	if err != nil {
		if isConstraintError(err) {
			return pkgerrors.NewConflictError("timeline already exists").WithDetail("timeline_id", timeline.ID().String())
		}
		return storageError("insert timeline", err)
	}
	return nil
}

// SaveBatch inserts parents before children, as the slice is ordered.
func (r *timelineRepository) SaveBatch(ctx context.Context, timelines []*entities.Timeline) error {
	for _, t := range timelines {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *timelineRepository) UpdateStatus(ctx context.Context, timelines []*entities.Timeline) error {
	for _, t := range timelines {
		if _, err := r.q.ExecContext(ctx,
			`UPDATE timelines SET status = ? WHERE id = ?`,
			t.Status().String(), t.ID().String(),
		); err != nil {
			return storageError("update timeline status", err)
		}
	}
	return nil
}

func (r *timelineRepository) GetByWorldID(ctx context.Context, worldID valueobjects.WorldID) ([]*entities.Timeline, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+timelineColumns+` FROM timelines WHERE world_id = ? ORDER BY seq`,
		worldID.String(),
	)
	if err != nil {
		return nil, storageError("list timelines", err)
	}
	defer rows.Close()

	var timelines []*entities.Timeline
	for rows.Next() {
		t, err := scanTimeline(rows)
		if err != nil {
			return nil, storageError("scan timeline", err)
		}
		timelines = append(timelines, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list timelines", err)
	}
	return timelines, nil
}

func (r *timelineRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM timelines`).Scan(&n); err != nil {
		return 0, storageError("count timelines", err)
	}
	return n, nil
}

func timelineArgs(t *entities.Timeline) []any {
	var parent sql.NullString
	if !t.IsRoot() {
		parent = sql.NullString{String: t.ParentID().String(), Valid: true}
	}
	return []any{
		t.ID().String(),
		t.WorldID().String(),
		parent,
		t.Title(),
		t.BranchPrompt(),
		t.Status().String(),
		toNanos(t.CreatedAt()),
	}
}

func scanTimeline(s scanner) (*entities.Timeline, error) {
	var (
		id, worldID, title, prompt, status string
		parent                             sql.NullString
		createdAt                          int64
	)
	if err := s.Scan(&id, &worldID, &parent, &title, &prompt, &status, &createdAt); err != nil {
		return nil, err
	}
	tid, err := valueobjects.ParseTimelineID(id)
	if err != nil {
		return nil, err
	}
	wid, err := valueobjects.ParseWorldID(worldID)
	if err != nil {
		return nil, err
	}
	var pid valueobjects.TimelineID
	if parent.Valid {
		if pid, err = valueobjects.ParseTimelineID(parent.String); err != nil {
			return nil, err
		}
	}
	st, err := valueobjects.ParseTimelineStatus(status)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructTimeline(tid, wid, pid, title, prompt, st, fromNanos(createdAt)), nil
}
