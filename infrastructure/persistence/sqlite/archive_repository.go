package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
	"cosmos-backend/pkg/utils"
)

const archiveColumns = `id, world_id, timeline_id, kind, content, created_at`

type archiveRepository struct {
	q querier
}

func (r *archiveRepository) Append(ctx context.Context, entry *entities.ArchiveEntry) error {
	var timelineID sql.NullString
	if !entry.TimelineID().IsZero() {
		timelineID = sql.NullString{String: entry.TimelineID().String(), Valid: true}
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO archive_entries (id, world_id, timeline_id, kind, content, content_folded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID().String(),
		entry.WorldID().String(),
		timelineID,
		string(entry.Kind()),
		entry.Content(),
		utils.FoldText(entry.Content()),
		toNanos(entry.CreatedAt()),
	)
	if err != nil {
		if isConstraintError(err) {
			return pkgerrors.NewConflictError("archive entry already exists").WithDetail("entry_id", entry.ID().String())
		}
		return storageError("append archive entry", err)
	}
	return nil
}

func (r *archiveRepository) GetByID(ctx context.Context, id valueobjects.ArchiveEntryID) (*entities.ArchiveEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+archiveColumns+` FROM archive_entries WHERE id = ?`, id.String())
	entry, err := scanArchiveEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("archive entry").
			WithCode(pkgerrors.CodeArchiveEntryNotFound).
			WithDetail("entry_id", id.String())
	}
	if err != nil {
		return nil, storageError("get archive entry", err)
	}
	return entry, nil
}

// Search matches the folded query as a substring. Ties on created_at fall back
// to insertion order so results are stable.
func (r *archiveRepository) Search(ctx context.Context, query ports.ArchiveQuery) ([]*entities.ArchiveEntry, error) {
	sqlText := `SELECT ` + archiveColumns + ` FROM archive_entries`
	var args []any
	if folded := utils.FoldText(query.Text); folded != "" {
		sqlText += ` WHERE instr(content_folded, ?) > 0`
		args = append(args, folded)
	}
	sqlText += ` ORDER BY created_at DESC, seq DESC LIMIT ?`
	args = append(args, query.Limit)

	return r.list(ctx, "search archive", sqlText, args...)
}

func (r *archiveRepository) ListByWorld(ctx context.Context, worldID valueobjects.WorldID) ([]*entities.ArchiveEntry, error) {
	return r.list(ctx, "list archive",
		`SELECT `+archiveColumns+` FROM archive_entries WHERE world_id = ? ORDER BY seq`,
		worldID.String(),
	)
}

func (r *archiveRepository) list(ctx context.Context, op, query string, args ...any) ([]*entities.ArchiveEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer rows.Close()

	var entries []*entities.ArchiveEntry
	for rows.Next() {
		entry, err := scanArchiveEntry(rows)
		if err != nil {
			return nil, storageError("scan archive entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(op, err)
	}
	return entries, nil
}

func scanArchiveEntry(s scanner) (*entities.ArchiveEntry, error) {
	var (
		id, worldID, kind, content string
		timelineID                 sql.NullString
		createdAt                  int64
	)
	if err := s.Scan(&id, &worldID, &timelineID, &kind, &content, &createdAt); err != nil {
		return nil, err
	}
	eid, err := valueobjects.ParseArchiveEntryID(id)
	if err != nil {
		return nil, err
	}
	wid, err := valueobjects.ParseWorldID(worldID)
	if err != nil {
		return nil, err
	}
	var tid valueobjects.TimelineID
	if timelineID.Valid {
		if tid, err = valueobjects.ParseTimelineID(timelineID.String); err != nil {
			return nil, err
		}
	}
	return entities.ReconstructArchiveEntry(eid, wid, tid, entities.ArchiveKind(kind), content, fromNanos(createdAt)), nil
}
