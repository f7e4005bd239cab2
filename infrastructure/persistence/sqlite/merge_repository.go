package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

const mergeColumns = `id, world_id, source_package, keep_timelines, conflicts, imported_timelines, status, created_at`

type mergeRepository struct {
	q querier
}

func (r *mergeRepository) Save(ctx context.Context, record *entities.MergeRecord) error {
	// A nil keep list means every timeline was kept and is stored as NULL.
	var keep sql.NullString
	if record.KeepTimelines != nil {
		data, err := json.Marshal(record.KeepTimelines)
		if err != nil {
			return pkgerrors.Wrap(err, "encode keep list")
		}
		keep = sql.NullString{String: string(data), Valid: true}
	}
	conflicts := record.Conflicts
	if conflicts == nil {
		conflicts = []entities.MergeConflict{}
	}
	conflictJSON, err := json.Marshal(conflicts)
	if err != nil {
		return pkgerrors.Wrap(err, "encode conflicts")
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO merge_records (`+mergeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(),
		record.WorldID.String(),
		record.SourcePackage.String(),
		keep,
		string(conflictJSON),
		record.ImportedTimelines,
		string(record.Status),
		toNanos(record.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return pkgerrors.NewConflictError("merge record already exists").WithDetail("merge_id", record.ID.String())
		}
		return storageError("insert merge record", err)
	}
	return nil
}

func (r *mergeRepository) GetByID(ctx context.Context, id valueobjects.MergeID) (*entities.MergeRecord, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+mergeColumns+` FROM merge_records WHERE id = ?`, id.String())
	record, err := scanMergeRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("merge record").
			WithCode(pkgerrors.CodeMergeNotFound).
			WithDetail("merge_id", id.String())
	}
	if err != nil {
		return nil, storageError("get merge record", err)
	}
	return record, nil
}

func (r *mergeRepository) List(ctx context.Context) ([]*entities.MergeRecord, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+mergeColumns+` FROM merge_records ORDER BY seq`)
	if err != nil {
		return nil, storageError("list merge records", err)
	}
	defer rows.Close()

	var records []*entities.MergeRecord
	for rows.Next() {
		record, err := scanMergeRecord(rows)
		if err != nil {
			return nil, storageError("scan merge record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list merge records", err)
	}
	return records, nil
}

func scanMergeRecord(s scanner) (*entities.MergeRecord, error) {
	var (
		id, worldID, source, conflicts, status string
		keep                                   sql.NullString
		imported                               int
		createdAt                              int64
	)
	if err := s.Scan(&id, &worldID, &source, &keep, &conflicts, &imported, &status, &createdAt); err != nil {
		return nil, err
	}
	mid, err := valueobjects.ParseMergeID(id)
	if err != nil {
		return nil, err
	}
	wid, err := valueobjects.ParseWorldID(worldID)
	if err != nil {
		return nil, err
	}
	pkgName, err := valueobjects.ParsePackageName(source)
	if err != nil {
		return nil, err
	}
	record := &entities.MergeRecord{
		ID:                mid,
		WorldID:           wid,
		SourcePackage:     pkgName,
		ImportedTimelines: imported,
		Status:            entities.MergeStatus(status),
		CreatedAt:         fromNanos(createdAt),
	}
	if keep.Valid {
		if err := json.Unmarshal([]byte(keep.String), &record.KeepTimelines); err != nil {
			return nil, fmt.Errorf("decode keep list: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(conflicts), &record.Conflicts); err != nil {
		return nil, fmt.Errorf("decode conflicts: %w", err)
	}
	return record, nil
}
