package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

type mergeItem struct {
	PK                string                   `dynamodbav:"PK"`
	SK                string                   `dynamodbav:"SK"`
	GSI1PK            string                   `dynamodbav:"GSI1PK"`
	GSI1SK            string                   `dynamodbav:"GSI1SK"`
	EntityType        string                   `dynamodbav:"EntityType"`
	MergeID           string                   `dynamodbav:"MergeID"`
	WorldID           string                   `dynamodbav:"WorldID"`
	SourcePackage     string                   `dynamodbav:"SourcePackage"`
	KeepTimelines     []string                 `dynamodbav:"KeepTimelines,omitempty"`
	Conflicts         []entities.MergeConflict `dynamodbav:"Conflicts"`
	ImportedTimelines int                      `dynamodbav:"ImportedTimelines"`
	Status            string                   `dynamodbav:"Status"`
	CreatedAt         int64                    `dynamodbav:"CreatedAt"`
}

type mergeRepository struct {
	repositories
}

func (r *mergeRepository) Save(ctx context.Context, record *entities.MergeRecord) error {
	conflicts := record.Conflicts
	if conflicts == nil {
		conflicts = []entities.MergeConflict{}
	}
	op, err := r.putNew(mergeItem{
		PK:                mergePK(record.ID.String()),
		SK:                skMetadata,
		GSI1PK:            gsiMerges,
		GSI1SK:            sortKey(record.CreatedAt, record.ID.String()),
		EntityType:        entityMerge,
		MergeID:           record.ID.String(),
		WorldID:           record.WorldID.String(),
		SourcePackage:     record.SourcePackage.String(),
		KeepTimelines:     record.KeepTimelines,
		Conflicts:         conflicts,
		ImportedTimelines: record.ImportedTimelines,
		Status:            string(record.Status),
		CreatedAt:         record.CreatedAt.UnixNano(),
	}, func() error {
		return pkgerrors.NewConflictError("merge record already exists").WithDetail("merge_id", record.ID.String())
	})
	if err != nil {
		return err
	}
	return r.w.write(ctx, op)
}

func (r *mergeRepository) GetByID(ctx context.Context, id valueobjects.MergeID) (*entities.MergeRecord, error) {
	var it mergeItem
	found, err := r.getItem(ctx, "get merge record", keyOf(mergePK(id.String()), skMetadata), &it)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.NewNotFoundError("merge record").
			WithCode(pkgerrors.CodeMergeNotFound).
			WithDetail("merge_id", id.String())
	}
	return it.toEntity()
}

func (r *mergeRepository) List(ctx context.Context) ([]*entities.MergeRecord, error) {
	var records []*entities.MergeRecord
	err := r.query(ctx, "list merge records", indexQuery{
		index:   r.cfg.GSI1IndexName,
		key:     gsi1(gsiMerges),
		forward: true,
	}, func(av item) (bool, error) {
		var it mergeItem
		if err := attributevalue.UnmarshalMap(av, &it); err != nil {
			return false, pkgerrors.NewStorageError("decode merge record", err)
		}
		record, err := it.toEntity()
		if err != nil {
			return false, err
		}
		records = append(records, record)
		return true, nil
	})
	return records, err
}

func (it mergeItem) toEntity() (*entities.MergeRecord, error) {
	id, err := valueobjects.ParseMergeID(it.MergeID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode merge record", err)
	}
	worldID, err := valueobjects.ParseWorldID(it.WorldID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode merge record", err)
	}
	source, err := valueobjects.ParsePackageName(it.SourcePackage)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode merge record", err)
	}
	keep := it.KeepTimelines
	if len(keep) == 0 {
		keep = nil
	}
	return &entities.MergeRecord{
		ID:                id,
		WorldID:           worldID,
		SourcePackage:     source,
		KeepTimelines:     keep,
		Conflicts:         it.Conflicts,
		ImportedTimelines: it.ImportedTimelines,
		Status:            entities.MergeStatus(it.Status),
		CreatedAt:         fromNanos(it.CreatedAt),
	}, nil
}
