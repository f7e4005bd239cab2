package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
	"cosmos-backend/pkg/utils"
)

type archiveItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	GSI1PK        string `dynamodbav:"GSI1PK"`
	GSI1SK        string `dynamodbav:"GSI1SK"`
	GSI2PK        string `dynamodbav:"GSI2PK"`
	GSI2SK        string `dynamodbav:"GSI2SK"`
	EntityType    string `dynamodbav:"EntityType"`
	EntryID       string `dynamodbav:"EntryID"`
	WorldID       string `dynamodbav:"WorldID"`
	TimelineID    string `dynamodbav:"TimelineID,omitempty"`
	Kind          string `dynamodbav:"Kind"`
	Content       string `dynamodbav:"Content"`
	ContentFolded string `dynamodbav:"ContentFolded"`
	CreatedAt     int64  `dynamodbav:"CreatedAt"`
}

type archiveRepository struct {
	repositories
}

func (r *archiveRepository) Append(ctx context.Context, entry *entities.ArchiveEntry) error {
	order := sortKey(entry.CreatedAt(), entry.ID().String())
	it := archiveItem{
		PK:            entryPK(entry.ID().String()),
		SK:            skMetadata,
		GSI1PK:        gsiArchive,
		GSI1SK:        order,
		GSI2PK:        archiveByWorld(entry.WorldID().String()),
		GSI2SK:        order,
		EntityType:    entityEntry,
		EntryID:       entry.ID().String(),
		WorldID:       entry.WorldID().String(),
		Kind:          string(entry.Kind()),
		Content:       entry.Content(),
		ContentFolded: utils.FoldText(entry.Content()),
		CreatedAt:     entry.CreatedAt().UnixNano(),
	}
	if !entry.TimelineID().IsZero() {
		it.TimelineID = entry.TimelineID().String()
	}
	op, err := r.putNew(it, func() error {
		return pkgerrors.NewConflictError("archive entry already exists").WithDetail("entry_id", entry.ID().String())
	})
	if err != nil {
		return err
	}
	return r.w.write(ctx, op)
}

func (r *archiveRepository) GetByID(ctx context.Context, id valueobjects.ArchiveEntryID) (*entities.ArchiveEntry, error) {
	var it archiveItem
	found, err := r.getItem(ctx, "get archive entry", keyOf(entryPK(id.String()), skMetadata), &it)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.NewNotFoundError("archive entry").
			WithCode(pkgerrors.CodeArchiveEntryNotFound).
			WithDetail("entry_id", id.String())
	}
	return it.toEntity()
}

// Search walks the archive index newest first, filtering on the folded
// content server side, until limit entries have matched.
func (r *archiveRepository) Search(ctx context.Context, query ports.ArchiveQuery) ([]*entities.ArchiveEntry, error) {
	if query.Limit <= 0 {
		return nil, nil
	}
	q := indexQuery{index: r.cfg.GSI1IndexName, key: gsi1(gsiArchive)}
	if folded := utils.FoldText(query.Text); folded != "" {
		filter := expression.Name("ContentFolded").Contains(folded)
		q.filter = &filter
	}

	var entries []*entities.ArchiveEntry
	err := r.query(ctx, "search archive", q, func(av item) (bool, error) {
		entry, err := decodeEntry(av)
		if err != nil {
			return false, err
		}
		entries = append(entries, entry)
		return len(entries) < query.Limit, nil
	})
	return entries, err
}

func (r *archiveRepository) ListByWorld(ctx context.Context, worldID valueobjects.WorldID) ([]*entities.ArchiveEntry, error) {
	var entries []*entities.ArchiveEntry
	err := r.query(ctx, "list archive", indexQuery{
		index:   r.cfg.GSI2IndexName,
		key:     expression.Key("GSI2PK").Equal(expression.Value(archiveByWorld(worldID.String()))),
		forward: true,
	}, func(av item) (bool, error) {
		entry, err := decodeEntry(av)
		if err != nil {
			return false, err
		}
		entries = append(entries, entry)
		return true, nil
	})
	return entries, err
}

func decodeEntry(av item) (*entities.ArchiveEntry, error) {
	var it archiveItem
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, pkgerrors.NewStorageError("decode archive entry", err)
	}
	return it.toEntity()
}

func (it archiveItem) toEntity() (*entities.ArchiveEntry, error) {
	id, err := valueobjects.ParseArchiveEntryID(it.EntryID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode archive entry", err)
	}
	worldID, err := valueobjects.ParseWorldID(it.WorldID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode archive entry", err)
	}
	var timelineID valueobjects.TimelineID
	if it.TimelineID != "" {
		if timelineID, err = valueobjects.ParseTimelineID(it.TimelineID); err != nil {
			return nil, pkgerrors.NewStorageError("decode archive entry", err)
		}
	}
	return entities.ReconstructArchiveEntry(id, worldID, timelineID, entities.ArchiveKind(it.Kind), it.Content, fromNanos(it.CreatedAt)), nil
}
