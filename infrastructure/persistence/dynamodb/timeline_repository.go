package dynamodb

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

type timelineItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	EntityType   string `dynamodbav:"EntityType"`
	TimelineID   string `dynamodbav:"TimelineID"`
	WorldID      string `dynamodbav:"WorldID"`
	ParentID     string `dynamodbav:"ParentID,omitempty"`
	Title        string `dynamodbav:"Title"`
	BranchPrompt string `dynamodbav:"BranchPrompt"`
	Status       string `dynamodbav:"Status"`
	CreatedAt    int64  `dynamodbav:"CreatedAt"`
}

type timelineRepository struct {
	repositories
}

func (r *timelineRepository) Save(ctx context.Context, t *entities.Timeline) error {
	it := timelineItem{
		PK:           worldPK(t.WorldID().String()),
		SK:           timelineSK(t.CreatedAt(), t.ID().String()),
		GSI1PK:       gsiTimelines,
		GSI1SK:       sortKey(t.CreatedAt(), t.ID().String()),
		EntityType:   entityTimeline,
		TimelineID:   t.ID().String(),
		WorldID:      t.WorldID().String(),
		Title:        t.Title(),
		BranchPrompt: t.BranchPrompt(),
		Status:       t.Status().String(),
		CreatedAt:    t.CreatedAt().UnixNano(),
	}
	if !t.IsRoot() {
		it.ParentID = t.ParentID().String()
	}
	op, err := r.putNew(it, func() error {
		return pkgerrors.NewConflictError("timeline already exists").WithDetail("timeline_id", t.ID().String())
	})
	if err != nil {
		return err
	}
	return r.w.write(ctx, op)
}

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
		op, err := r.updateExisting(
			keyOf(worldPK(t.WorldID().String()), timelineSK(t.CreatedAt(), t.ID().String())),
			expression.Set(expression.Name("Status"), expression.Value(t.Status().String())),
			func() error {
				return pkgerrors.NewNotFoundError("timeline").
					WithCode(pkgerrors.CodeTimelineNotFound).
					WithDetail("timeline_id", t.ID().String())
			},
		)
		if err != nil {
			return err
		}
		if err := r.w.write(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func (r *timelineRepository) GetByWorldID(ctx context.Context, worldID valueobjects.WorldID) ([]*entities.Timeline, error) {
	var timelines []*entities.Timeline
	err := r.query(ctx, "list timelines", indexQuery{
		key: expression.Key("PK").Equal(expression.Value(worldPK(worldID.String()))).
			And(expression.Key("SK").BeginsWith("TIMELINE#")),
		forward: true,
	}, func(av item) (bool, error) {
		var it timelineItem
		if err := attributevalue.UnmarshalMap(av, &it); err != nil {
			return false, pkgerrors.NewStorageError("decode timeline", err)
		}
		t, err := it.toEntity()
		if err != nil {
			return false, err
		}
		timelines = append(timelines, t)
		return true, nil
	})
	return timelines, err
}

func (r *timelineRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, "count timelines", gsiTimelines)
}

func (it timelineItem) toEntity() (*entities.Timeline, error) {
	id, err := valueobjects.ParseTimelineID(it.TimelineID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode timeline", err)
	}
	worldID, err := valueobjects.ParseWorldID(it.WorldID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode timeline", err)
	}
	var parentID valueobjects.TimelineID
	if p := strings.TrimSpace(it.ParentID); p != "" {
		if parentID, err = valueobjects.ParseTimelineID(p); err != nil {
			return nil, pkgerrors.NewStorageError("decode timeline", err)
		}
	}
	status, err := valueobjects.ParseTimelineStatus(it.Status)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode timeline", err)
	}
	return entities.ReconstructTimeline(id, worldID, parentID, it.Title, it.BranchPrompt, status, fromNanos(it.CreatedAt)), nil
}
