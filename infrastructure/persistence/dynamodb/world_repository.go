package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

type worldItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	WorldID    string `dynamodbav:"WorldID"`
	Name       string `dynamodbav:"Name"`
	SeedPrompt string `dynamodbav:"SeedPrompt"`
	Warmth     int    `dynamodbav:"Warmth"`
	MapLayout  string `dynamodbav:"MapLayout"`
	CreatedAt  int64  `dynamodbav:"CreatedAt"`
}

type worldRepository struct {
	repositories
}

func (r *worldRepository) Save(ctx context.Context, world *entities.World) error {
	op, err := r.putNew(worldItem{
		PK:         worldPK(world.ID().String()),
		SK:         skMetadata,
		GSI1PK:     gsiWorlds,
		GSI1SK:     sortKey(world.CreatedAt(), world.ID().String()),
		EntityType: entityWorld,
		WorldID:    world.ID().String(),
		Name:       world.Name(),
		SeedPrompt: world.SeedPrompt(),
		Warmth:     world.Warmth().Int(),
		MapLayout:  string(world.MapLayout().Bytes()),
		CreatedAt:  world.CreatedAt().UnixNano(),
	}, func() error {
		return pkgerrors.NewConflictError("world already exists").WithDetail("world_id", world.ID().String())
	})
	if err != nil {
		return err
	}
	return r.w.write(ctx, op)
}

func (r *worldRepository) UpdateMapLayout(ctx context.Context, world *entities.World) error {
	op, err := r.updateExisting(
		keyOf(worldPK(world.ID().String()), skMetadata),
		expression.Set(expression.Name("MapLayout"), expression.Value(string(world.MapLayout().Bytes()))),
		func() error { return worldNotFound(world.ID()) },
	)
	if err != nil {
		return err
	}
	return r.w.write(ctx, op)
}

func (r *worldRepository) GetByID(ctx context.Context, id valueobjects.WorldID) (*entities.World, error) {
	var it worldItem
	found, err := r.getItem(ctx, "get world", keyOf(worldPK(id.String()), skMetadata), &it)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, worldNotFound(id)
	}
	return it.toEntity()
}

func (r *worldRepository) List(ctx context.Context) ([]*entities.World, error) {
	var worlds []*entities.World
	err := r.query(ctx, "list worlds", indexQuery{
		index:   r.cfg.GSI1IndexName,
		key:     gsi1(gsiWorlds),
		forward: true,
	}, func(av item) (bool, error) {
		var it worldItem
		if err := attributevalue.UnmarshalMap(av, &it); err != nil {
			return false, pkgerrors.NewStorageError("decode world", err)
		}
		w, err := it.toEntity()
		if err != nil {
			return false, err
		}
		worlds = append(worlds, w)
		return true, nil
	})
	return worlds, err
}

func (r *worldRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, "count worlds", gsiWorlds)
}

func (it worldItem) toEntity() (*entities.World, error) {
	id, err := valueobjects.ParseWorldID(it.WorldID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode world", err)
	}
	warmth, err := valueobjects.NewWarmth(it.Warmth)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode world", err)
	}
	layout, err := valueobjects.NewMapLayout([]byte(it.MapLayout))
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode world", err)
	}
	return entities.ReconstructWorld(id, it.Name, it.SeedPrompt, warmth, layout, fromNanos(it.CreatedAt)), nil
}

func worldNotFound(id valueobjects.WorldID) error {
	return pkgerrors.NewNotFoundError("world").
		WithCode(pkgerrors.CodeWorldNotFound).
		WithDetail("world_id", id.String())
}
