package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

const worldColumns = `id, name, seed_prompt, warmth, map_layout, created_at`

type worldRepository struct {
	q querier
}

func (r *worldRepository) Save(ctx context.Context, world *entities.World) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO worlds (`+worldColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		world.ID().String(),
		world.Name(),
		world.SeedPrompt(),
		world.Warmth().Int(),
		string(world.MapLayout().Bytes()),
		toNanos(world.CreatedAt()),
	)
	if err != nil {
		if isConstraintError(err) {
			return pkgerrors.NewConflictError("world already exists").WithDetail("world_id", world.ID().String())
		}
		return storageError("insert world", err)
	}
	return nil
}

func (r *worldRepository) UpdateMapLayout(ctx context.Context, world *entities.World) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE worlds SET map_layout = ? WHERE id = ?`,
		string(world.MapLayout().Bytes()), world.ID().String(),
	)
	if err != nil {
		return storageError("update map layout", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return worldNotFound(world.ID())
	}
	return nil
}

func (r *worldRepository) GetByID(ctx context.Context, id valueobjects.WorldID) (*entities.World, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+worldColumns+` FROM worlds WHERE id = ?`, id.String())
	world, err := scanWorld(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, worldNotFound(id)
	}
	if err != nil {
		return nil, storageError("get world", err)
	}
	return world, nil
}

func (r *worldRepository) List(ctx context.Context) ([]*entities.World, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+worldColumns+` FROM worlds ORDER BY seq`)
	if err != nil {
		return nil, storageError("list worlds", err)
	}
	defer rows.Close()

	var worlds []*entities.World
	for rows.Next() {
		world, err := scanWorld(rows)
		if err != nil {
			return nil, storageError("scan world", err)
		}
		worlds = append(worlds, world)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list worlds", err)
	}
	return worlds, nil
}

func (r *worldRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM worlds`).Scan(&n); err != nil {
		return 0, storageError("count worlds", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorld(s scanner) (*entities.World, error) {
	var (
		id, name, seed, layout string
		warmth                 int
		createdAt              int64
	)
	if err := s.Scan(&id, &name, &seed, &warmth, &layout, &createdAt); err != nil {
		return nil, err
	}
	worldID, err := valueobjects.ParseWorldID(id)
	if err != nil {
		return nil, err
	}
	w, err := valueobjects.NewWarmth(warmth)
	if err != nil {
		return nil, err
	}
	mapLayout, err := valueobjects.NewMapLayout([]byte(layout))
	if err != nil {
		return nil, err
	}
	return entities.ReconstructWorld(worldID, name, seed, w, mapLayout, fromNanos(createdAt)), nil
}

func worldNotFound(id valueobjects.WorldID) error {
	return pkgerrors.NewNotFoundError("world").
		WithCode(pkgerrors.CodeWorldNotFound).
		WithDetail("world_id", id.String())
}
