package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"cosmos-backend/application/ports"
	pkgerrors "cosmos-backend/pkg/errors"
)

type unitOfWork struct {
	db        *sql.DB
	tx        *sql.Tx
	committed bool
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return pkgerrors.NewInternalError("transaction already started")
	}
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin transaction", err)
	}
	u.tx = tx
	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return pkgerrors.NewInternalError("no transaction to commit")
	}
	if err := u.tx.Commit(); err != nil {
		return storageError("commit transaction", err)
	}
	u.committed = true
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil || u.committed {
		return nil
	}
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return storageError("rollback transaction", err)
	}
	return nil
}

func (u *unitOfWork) repos() repositories {
	if u.tx != nil {
		return repositories{q: u.tx}
	}
	return repositories{q: u.db}
}

func (u *unitOfWork) Worlds() ports.WorldRepository       { return u.repos().Worlds() }
func (u *unitOfWork) Timelines() ports.TimelineRepository { return u.repos().Timelines() }
func (u *unitOfWork) Archive() ports.ArchiveRepository    { return u.repos().Archive() }
func (u *unitOfWork) Shares() ports.ShareLedger           { return u.repos().Shares() }
func (u *unitOfWork) Blobs() ports.PackageBlobStore       { return u.repos().Blobs() }
func (u *unitOfWork) Merges() ports.MergeRepository       { return u.repos().Merges() }
