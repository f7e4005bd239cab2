package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/ports"
	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/aggregates"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
	pkgerrors "cosmos-backend/pkg/errors"
)

// ExportPackageHandler exports worlds as share packages
type ExportPackageHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
	codec      ports.PackageCodec
	eventBus   ports.EventBus
	config     *config.DomainConfig
	logger     *zap.Logger
}

// NewExportPackageHandler creates a new export handler
func NewExportPackageHandler(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	codec ports.PackageCodec,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ExportPackageHandler {
	return &ExportPackageHandler{
		transactor: transactor,
		locker:     locker,
		codec:      codec,
		eventBus:   eventBus,
		config:     cfg,
		logger:     logger,
	}
}

// Handle snapshots the world under its exclusive lock, then writes the blob
// and the ledger record in one transaction. A taken name fails with
// PACKAGE_NAME_TAKEN and leaves nothing behind.
func (h *ExportPackageHandler) Handle(ctx context.Context, cmd commands.ExportPackageCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}
	name, err := valueobjects.ParsePackageName(cmd.PackageName)
	if err != nil {
		return err
	}
	visibility, err := valueobjects.ParseVisibility(cmd.Visibility)
	if err != nil {
		return err
	}
	mode, err := valueobjects.ParseWisdomMode(cmd.WisdomMode)
	if err != nil {
		return err
	}
	credits, err := h.credits(cmd.Contributors)
	if err != nil {
		return err
	}

	unlock, err := h.locker.Lock(ctx, worldID)
	if err != nil {
		return err
	}
	defer unlock()

	var record *entities.SharePackage
	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		world, forest, err := loadForest(ctx, tx, worldID)
		if err != nil {
			return err
		}

		now := time.Now()
		pkg := aggregates.BuildPackage(world, forest, visibility, mode, credits, now)
		blob, err := h.codec.Encode(pkg)
		if err != nil {
			return fmt.Errorf("failed to encode package: %w", err)
		}

		rec := entities.NewSharePackage(name, worldID, visibility, mode, credits, pkg.Manifest, int64(len(blob)), now)
		if err := tx.Blobs().Put(ctx, name, blob); err != nil {
			return err
		}
		if err := tx.Shares().Publish(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("Package published",
		zap.String("package", name.String()),
		zap.String("world_id", worldID.String()),
		zap.String("visibility", visibility.String()),
		zap.Int64("size_bytes", record.SizeBytes()),
	)
	publishCommitted(ctx, h.eventBus, h.logger, record)
	return nil
}

func (h *ExportPackageHandler) credits(contributors []commands.Contributor) ([]valueobjects.Credit, error) {
	if len(contributors) == 0 {
		return []valueobjects.Credit{{Name: h.config.DefaultCreditName, Role: h.config.DefaultCreditRole}}, nil
	}
	credits := make([]valueobjects.Credit, 0, len(contributors))
	for _, c := range contributors {
		credit, err := valueobjects.NewCredit(c.Name, c.Role)
		if err != nil {
			return nil, err
		}
		credits = append(credits, credit)
	}
	return credits, nil
}

// ImportPackageHandler materialises published packages as new worlds
type ImportPackageHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
	codec      ports.PackageCodec
	eventBus   ports.EventBus
	config     *config.DomainConfig
	logger     *zap.Logger
}

// NewImportPackageHandler creates a new import handler
func NewImportPackageHandler(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	codec ports.PackageCodec,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ImportPackageHandler {
	return &ImportPackageHandler{
		transactor: transactor,
		locker:     locker,
		codec:      codec,
		eventBus:   eventBus,
		config:     cfg,
		logger:     logger,
	}
}

// Handle checks the ledger inside the same transaction that writes the new
// world, so a revoke that commits first always wins.
func (h *ImportPackageHandler) Handle(ctx context.Context, cmd commands.ImportPackageCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}
	mergeID, err := valueobjects.ParseMergeID(cmd.MergeID)
	if err != nil {
		return err
	}
	name, err := valueobjects.ParsePackageName(cmd.PackageName)
	if err != nil {
		return err
	}

	unlock, err := h.locker.Lock(ctx, worldID)
	if err != nil {
		return err
	}
	defer unlock()

	var (
		materialized *aggregates.Materialized
		merge        *entities.MergeRecord
	)
	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		record, err := tx.Shares().GetByName(ctx, name)
		if err != nil {
			return err
		}
		if record.IsRevoked() {
			return pkgerrors.NewForbiddenError("package has been revoked").
				WithCode(pkgerrors.CodePackageRevoked).
				WithDetail("package_name", name.String())
		}

		blob, err := tx.Blobs().Get(ctx, name)
		if err != nil {
			return err
		}
		pkg, err := h.codec.Decode(blob)
		if err != nil {
			return err
		}

		now := time.Now()
		m, err := pkg.Materialize(worldID, cmd.KeepTimelines, now, h.config)
		if err != nil {
			return err
		}
		if err := tx.Worlds().Save(ctx, m.World); err != nil {
			return fmt.Errorf("failed to save imported world: %w", err)
		}
		if err := tx.Timelines().SaveBatch(ctx, m.Forest.Timelines()); err != nil {
			return fmt.Errorf("failed to save imported timelines: %w", err)
		}

		rec := entities.NewMergeRecord(mergeID, worldID, name, cmd.KeepTimelines, m.Conflicts, m.Imported, now)
		if err := tx.Merges().Save(ctx, rec); err != nil {
			return fmt.Errorf("failed to save merge record: %w", err)
		}
		materialized, merge = m, rec
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("Package imported",
		zap.String("package", name.String()),
		zap.String("world_id", worldID.String()),
		zap.Int("timelines", merge.ImportedTimelines),
		zap.Int("conflicts", len(merge.Conflicts)),
	)

	world := materialized.World
	publishCommitted(ctx, h.eventBus, h.logger, world)
	imported := events.NewPackageImported(name, worldID, materialized.Forest.Root().ID(), world.Name(), merge.ImportedTimelines, merge.CreatedAt)
	if err := h.eventBus.Publish(ctx, imported); err != nil {
		h.logger.Warn("Failed to publish event", zap.Error(err))
	}
	return nil
}

// RevokePackageHandler revokes published packages
type RevokePackageHandler struct {
	transactor ports.Transactor
	eventBus   ports.EventBus
	logger     *zap.Logger
}

// NewRevokePackageHandler creates a new revoke handler
func NewRevokePackageHandler(transactor ports.Transactor, eventBus ports.EventBus, logger *zap.Logger) *RevokePackageHandler {
	return &RevokePackageHandler{
		transactor: transactor,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle sets the revoked flag. Revoking twice succeeds without a second write.
func (h *RevokePackageHandler) Handle(ctx context.Context, cmd commands.RevokePackageCommand) error {
	name, err := valueobjects.ParsePackageName(cmd.PackageName)
	if err != nil {
		return err
	}

	var record *entities.SharePackage
	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		rec, err := tx.Shares().GetByName(ctx, name)
		if err != nil {
			return err
		}
		if rec.Revoke(time.Now()) {
			if err := tx.Shares().MarkRevoked(ctx, rec); err != nil {
				return fmt.Errorf("failed to revoke package: %w", err)
			}
		}
		record = rec
		return nil
	})
	if err != nil {
		return err
	}

	publishCommitted(ctx, h.eventBus, h.logger, record)
	return nil
}
