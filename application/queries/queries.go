package queries

import (
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
	"cosmos-backend/pkg/utils"
)

const (
	// DefaultArchiveLimit is the number of entries returned when no limit is given
	DefaultArchiveLimit = 100
	// MaxArchiveLimit caps a single archive search
	MaxArchiveLimit = 500
)

// GetWorldQuery reads one world
type GetWorldQuery struct {
	WorldID string `json:"world_id" validate:"required,uuid"`
}

func (q GetWorldQuery) Validate() error { return utils.ValidateStruct(q) }

// ListWorldsQuery lists every world with the storage report
type ListWorldsQuery struct{}

func (q ListWorldsQuery) Validate() error { return nil }

// StorageReportQuery counts stored worlds and timelines
type StorageReportQuery struct{}

func (q StorageReportQuery) Validate() error { return nil }

// ListTimelinesQuery lists a world's timelines depth first
type ListTimelinesQuery struct {
	WorldID string `json:"world_id" validate:"required,uuid"`
}

func (q ListTimelinesQuery) Validate() error { return utils.ValidateStruct(q) }

// EternalSeedQuery builds the full local backup of a world
type EternalSeedQuery struct {
	WorldID string `json:"world_id" validate:"required,uuid"`
}

func (q EternalSeedQuery) Validate() error { return utils.ValidateStruct(q) }

// SearchArchiveQuery searches the archive across all worlds
type SearchArchiveQuery struct {
	Text  string `json:"query" validate:"max=500"`
	Limit int    `json:"limit" validate:"min=0,max=500"`
}

func (q SearchArchiveQuery) Validate() error { return utils.ValidateStruct(q) }

// EffectiveLimit applies the default limit
func (q SearchArchiveQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultArchiveLimit
	}
	return q.Limit
}

// GetReflectionQuery reads back a recorded reflection. A nil Warmth means
// the world's own warmth decides the tone.
type GetReflectionQuery struct {
	EntryID string `json:"entry_id" validate:"required,uuid"`
	Warmth  *int   `json:"warmth,omitempty"`
}

func (q GetReflectionQuery) Validate() error {
	if err := utils.ValidateStruct(q); err != nil {
		return err
	}
	if q.Warmth != nil {
		_, err := valueobjects.NewWarmth(*q.Warmth)
		return err
	}
	return nil
}

// GetSharePackageQuery reads one ledger record
type GetSharePackageQuery struct {
	PackageName string `json:"package_name"`
}

func (q GetSharePackageQuery) Validate() error { return validatePackageName(q.PackageName) }

// ListSharesQuery lists the ledger, revoked records included
type ListSharesQuery struct{}

func (q ListSharesQuery) Validate() error { return nil }

// DownloadPackageQuery reads a package blob
type DownloadPackageQuery struct {
	PackageName string `json:"package_name"`
}

func (q DownloadPackageQuery) Validate() error { return validatePackageName(q.PackageName) }

// ListNetworkQuery lists the listed packages of this installation and its peers
type ListNetworkQuery struct{}

func (q ListNetworkQuery) Validate() error { return nil }

// GetMergeRecordQuery reads one import record
type GetMergeRecordQuery struct {
	MergeID string `json:"merge_id" validate:"required,uuid"`
}

func (q GetMergeRecordQuery) Validate() error { return utils.ValidateStruct(q) }

// ListMergesQuery lists import records in creation order
type ListMergesQuery struct{}

func (q ListMergesQuery) Validate() error { return nil }

func validatePackageName(name string) error {
	if name == "" {
		return pkgerrors.NewValidationError("package_name is required")
	}
	_, err := valueobjects.ParsePackageName(name)
	return err
}
