package commands

import (
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/pkg/utils"
)

// Contributor is one credited participant of an export.
type Contributor struct {
	Name string `json:"name" validate:"max=200"`
	Role string `json:"role" validate:"required,max=100"`
}

// ExportPackageCommand exports a world's active timelines as a named package
// and publishes it to the ledger.
type ExportPackageCommand struct {
	WorldID      string        `json:"world_id" validate:"required,uuid"`
	PackageName  string        `json:"package_name" validate:"required"`
	Visibility   string        `json:"visibility" validate:"omitempty,oneof=private anonymized public_with_credits"`
	WisdomMode   string        `json:"wisdom_mode" validate:"omitempty,oneof=anonymized full_public"`
	Contributors []Contributor `json:"contributors" validate:"max=50,dive"`
}

// Validate validates the command
func (c ExportPackageCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	_, err := valueobjects.ParsePackageName(c.PackageName)
	return err
}

// ImportPackageCommand materialises a published package as a new world.
type ImportPackageCommand struct {
	WorldID       string   `json:"world_id" validate:"required,uuid"`
	MergeID       string   `json:"merge_id" validate:"required,uuid"`
	PackageName   string   `json:"package_name" validate:"required"`
	KeepTimelines []string `json:"keep_timelines" validate:"max=500"`
}

// Validate validates the command
func (c ImportPackageCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	_, err := valueobjects.ParsePackageName(c.PackageName)
	return err
}

// RevokePackageCommand disables a package for future imports.
type RevokePackageCommand struct {
	PackageName string `json:"package_name" validate:"required"`
}

// Validate validates the command
func (c RevokePackageCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	_, err := valueobjects.ParsePackageName(c.PackageName)
	return err
}
