package dynamodb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

type packageItem struct {
	PK         string                `dynamodbav:"PK"`
	SK         string                `dynamodbav:"SK"`
	GSI1PK     string                `dynamodbav:"GSI1PK"`
	GSI1SK     string                `dynamodbav:"GSI1SK"`
	EntityType string                `dynamodbav:"EntityType"`
	Name       string                `dynamodbav:"Name"`
	WorldID    string                `dynamodbav:"WorldID"`
	Visibility string                `dynamodbav:"Visibility"`
	WisdomMode string                `dynamodbav:"WisdomMode"`
	Credits    []valueobjects.Credit `dynamodbav:"Credits"`
	Manifest   string                `dynamodbav:"Manifest"`
	SizeBytes  int64                 `dynamodbav:"SizeBytes"`
	Revoked    bool                  `dynamodbav:"Revoked"`
	RevokedAt  int64                 `dynamodbav:"RevokedAt,omitempty"`
	CreatedAt  int64                 `dynamodbav:"CreatedAt"`
}

type blobItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Blob       []byte `dynamodbav:"Blob"`
	CreatedAt  int64  `dynamodbav:"CreatedAt"`
}

type shareLedger struct {
	repositories
}

func (l *shareLedger) Publish(ctx context.Context, pkg *entities.SharePackage) error {
	manifest, err := json.Marshal(pkg.Manifest())
	if err != nil {
		return pkgerrors.Wrap(err, "encode manifest")
	}
	op, err := l.putNew(packageItem{
		PK:         packagePK(pkg.Name().String()),
		SK:         skMetadata,
		GSI1PK:     gsiPackages,
		GSI1SK:     sortKey(pkg.CreatedAt(), pkg.Name().String()),
		EntityType: entityPackage,
		Name:       pkg.Name().String(),
		WorldID:    pkg.WorldID().String(),
		Visibility: pkg.Visibility().String(),
		WisdomMode: pkg.WisdomMode().String(),
		Credits:    pkg.Credits(),
		Manifest:   string(manifest),
		SizeBytes:  pkg.SizeBytes(),
		CreatedAt:  pkg.CreatedAt().UnixNano(),
	}, func() error { return packageNameTaken(pkg.Name()) })
	if err != nil {
		return err
	}
	return l.w.write(ctx, op)
}

func (l *shareLedger) GetByName(ctx context.Context, name valueobjects.PackageName) (*entities.SharePackage, error) {
	var it packageItem
	found, err := l.getItem(ctx, "get package", keyOf(packagePK(name.String()), skMetadata), &it)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, packageNotFound(name)
	}
	return it.toEntity()
}

func (l *shareLedger) MarkRevoked(ctx context.Context, pkg *entities.SharePackage) error {
	update := expression.Set(expression.Name("Revoked"), expression.Value(true))
	if at := pkg.RevokedAt(); at != nil {
		update = update.Set(expression.Name("RevokedAt"), expression.Value(at.UnixNano()))
	}
	op, err := l.updateExisting(
		keyOf(packagePK(pkg.Name().String()), skMetadata),
		update,
		func() error { return packageNotFound(pkg.Name()) },
	)
	if err != nil {
		return err
	}
	return l.w.write(ctx, op)
}

func (l *shareLedger) List(ctx context.Context) ([]*entities.SharePackage, error) {
	var pkgs []*entities.SharePackage
	err := l.query(ctx, "list packages", indexQuery{
		index:   l.cfg.GSI1IndexName,
		key:     gsi1(gsiPackages),
		forward: true,
	}, func(av item) (bool, error) {
		var it packageItem
		if err := attributevalue.UnmarshalMap(av, &it); err != nil {
			return false, pkgerrors.NewStorageError("decode package", err)
		}
		pkg, err := it.toEntity()
		if err != nil {
			return false, err
		}
		pkgs = append(pkgs, pkg)
		return true, nil
	})
	return pkgs, err
}

func (it packageItem) toEntity() (*entities.SharePackage, error) {
	name, err := valueobjects.ParsePackageName(it.Name)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode package", err)
	}
	worldID, err := valueobjects.ParseWorldID(it.WorldID)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode package", err)
	}
	visibility, err := valueobjects.ParseVisibility(it.Visibility)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode package", err)
	}
	mode, err := valueobjects.ParseWisdomMode(it.WisdomMode)
	if err != nil {
		return nil, pkgerrors.NewStorageError("decode package", err)
	}
	var manifest entities.PackageManifest
	if err := json.Unmarshal([]byte(it.Manifest), &manifest); err != nil {
		return nil, pkgerrors.NewStorageError("decode package", err)
	}
	var revokedAt *time.Time
	if it.RevokedAt != 0 {
		at := fromNanos(it.RevokedAt)
		revokedAt = &at
	}
	return entities.ReconstructSharePackage(name, worldID, visibility, mode, it.Credits, manifest,
		it.SizeBytes, it.Revoked, revokedAt, fromNanos(it.CreatedAt)), nil
}

// blobStore keeps package bytes next to the ledger item, under the item size
// limit of the table.
type blobStore struct {
	repositories
}

func (b *blobStore) Put(ctx context.Context, name valueobjects.PackageName, blob []byte) error {
	op, err := b.putNew(blobItem{
		PK:         packagePK(name.String()),
		SK:         skBlob,
		EntityType: entityBlob,
		Blob:       blob,
		CreatedAt:  time.Now().UnixNano(),
	}, func() error { return packageNameTaken(name) })
	if err != nil {
		return err
	}
	return b.w.write(ctx, op)
}

func (b *blobStore) Get(ctx context.Context, name valueobjects.PackageName) ([]byte, error) {
	var it blobItem
	found, err := b.getItem(ctx, "get package blob", keyOf(packagePK(name.String()), skBlob), &it)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, packageNotFound(name)
	}
	return it.Blob, nil
}

func packageNameTaken(name valueobjects.PackageName) error {
	return pkgerrors.NewConflictError("package name already taken").
		WithCode(pkgerrors.CodePackageNameTaken).
		WithDetail("package_name", name.String())
}

func packageNotFound(name valueobjects.PackageName) error {
	return pkgerrors.NewNotFoundError("package").
		WithCode(pkgerrors.CodePackageNotFound).
		WithDetail("package_name", name.String())
}
