package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

const shareColumns = `name, world_id, visibility, wisdom_mode, credits, manifest, size_bytes, revoked, revoked_at, created_at`

type shareLedger struct {
	q querier
}

func (l *shareLedger) Publish(ctx context.Context, pkg *entities.SharePackage) error {
	credits, err := json.Marshal(pkg.Credits())
	if err != nil {
		return pkgerrors.Wrap(err, "encode credits")
	}
	manifest, err := json.Marshal(pkg.Manifest())
	if err != nil {
		return pkgerrors.Wrap(err, "encode manifest")
	}
	_, err = l.q.ExecContext(ctx,
		`INSERT INTO share_packages (`+shareColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)`,
		pkg.Name().String(),
		pkg.WorldID().String(),
		pkg.Visibility().String(),
		pkg.WisdomMode().String(),
		string(credits),
		string(manifest),
		pkg.SizeBytes(),
		toNanos(pkg.CreatedAt()),
	)
	if err != nil {
		if isConstraintError(err) {
			return packageNameTaken(pkg.Name())
		}
		return storageError("publish package", err)
	}
	return nil
}

func (l *shareLedger) GetByName(ctx context.Context, name valueobjects.PackageName) (*entities.SharePackage, error) {
	row := l.q.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM share_packages WHERE name = ?`, name.String())
	pkg, err := scanSharePackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, packageNotFound(name)
	}
	if err != nil {
		return nil, storageError("get package", err)
	}
	return pkg, nil
}

func (l *shareLedger) MarkRevoked(ctx context.Context, pkg *entities.SharePackage) error {
	var revokedAt sql.NullInt64
	if at := pkg.RevokedAt(); at != nil {
		revokedAt = sql.NullInt64{Int64: toNanos(*at), Valid: true}
	}
	res, err := l.q.ExecContext(ctx,
		`UPDATE share_packages SET revoked = 1, revoked_at = ? WHERE name = ?`,
		revokedAt, pkg.Name().String(),
	)
	if err != nil {
		return storageError("revoke package", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return packageNotFound(pkg.Name())
	}
	return nil
}

func (l *shareLedger) List(ctx context.Context) ([]*entities.SharePackage, error) {
	rows, err := l.q.QueryContext(ctx, `SELECT `+shareColumns+` FROM share_packages ORDER BY seq`)
	if err != nil {
		return nil, storageError("list packages", err)
	}
	defer rows.Close()

	var pkgs []*entities.SharePackage
	for rows.Next() {
		pkg, err := scanSharePackage(rows)
		if err != nil {
			return nil, storageError("scan package", err)
		}
		pkgs = append(pkgs, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list packages", err)
	}
	return pkgs, nil
}

func scanSharePackage(s scanner) (*entities.SharePackage, error) {
	var (
		name, worldID, visibility, mode, credits, manifest string
		size, createdAt                                    int64
		revoked                                            bool
		revokedAt                                          sql.NullInt64
	)
	if err := s.Scan(&name, &worldID, &visibility, &mode, &credits, &manifest, &size, &revoked, &revokedAt, &createdAt); err != nil {
		return nil, err
	}
	pkgName, err := valueobjects.ParsePackageName(name)
	if err != nil {
		return nil, err
	}
	wid, err := valueobjects.ParseWorldID(worldID)
	if err != nil {
		return nil, err
	}
	vis, err := valueobjects.ParseVisibility(visibility)
	if err != nil {
		return nil, err
	}
	wm, err := valueobjects.ParseWisdomMode(mode)
	if err != nil {
		return nil, err
	}
	var creditList []valueobjects.Credit
	if err := json.Unmarshal([]byte(credits), &creditList); err != nil {
		return nil, fmt.Errorf("decode credits: %w", err)
	}
	var m entities.PackageManifest
	if err := json.Unmarshal([]byte(manifest), &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	var at *time.Time
	if revokedAt.Valid {
		t := fromNanos(revokedAt.Int64)
		at = &t
	}
	return entities.ReconstructSharePackage(pkgName, wid, vis, wm, creditList, m, size, revoked, at, fromNanos(createdAt)), nil
}

type blobStore struct {
	q querier
}

func (b *blobStore) Put(ctx context.Context, name valueobjects.PackageName, blob []byte) error {
	_, err := b.q.ExecContext(ctx,
		`INSERT INTO package_blobs (name, blob, created_at) VALUES (?, ?, ?)`,
		name.String(), blob, toNanos(time.Now()),
	)
	if err != nil {
		if isConstraintError(err) {
			return packageNameTaken(name)
		}
		return storageError("store package blob", err)
	}
	return nil
}

func (b *blobStore) Get(ctx context.Context, name valueobjects.PackageName) ([]byte, error) {
	var blob []byte
	err := b.q.QueryRowContext(ctx, `SELECT blob FROM package_blobs WHERE name = ?`, name.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, packageNotFound(name)
	}
	if err != nil {
		return nil, storageError("get package blob", err)
	}
	return blob, nil
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
