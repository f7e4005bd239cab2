// Package codec reads and writes the zip layouts of share packages and
// eternal seeds.
package codec

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/aggregates"
	pkgerrors "cosmos-backend/pkg/errors"
)

const (
	manifestFile  = "manifest.json"
	worldFile     = "world.json"
	timelinesFile = "timelines.json"
	creditsFile   = "credits.json"

	// maxEntryBytes caps each decompressed member.
	maxEntryBytes = 16 << 20
)

// ZipPackageCodec stores a package as a zip of JSON documents.
type ZipPackageCodec struct{}

var _ ports.PackageCodec = ZipPackageCodec{}

// NewZipPackageCodec creates a codec.
func NewZipPackageCodec() ZipPackageCodec {
	return ZipPackageCodec{}
}

// Encode stores the package members uncompressed in a fixed order, stamped
// with the manifest time so equal packages produce equal bytes.
func (ZipPackageCodec) Encode(pkg *aggregates.Package) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := pkg.Manifest.CreatedAt

	members := []struct {
		name string
		v    interface{}
	}{
		{manifestFile, pkg.Manifest},
		{worldFile, pkg.World},
		{timelinesFile, pkg.Timelines},
		{creditsFile, pkg.Credits},
	}
	for _, m := range members {
		if err := writeJSON(zw, m.name, zip.Store, m.v, modified); err != nil {
			return nil, pkgerrors.Wrapf(err, "encode %s", m.name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, pkgerrors.Wrap(err, "finish package archive")
	}
	return buf.Bytes(), nil
}

// Decode reads a package and checks that its timelines form a forest.
// credits.json may be absent.
func (ZipPackageCodec) Decode(blob []byte) (*aggregates.Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, corrupt("package is not a zip archive: %v", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	pkg := &aggregates.Package{}
	required := []struct {
		name string
		dst  interface{}
	}{
		{manifestFile, &pkg.Manifest},
		{worldFile, &pkg.World},
		{timelinesFile, &pkg.Timelines},
	}
	for _, r := range required {
		f, ok := files[r.name]
		if !ok {
			return nil, corrupt("package is missing %s", r.name)
		}
		if err := readJSON(f, r.dst); err != nil {
			return nil, err
		}
	}
	if f, ok := files[creditsFile]; ok {
		if err := readJSON(f, &pkg.Credits); err != nil {
			return nil, err
		}
	}

	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

func writeJSON(zw *zip.Writer, name string, method uint16, v interface{}, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(f *zip.File, dst interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return corrupt("open %s: %v", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return corrupt("read %s: %v", f.Name, err)
	}
	if len(data) > maxEntryBytes {
		return corrupt("%s exceeds %d bytes", f.Name, maxEntryBytes)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return corrupt("decode %s: %v", f.Name, err)
	}
	return nil
}

func corrupt(format string, args ...interface{}) error {
	return pkgerrors.NewValidationError(fmt.Sprintf(format, args...)).WithCode(pkgerrors.CodeCorruptPackage)
}
