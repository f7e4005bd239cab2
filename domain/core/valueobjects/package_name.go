package valueobjects

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "cosmos-backend/pkg/errors"
)

const maxPackageNameLength = 160

// PackageName is the external handle of a shared package.
type PackageName struct {
	value string
}

// GeneratePackageName builds a fresh name of the form
// cosmos-<world prefix>-<unix seconds>-<random>.<suffix>.
func GeneratePackageName(worldID WorldID, now time.Time, suffix string) PackageName {
	prefix := worldID.String()
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	return PackageName{value: fmt.Sprintf("cosmos-%s-%d-%s%s", prefix, now.Unix(), random, suffix)}
}

// ParsePackageName validates a caller supplied package name.
func ParsePackageName(s string) (PackageName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PackageName{}, pkgerrors.NewValidationError("package_name cannot be empty")
	}
	if len(s) > maxPackageNameLength {
		return PackageName{}, pkgerrors.NewValidationError(
			fmt.Sprintf("package_name must be at most %d characters", maxPackageNameLength))
	}
	if strings.HasPrefix(s, ".") {
		return PackageName{}, pkgerrors.NewValidationError("package_name cannot start with a dot")
	}
	for _, r := range s {
		if !isPackageNameRune(r) {
			return PackageName{}, pkgerrors.NewValidationError(
				"package_name may only contain letters, digits, '.', '-' and '_'").WithDetail("package_name", s)
		}
	}
	return PackageName{value: s}, nil
}

func isPackageNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}

func (n PackageName) String() string { return n.value }
func (n PackageName) IsZero() bool   { return n.value == "" }

// MarshalJSON implements json.Marshaler
func (n PackageName) MarshalJSON() ([]byte, error) { return json.Marshal(n.value) }
