package valueobjects

import (
	"fmt"
	"strings"

	pkgerrors "cosmos-backend/pkg/errors"
)

// Visibility controls whether and how a shared package shows up in the
// network directory.
type Visibility string

const (
	VisibilityPrivate           Visibility = "private"
	VisibilityAnonymized        Visibility = "anonymized"
	VisibilityPublicWithCredits Visibility = "public_with_credits"
)

// ParseVisibility parses a visibility, defaulting to private when empty.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.TrimSpace(s)); v {
	case "":
		return VisibilityPrivate, nil
	case VisibilityPrivate, VisibilityAnonymized, VisibilityPublicWithCredits:
		return v, nil
	default:
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("visibility must be one of: %s, %s, %s", VisibilityPrivate, VisibilityAnonymized, VisibilityPublicWithCredits),
		).WithDetail("visibility", s)
	}
}

// Listed reports whether packages with this visibility appear in the network directory.
func (v Visibility) Listed() bool {
	return v == VisibilityAnonymized || v == VisibilityPublicWithCredits
}

// ShowsNames reports whether directory entries may carry contributor names.
func (v Visibility) ShowsNames() bool {
	return v == VisibilityPublicWithCredits
}

func (v Visibility) String() string { return string(v) }

// WisdomMode decides how much author free text a package carries.
type WisdomMode string

const (
	WisdomAnonymized WisdomMode = "anonymized"
	WisdomFullPublic WisdomMode = "full_public"
)

// ParseWisdomMode parses a wisdom mode, defaulting to anonymized when empty.
func ParseWisdomMode(s string) (WisdomMode, error) {
	switch m := WisdomMode(strings.TrimSpace(s)); m {
	case "":
		return WisdomAnonymized, nil
	case WisdomAnonymized, WisdomFullPublic:
		return m, nil
	default:
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("wisdom_mode must be one of: %s, %s", WisdomAnonymized, WisdomFullPublic),
		).WithDetail("wisdom_mode", s)
	}
}

// Redacts reports whether exports in this mode strip author free text.
func (m WisdomMode) Redacts() bool {
	return m != WisdomFullPublic
}

func (m WisdomMode) String() string { return string(m) }
