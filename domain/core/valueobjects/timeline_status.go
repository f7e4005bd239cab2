package valueobjects

import (
	"fmt"

	pkgerrors "cosmos-backend/pkg/errors"
)

// TimelineStatus is the lifecycle state of a timeline. The only transition is
// active to collapsed.
type TimelineStatus string

const (
	TimelineActive    TimelineStatus = "active"
	TimelineCollapsed TimelineStatus = "collapsed"
)

// ParseTimelineStatus parses a stored status.
func ParseTimelineStatus(s string) (TimelineStatus, error) {
	switch st := TimelineStatus(s); st {
	case TimelineActive, TimelineCollapsed:
		return st, nil
	default:
		return "", pkgerrors.NewValidationError(fmt.Sprintf("unknown timeline status %q", s))
	}
}

func (s TimelineStatus) String() string { return string(s) }
