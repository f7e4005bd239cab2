package valueobjects

import (
	"strings"

	pkgerrors "cosmos-backend/pkg/errors"
)

// Credit names one contributor to a shared world.
type Credit struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

// NewCredit trims and validates a contributor credit.
func NewCredit(name, role string) (Credit, error) {
	c := Credit{Name: strings.TrimSpace(name), Role: strings.TrimSpace(role)}
	if c.Role == "" {
		return Credit{}, pkgerrors.NewValidationError("contributor role cannot be empty")
	}
	return c, nil
}

// Anonymized returns the credit reduced to its role.
func (c Credit) Anonymized() Credit {
	return Credit{Role: c.Role}
}

// AnonymizeCredits reduces every credit to its role, keeping order.
func AnonymizeCredits(credits []Credit) []Credit {
	out := make([]Credit, len(credits))
	for i, c := range credits {
		out[i] = c.Anonymized()
	}
	return out
}
