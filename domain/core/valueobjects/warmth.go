package valueobjects

import (
	"fmt"

	pkgerrors "cosmos-backend/pkg/errors"
)

const (
	MinWarmth = 0
	MaxWarmth = 100

	// hopefulThreshold is the lowest warmth that reads as hopeful.
	hopefulThreshold = 60
)

// Tone is the reading a warmth value gives to reflections.
type Tone string

const (
	ToneHopeful   Tone = "hopeful"
	ToneRealistic Tone = "realistic"
)

// Warmth weights how generous a world's reflections are, 0..100.
type Warmth struct {
	value int
}

// NewWarmth validates v against the warmth bounds.
func NewWarmth(v int) (Warmth, error) {
	if v < MinWarmth || v > MaxWarmth {
		return Warmth{}, pkgerrors.NewValidationError(
			fmt.Sprintf("warmth must be between %d and %d", MinWarmth, MaxWarmth),
		).WithCode(pkgerrors.CodeInvalidWarmth).WithDetail("warmth", v)
	}
	return Warmth{value: v}, nil
}

// Int returns the numeric warmth.
func (w Warmth) Int() int {
	return w.value
}

// Tone classifies the warmth.
func (w Warmth) Tone() Tone {
	if w.value >= hopefulThreshold {
		return ToneHopeful
	}
	return ToneRealistic
}
