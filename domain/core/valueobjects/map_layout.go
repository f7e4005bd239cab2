package valueobjects

import (
	"bytes"
	"encoding/json"

	pkgerrors "cosmos-backend/pkg/errors"
)

// MapLayout is the display-only point set of a world. The store keeps the
// bytes as given; the only check is that they are well-formed JSON.
type MapLayout struct {
	raw json.RawMessage
}

// MapPoint is one labelled point of the seeded layout.
type MapPoint struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Note  string `json:"note,omitempty"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// NewMapLayout wraps raw layout bytes. Empty input yields an empty layout.
func NewMapLayout(raw []byte) (MapLayout, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return EmptyMapLayout(), nil
	}
	if !json.Valid(trimmed) {
		return MapLayout{}, pkgerrors.NewValidationError("map layout must be well-formed JSON")
	}
	cp := make([]byte, len(trimmed))
	copy(cp, trimmed)
	return MapLayout{raw: cp}, nil
}

// EmptyMapLayout is the layout with no points.
func EmptyMapLayout() MapLayout {
	return MapLayout{raw: json.RawMessage("[]")}
}

// SeedMapLayout lays out the three starting points of a new world.
func SeedMapLayout(worldName, seedPrompt string) MapLayout {
	points := []MapPoint{
		{ID: "core-star", Label: worldName + " Core", Kind: "legacy-core", X: 24, Y: 48},
		{ID: "origin", Label: "Origin Event", Kind: "chapter", Note: seedPrompt, X: 52, Y: 42},
		{ID: "future", Label: "Possible Future", Kind: "oracle", X: 76, Y: 58},
	}
	raw, err := json.Marshal(points)
	if err != nil {
		return EmptyMapLayout()
	}
	return MapLayout{raw: raw}
}

// Bytes returns the stored layout.
func (m MapLayout) Bytes() []byte {
	if len(m.raw) == 0 {
		return []byte("[]")
	}
	return m.raw
}

// MarshalJSON emits the layout unmodified.
func (m MapLayout) MarshalJSON() ([]byte, error) {
	return m.Bytes(), nil
}

// UnmarshalJSON accepts any well-formed JSON value.
func (m *MapLayout) UnmarshalJSON(data []byte) error {
	layout, err := NewMapLayout(data)
	if err != nil {
		return err
	}
	*m = layout
	return nil
}
