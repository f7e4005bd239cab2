package services

import (
	"fmt"
	"strings"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
)

// Oracle is the fixed closing line of every reflection.
const Oracle = "What would my great-grandchild's AI companion say? Keep love and truth in balance."

const maxListedTimelines = 5

// Reflection is the composed text of one reflection.
type Reflection struct {
	Message string
	Oracle  string
	Tone    valueobjects.Tone
}

// ReflectionComposer turns a world's active timelines into reflection text.
type ReflectionComposer struct{}

// NewReflectionComposer creates a composer
func NewReflectionComposer() *ReflectionComposer {
	return &ReflectionComposer{}
}

// Compose builds the reflection for the given active timelines. active must
// not be empty.
func (c *ReflectionComposer) Compose(world *entities.World, active []*entities.Timeline, warmth valueobjects.Warmth) Reflection {
	tone := warmth.Tone()

	var b strings.Builder
	fmt.Fprintf(&b, "Around the cosmic fire, your family agents see a %s path forward.", tone)

	titles := make([]string, 0, maxListedTimelines)
	for i, t := range active {
		if i == maxListedTimelines {
			break
		}
		titles = append(titles, t.Title())
	}
	fmt.Fprintf(&b, " %s holds %d active timeline", world.Name(), len(active))
	if len(active) != 1 {
		b.WriteString("s")
	}
	fmt.Fprintf(&b, ": %s", strings.Join(titles, ", "))
	if extra := len(active) - len(titles); extra > 0 {
		fmt.Fprintf(&b, " and %d more", extra)
	}
	b.WriteString(".")

	return Reflection{Message: b.String(), Oracle: Oracle, Tone: tone}
}
