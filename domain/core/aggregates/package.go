package aggregates

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

// compatibleWith lists older package layouts this format can be read as.
var compatibleWith = []string{"v0.5"}

// PackagedWorld is the world metadata carried by a package.
type PackagedWorld struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SeedPrompt string          `json:"seed_prompt,omitempty"`
	Warmth     int             `json:"warmth"`
	MapLayout  json.RawMessage `json:"map_layout,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PackagedTimeline is one timeline carried by a package. ParentID is empty for
// package roots.
type PackagedTimeline struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_timeline_id,omitempty"`
	Title        string    `json:"title"`
	BranchPrompt string    `json:"branch_prompt,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Package is the portable snapshot of a world's active timelines.
type Package struct {
	Manifest  entities.PackageManifest `json:"manifest"`
	World     PackagedWorld            `json:"world"`
	Timelines []PackagedTimeline       `json:"timelines"`
	Credits   []valueobjects.Credit    `json:"credits"`
}

// BuildPackage selects the active timelines of forest and redacts author free
// text when mode asks for it. Collapsed timelines never leave the store.
func BuildPackage(
	world *entities.World,
	forest *Forest,
	visibility valueobjects.Visibility,
	mode valueobjects.WisdomMode,
	credits []valueobjects.Credit,
	now time.Time,
) *Package {
	if mode.Redacts() {
		credits = valueobjects.AnonymizeCredits(credits)
	}

	selected := forest.Project(func(t *entities.Timeline) bool { return t.IsActive() })
	timelines := make([]PackagedTimeline, 0, len(selected))
	for _, p := range selected {
		pt := PackagedTimeline{
			ID:           p.Timeline.ID().String(),
			ParentID:     p.ParentID.String(),
			Title:        p.Timeline.Title(),
			BranchPrompt: p.Timeline.BranchPrompt(),
			Status:       p.Timeline.Status().String(),
			CreatedAt:    p.Timeline.CreatedAt(),
		}
		if mode.Redacts() {
			pt.BranchPrompt = ""
		}
		timelines = append(timelines, pt)
	}

	pw := PackagedWorld{
		ID:         world.ID().String(),
		Name:       world.Name(),
		SeedPrompt: world.SeedPrompt(),
		Warmth:     world.Warmth().Int(),
		MapLayout:  json.RawMessage(world.MapLayout().Bytes()),
		CreatedAt:  world.CreatedAt(),
	}
	if mode.Redacts() {
		// The layout is opaque and may quote the seed, so it goes too.
		pw.SeedPrompt = ""
		pw.MapLayout = nil
	}

	return &Package{
		Manifest: entities.PackageManifest{
			Format:                 entities.PackageFormat,
			WorldID:                world.ID().String(),
			WorldName:              world.Name(),
			CreatedAt:              now.UTC(),
			Visibility:             visibility,
			WisdomMode:             mode,
			Timelines:              len(timelines),
			BackwardCompatibleWith: compatibleWith,
		},
		World:     pw,
		Timelines: timelines,
		Credits:   credits,
	}
}

// Validate checks that the package's timelines form a forest.
func (p *Package) Validate() error {
	if p.Manifest.Format != "" && p.Manifest.Format != entities.PackageFormat {
		return corruptPackage("unsupported package format %q", p.Manifest.Format)
	}
	if strings.TrimSpace(p.World.Name) == "" {
		return corruptPackage("package world has no name")
	}

	index := make(map[string]PackagedTimeline, len(p.Timelines))
	for _, t := range p.Timelines {
		if t.ID == "" {
			return corruptPackage("package timeline without id")
		}
		if _, dup := index[t.ID]; dup {
			return corruptPackage("package timeline %s appears twice", t.ID)
		}
		index[t.ID] = t
	}
	for _, t := range p.Timelines {
		cur := t
		for steps := 0; cur.ParentID != ""; steps++ {
			parent, ok := index[cur.ParentID]
			if !ok {
				return corruptPackage("package timeline %s references missing parent %s", cur.ID, cur.ParentID)
			}
			if steps > len(index) {
				return corruptPackage("package timeline %s is part of a cycle", t.ID)
			}
			cur = parent
		}
	}
	return nil
}

func corruptPackage(format string, args ...interface{}) error {
	return pkgerrors.NewValidationError(fmt.Sprintf(format, args...)).WithCode(pkgerrors.CodeCorruptPackage)
}

// Materialized is the result of applying a package to a new world.
type Materialized struct {
	World     *entities.World
	Forest    *Forest
	Conflicts []entities.MergeConflict
	Imported  int // package timelines materialised, synthetic root excluded
}

// Materialize creates a new world from the package. keep filters package
// timelines by title or original id; empty keeps all. The package root is
// always kept. Kept timelines hang under their nearest kept ancestor, and
// when the package has several roots they hang under a fresh root.
func (p *Package) Materialize(
	worldID valueobjects.WorldID,
	keep []string,
	now time.Time,
	cfg *config.DomainConfig,
) (*Materialized, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		if k = strings.TrimSpace(k); k != "" {
			wanted[k] = true
		}
	}
	matched := make(map[string]bool, len(wanted))

	var roots []PackagedTimeline
	for _, t := range p.Timelines {
		if t.ParentID == "" {
			roots = append(roots, t)
		}
	}
	singleRoot := len(roots) == 1

	kept := make(map[string]bool, len(p.Timelines))
	for _, t := range p.Timelines {
		hit := wanted[t.Title] || wanted[t.ID]
		if hit {
			matched[t.Title] = true
			matched[t.ID] = true
		}
		if len(wanted) == 0 || hit || (singleRoot && t.ParentID == "") {
			kept[t.ID] = true
		}
	}

	var conflicts []entities.MergeConflict
	for _, k := range keep {
		k = strings.TrimSpace(k)
		if k != "" && !matched[k] {
			conflicts = append(conflicts, entities.MergeConflict{Title: k, Resolution: entities.ResolutionNotInPackage})
		}
	}

	warmth, err := valueobjects.NewWarmth(p.World.Warmth)
	if err != nil {
		warmth, _ = valueobjects.NewWarmth(cfg.DefaultWarmth)
	}
	var layout *valueobjects.MapLayout
	if len(p.World.MapLayout) > 0 {
		if l, err := valueobjects.NewMapLayout(p.World.MapLayout); err == nil {
			layout = &l
		}
	}

	// Timestamps step by a nanosecond so creation order survives stores
	// that order by time alone.
	tick := 0
	stamp := func() time.Time {
		tick++
		return now.Add(time.Duration(tick))
	}

	newIDs := make(map[string]valueobjects.TimelineID, len(kept))
	var root *entities.Timeline
	if singleRoot {
		r := roots[0]
		newIDs[r.ID] = valueobjects.NewTimelineID()
		root = entities.ReconstructTimeline(newIDs[r.ID], worldID, valueobjects.TimelineID{},
			importedTitle(r.Title), r.BranchPrompt, importedStatus(r.Status), stamp())
	} else {
		root = entities.NewRootTimeline(valueobjects.NewTimelineID(), worldID, stamp(), cfg)
	}

	world, err := entities.NewWorld(worldID, root.ID(), p.World.Name+cfg.ImportedNameSuffix,
		p.World.SeedPrompt, warmth, layout, now, cfg)
	if err != nil {
		return nil, err
	}
	forest, err := PlantForest(root)
	if err != nil {
		return nil, err
	}

	index := make(map[string]PackagedTimeline, len(p.Timelines))
	for _, t := range p.Timelines {
		index[t.ID] = t
	}
	nearestKept := func(t PackagedTimeline) string {
		for cur := t; cur.ParentID != ""; {
			cur = index[cur.ParentID]
			if kept[cur.ID] {
				return cur.ID
			}
		}
		return ""
	}

	imported := 0
	if singleRoot {
		imported = 1
	}
	// Package order is depth-first, so parents are created before children.
	for _, t := range orderedForImport(p.Timelines) {
		if !kept[t.ID] || (singleRoot && t.ParentID == "") {
			continue
		}
		parent := root.ID()
		if anc := nearestKept(t); anc != "" {
			parent = newIDs[anc]
		}
		id := valueobjects.NewTimelineID()
		newIDs[t.ID] = id
		tl := entities.ReconstructTimeline(id, worldID, parent, importedTitle(t.Title), t.BranchPrompt, importedStatus(t.Status), stamp())
		if err := forest.adopt(tl); err != nil {
			return nil, err
		}
		imported++
	}

	return &Materialized{World: world, Forest: forest, Conflicts: conflicts, Imported: imported}, nil
}

// orderedForImport returns the timelines so that every parent precedes its
// children while keeping sibling order.
func orderedForImport(timelines []PackagedTimeline) []PackagedTimeline {
	children := make(map[string][]PackagedTimeline, len(timelines))
	var roots []PackagedTimeline
	for _, t := range timelines {
		if t.ParentID == "" {
			roots = append(roots, t)
			continue
		}
		children[t.ParentID] = append(children[t.ParentID], t)
	}

	out := make([]PackagedTimeline, 0, len(timelines))
	var visit func(t PackagedTimeline)
	visit = func(t PackagedTimeline) {
		out = append(out, t)
		for _, c := range children[t.ID] {
			visit(c)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return out
}

// adopt attaches an already-built timeline whose parent is in the forest.
func (f *Forest) adopt(t *entities.Timeline) error {
	if _, ok := f.nodes[t.ParentID()]; !ok {
		return forestViolation("timeline %s references missing parent %s", t.ID(), t.ParentID())
	}
	f.nodes[t.ID()] = t
	f.order = append(f.order, t)
	return nil
}

// Timelines returns every timeline in creation order.
func (f *Forest) Timelines() []*entities.Timeline {
	return f.order
}

func importedTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Imported Timeline"
	}
	return title
}

func importedStatus(s string) valueobjects.TimelineStatus {
	status, err := valueobjects.ParseTimelineStatus(s)
	if err != nil {
		return valueobjects.TimelineActive
	}
	return status
}
