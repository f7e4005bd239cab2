package aggregates

import (
	"fmt"
	"time"

	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
	pkgerrors "cosmos-backend/pkg/errors"
)

// Forest is the aggregate root for a world's timelines. Timelines are kept in
// an arena keyed by id with parent back-references; children are derived.
// Exactly one timeline has no parent.
type Forest struct {
	worldID valueobjects.WorldID
	nodes   map[valueobjects.TimelineID]*entities.Timeline
	order   []*entities.Timeline // creation order
	root    *entities.Timeline
	events  []events.DomainEvent
}

// PlantForest starts a forest from a world's freshly created root.
func PlantForest(root *entities.Timeline) (*Forest, error) {
	if !root.IsRoot() {
		return nil, forestViolation("planted timeline %s has a parent", root.ID())
	}
	return &Forest{
		worldID: root.WorldID(),
		nodes:   map[valueobjects.TimelineID]*entities.Timeline{root.ID(): root},
		order:   []*entities.Timeline{root},
		root:    root,
	}, nil
}

// NewForest rebuilds a forest from stored timelines given in creation order.
// It rejects sets that are not a single-rooted tree for worldID.
func NewForest(worldID valueobjects.WorldID, timelines []*entities.Timeline) (*Forest, error) {
	f := &Forest{
		worldID: worldID,
		nodes:   make(map[valueobjects.TimelineID]*entities.Timeline, len(timelines)),
		order:   make([]*entities.Timeline, 0, len(timelines)),
	}

	for _, t := range timelines {
		if !t.WorldID().Equals(worldID) {
			return nil, forestViolation("timeline %s belongs to world %s", t.ID(), t.WorldID())
		}
		if _, dup := f.nodes[t.ID()]; dup {
			return nil, forestViolation("timeline %s appears twice", t.ID())
		}
		if t.IsRoot() {
			if f.root != nil {
				return nil, forestViolation("world %s has more than one root", worldID)
			}
			f.root = t
		}
		f.nodes[t.ID()] = t
		f.order = append(f.order, t)
	}
	if f.root == nil {
		return nil, forestViolation("world %s has no root timeline", worldID)
	}

	for _, t := range f.order {
		if t.IsRoot() {
			continue
		}
		if _, ok := f.nodes[t.ParentID()]; !ok {
			return nil, forestViolation("timeline %s references missing parent %s", t.ID(), t.ParentID())
		}
	}
	// Every walk toward the root must end within len(nodes) steps.
	for _, t := range f.order {
		cur := t
		for steps := 0; !cur.IsRoot(); steps++ {
			if steps > len(f.nodes) {
				return nil, forestViolation("timeline %s is part of a cycle", t.ID())
			}
			cur = f.nodes[cur.ParentID()]
		}
	}
	return f, nil
}

func forestViolation(format string, args ...interface{}) error {
	return pkgerrors.NewInternalError(fmt.Sprintf(format, args...)).WithCode(pkgerrors.CodeForestViolation)
}

func (f *Forest) WorldID() valueobjects.WorldID { return f.worldID }
func (f *Forest) Root() *entities.Timeline      { return f.root }
func (f *Forest) Len() int                      { return len(f.order) }

// Get looks a timeline up by id.
func (f *Forest) Get(id valueobjects.TimelineID) (*entities.Timeline, bool) {
	t, ok := f.nodes[id]
	return t, ok
}

// Resolve maps a requested parent to a timeline; the zero id means the root.
func (f *Forest) Resolve(parentID valueobjects.TimelineID) (*entities.Timeline, error) {
	if parentID.IsZero() {
		return f.root, nil
	}
	t, ok := f.nodes[parentID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("timeline").
			WithCode(pkgerrors.CodeTimelineNotFound).
			WithDetail("world_id", f.worldID.String()).
			WithDetail("timeline_id", parentID.String())
	}
	return t, nil
}

// Branch adds a new active timeline under parentID (zero meaning the root).
// Collapsed parents may be branched from; their status is unchanged.
func (f *Forest) Branch(
	id valueobjects.TimelineID,
	parentID valueobjects.TimelineID,
	title, branchPrompt string,
	now time.Time,
	cfg *config.DomainConfig,
) (*entities.Timeline, error) {
	parent, err := f.Resolve(parentID)
	if err != nil {
		return nil, err
	}
	if _, exists := f.nodes[id]; exists {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("timeline %s already exists", id))
	}

	t, err := entities.NewTimeline(id, f.worldID, parent.ID(), title, branchPrompt, now, cfg)
	if err != nil {
		return nil, err
	}
	f.nodes[t.ID()] = t
	f.order = append(f.order, t)

	f.addEvent(events.NewTimelineBranched(f.worldID, t.ID(), parent.ID(), t.Title(), parent.Title(), t.BranchPrompt(), t.CreatedAt()))
	return t, nil
}

// CollapseAll collapses every active timeline, the root included, and returns
// the ones whose status changed. A second call returns nothing.
func (f *Forest) CollapseAll(now time.Time) []*entities.Timeline {
	var changed []*entities.Timeline
	for _, t := range f.order {
		if t.Collapse() {
			changed = append(changed, t)
		}
	}
	if len(changed) > 0 {
		ids := make([]valueobjects.TimelineID, len(changed))
		for i, t := range changed {
			ids[i] = t.ID()
		}
		f.addEvent(events.NewTimelinesCollapsed(f.worldID, ids, now.UTC()))
	}
	return changed
}

// Active returns the active timelines in creation order.
func (f *Forest) Active() []*entities.Timeline {
	var out []*entities.Timeline
	for _, t := range f.order {
		if t.IsActive() {
			out = append(out, t)
		}
	}
	return out
}

// Children returns the direct children of id in creation order.
func (f *Forest) Children(id valueobjects.TimelineID) []*entities.Timeline {
	var out []*entities.Timeline
	for _, t := range f.order {
		if !t.IsRoot() && t.ParentID().Equals(id) {
			out = append(out, t)
		}
	}
	return out
}

// DepthFirst lists the forest pre-order from the root, siblings in creation order.
func (f *Forest) DepthFirst() []*entities.Timeline {
	children := f.childIndex()
	out := make([]*entities.Timeline, 0, len(f.order))

	stack := []*entities.Timeline{f.root}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, t)

		kids := children[t.ID()]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// Projected is a timeline seen through a selection: ParentID is the nearest
// selected ancestor, zero when there is none.
type Projected struct {
	Timeline *entities.Timeline
	ParentID valueobjects.TimelineID
}

// Project keeps the timelines accepted by keep, in depth-first order, and
// re-parents each onto its nearest kept ancestor so the result is a forest.
func (f *Forest) Project(keep func(*entities.Timeline) bool) []Projected {
	var out []Projected
	for _, t := range f.DepthFirst() {
		if !keep(t) {
			continue
		}
		out = append(out, Projected{Timeline: t, ParentID: f.nearestKeptAncestor(t, keep)})
	}
	return out
}

func (f *Forest) nearestKeptAncestor(t *entities.Timeline, keep func(*entities.Timeline) bool) valueobjects.TimelineID {
	cur := t
	for !cur.IsRoot() {
		cur = f.nodes[cur.ParentID()]
		if keep(cur) {
			return cur.ID()
		}
	}
	return valueobjects.TimelineID{}
}

func (f *Forest) childIndex() map[valueobjects.TimelineID][]*entities.Timeline {
	children := make(map[valueobjects.TimelineID][]*entities.Timeline, len(f.order))
	for _, t := range f.order {
		if t.IsRoot() {
			continue
		}
		children[t.ParentID()] = append(children[t.ParentID()], t)
	}
	return children
}

// GetUncommittedEvents returns events raised since the last commit
func (f *Forest) GetUncommittedEvents() []events.DomainEvent {
	return f.events
}

// MarkEventsAsCommitted clears the pending events
func (f *Forest) MarkEventsAsCommitted() {
	f.events = nil
}

func (f *Forest) addEvent(event events.DomainEvent) {
	f.events = append(f.events, event)
}
