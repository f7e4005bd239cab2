package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
	pkgerrors "cosmos-backend/pkg/errors"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func plant(t *testing.T) (*Forest, *entities.Timeline) {
	t.Helper()
	root := entities.NewRootTimeline(valueobjects.NewTimelineID(), valueobjects.NewWorldID(), t0, nil)
	f, err := PlantForest(root)
	require.NoError(t, err)
	return f, root
}

func branch(t *testing.T, f *Forest, parent valueobjects.TimelineID, title string, offset int) *entities.Timeline {
	t.Helper()
	tl, err := f.Branch(valueobjects.NewTimelineID(), parent, title, "prompt for "+title, t0.Add(time.Duration(offset)*time.Second), nil)
	require.NoError(t, err)
	return tl
}

func titles(ts []*entities.Timeline) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Title()
	}
	return out
}

func TestForest_BranchDefaultsToRoot(t *testing.T) {
	f, root := plant(t)

	tl := branch(t, f, valueobjects.TimelineID{}, "A", 1)
	assert.True(t, tl.ParentID().Equals(root.ID()))
	assert.True(t, tl.IsActive())

	evts := f.GetUncommittedEvents()
	require.Len(t, evts, 1)
	branched := evts[0].(events.TimelineBranched)
	assert.Equal(t, "Prime Timeline", branched.ParentTitle)
}

func TestForest_BranchUnknownParent(t *testing.T) {
	f, _ := plant(t)

	_, err := f.Branch(valueobjects.NewTimelineID(), valueobjects.NewTimelineID(), "A", "", t0, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTimelineNotFound))
	assert.Equal(t, 1, f.Len())
}

func TestForest_DepthFirstOrder(t *testing.T) {
	f, root := plant(t)
	a := branch(t, f, root.ID(), "A", 1)
	b := branch(t, f, root.ID(), "B", 2)
	branch(t, f, a.ID(), "A1", 3)
	branch(t, f, b.ID(), "B1", 4)
	branch(t, f, a.ID(), "A2", 5)

	assert.Equal(t, []string{"Prime Timeline", "A", "A1", "A2", "B", "B1"}, titles(f.DepthFirst()))
	assert.Equal(t, []string{"A1", "A2"}, titles(f.Children(a.ID())))
}

func TestForest_SingleRootAndNoCycles(t *testing.T) {
	f, root := plant(t)
	a := branch(t, f, root.ID(), "A", 1)
	branch(t, f, a.ID(), "A1", 2)

	rebuilt, err := NewForest(f.WorldID(), f.Timelines())
	require.NoError(t, err)

	roots := 0
	for _, tl := range rebuilt.DepthFirst() {
		if tl.IsRoot() {
			roots++
			continue
		}
		// Every timeline reaches the root through parent edges.
		cur := tl
		for steps := 0; !cur.IsRoot(); steps++ {
			require.Less(t, steps, rebuilt.Len())
			cur, _ = rebuilt.Get(cur.ParentID())
		}
		assert.True(t, cur.ID().Equals(root.ID()))
	}
	assert.Equal(t, 1, roots)
	assert.Len(t, rebuilt.DepthFirst(), 3)
}

func TestNewForest_RejectsBrokenSets(t *testing.T) {
	world := valueobjects.NewWorldID()
	rootA := entities.NewRootTimeline(valueobjects.NewTimelineID(), world, t0, nil)
	rootB := entities.NewRootTimeline(valueobjects.NewTimelineID(), world, t0, nil)

	_, err := NewForest(world, []*entities.Timeline{rootA, rootB})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForestViolation))

	_, err = NewForest(world, nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForestViolation))

	x, y := valueobjects.NewTimelineID(), valueobjects.NewTimelineID()
	cycleX := entities.ReconstructTimeline(x, world, y, "x", "", valueobjects.TimelineActive, t0)
	cycleY := entities.ReconstructTimeline(y, world, x, "y", "", valueobjects.TimelineActive, t0)
	_, err = NewForest(world, []*entities.Timeline{rootA, cycleX, cycleY})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForestViolation))

	orphan := entities.ReconstructTimeline(valueobjects.NewTimelineID(), world, valueobjects.NewTimelineID(), "o", "", valueobjects.TimelineActive, t0)
	_, err = NewForest(world, []*entities.Timeline{rootA, orphan})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForestViolation))

	foreign := entities.NewRootTimeline(valueobjects.NewTimelineID(), valueobjects.NewWorldID(), t0, nil)
	_, err = NewForest(world, []*entities.Timeline{foreign})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForestViolation))
}

func TestForest_CollapseAllIsIdempotent(t *testing.T) {
	f, root := plant(t)
	branch(t, f, root.ID(), "A", 1)
	branch(t, f, root.ID(), "B", 2)
	f.MarkEventsAsCommitted()

	first := f.CollapseAll(t0)
	assert.Len(t, first, 3)
	assert.Len(t, f.GetUncommittedEvents(), 1)

	collapsedOnce := map[valueobjects.TimelineID]valueobjects.TimelineStatus{}
	for _, tl := range f.Timelines() {
		collapsedOnce[tl.ID()] = tl.Status()
	}

	second := f.CollapseAll(t0.Add(time.Minute))
	assert.Empty(t, second)
	assert.Len(t, f.GetUncommittedEvents(), 1, "no event for a no-op collapse")

	for _, tl := range f.Timelines() {
		assert.Equal(t, collapsedOnce[tl.ID()], tl.Status())
		assert.Equal(t, valueobjects.TimelineCollapsed, tl.Status())
	}
	assert.Empty(t, f.Active())
}

func TestForest_BranchFromCollapsedParent(t *testing.T) {
	f, root := plant(t)
	f.CollapseAll(t0)

	tl := branch(t, f, root.ID(), "Second wind", 1)
	assert.True(t, tl.IsActive())
	assert.False(t, root.IsActive())
	assert.Len(t, f.Active(), 1)
}

func TestForest_ProjectReparentsToNearestKeptAncestor(t *testing.T) {
	f, root := plant(t)
	a := branch(t, f, root.ID(), "A", 1)
	a1 := branch(t, f, a.ID(), "A1", 2)
	a1x := branch(t, f, a1.ID(), "A1x", 3)

	skip := map[valueobjects.TimelineID]bool{a.ID(): true, a1.ID(): true}
	projected := f.Project(func(tl *entities.Timeline) bool { return !skip[tl.ID()] })

	require.Len(t, projected, 2)
	assert.Equal(t, root.ID(), projected[0].Timeline.ID())
	assert.True(t, projected[0].ParentID.IsZero())
	assert.Equal(t, a1x.ID(), projected[1].Timeline.ID())
	assert.True(t, projected[1].ParentID.Equals(root.ID()))
}
