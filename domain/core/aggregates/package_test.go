package aggregates

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

func newWorldForest(t *testing.T) (*entities.World, *Forest) {
	t.Helper()
	warmth, err := valueobjects.NewWarmth(75)
	require.NoError(t, err)
	worldID := valueobjects.NewWorldID()
	root := entities.NewRootTimeline(valueobjects.NewTimelineID(), worldID, t0, nil)
	world, err := entities.NewWorld(worldID, root.ID(), "Ember", "Grandma Rosa's kitchen", warmth, nil, t0, nil)
	require.NoError(t, err)
	f, err := PlantForest(root)
	require.NoError(t, err)
	return world, f
}

func packagedTitles(p *Package) []string {
	out := make([]string, len(p.Timelines))
	for i, tl := range p.Timelines {
		out[i] = tl.Title
	}
	return out
}

func TestBuildPackage_OnlyActiveTimelines(t *testing.T) {
	world, f := newWorldForest(t)
	keepMe := branch(t, f, f.Root().ID(), "Keep me", 1)
	dropMe := branch(t, f, f.Root().ID(), "Drop me", 2)
	dropMe.Collapse()

	p := BuildPackage(world, f, valueobjects.VisibilityPublicWithCredits, valueobjects.WisdomFullPublic, nil, t0)

	assert.Equal(t, []string{"Prime Timeline", "Keep me"}, packagedTitles(p))
	assert.Equal(t, 2, p.Manifest.Timelines)
	assert.Equal(t, keepMe.ID().String(), p.Timelines[1].ID)
	assert.Equal(t, f.Root().ID().String(), p.Timelines[1].ParentID)
	for _, tl := range p.Timelines {
		assert.Equal(t, "active", tl.Status)
	}
}

func TestBuildPackage_CollapsedRootPromotesChildren(t *testing.T) {
	world, f := newWorldForest(t)
	f.CollapseAll(t0)
	branch(t, f, f.Root().ID(), "Late A", 1)
	branch(t, f, f.Root().ID(), "Late B", 2)

	p := BuildPackage(world, f, valueobjects.VisibilityPrivate, valueobjects.WisdomFullPublic, nil, t0)

	require.Len(t, p.Timelines, 2)
	assert.Empty(t, p.Timelines[0].ParentID)
	assert.Empty(t, p.Timelines[1].ParentID)
	require.NoError(t, p.Validate())
}

func TestBuildPackage_Redaction(t *testing.T) {
	world, f := newWorldForest(t)
	branch(t, f, f.Root().ID(), "A", 1)
	credits := []valueobjects.Credit{{Name: "Ada Lovelace", Role: "author"}}

	anon := BuildPackage(world, f, valueobjects.VisibilityAnonymized, valueobjects.WisdomAnonymized, credits, t0)
	raw, err := json.Marshal(anon)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Ada Lovelace")
	assert.NotContains(t, string(raw), "Grandma Rosa")
	assert.NotContains(t, string(raw), "prompt for A")
	assert.Equal(t, []valueobjects.Credit{{Role: "author"}}, anon.Credits)

	full := BuildPackage(world, f, valueobjects.VisibilityPublicWithCredits, valueobjects.WisdomFullPublic, credits, t0)
	raw, err = json.Marshal(full)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Ada Lovelace")
	assert.Contains(t, string(raw), "Grandma Rosa")
	assert.Contains(t, string(raw), "prompt for A")
}

func TestMaterialize_MirrorsStructureInNewWorld(t *testing.T) {
	world, f := newWorldForest(t)
	b := branch(t, f, f.Root().ID(), "B", 1)
	p := BuildPackage(world, f, valueobjects.VisibilityPublicWithCredits, valueobjects.WisdomFullPublic, nil, t0)

	newID := valueobjects.NewWorldID()
	m, err := p.Materialize(newID, nil, t0, nil)
	require.NoError(t, err)

	assert.False(t, m.World.ID().Equals(world.ID()))
	assert.Equal(t, "Ember (Imported)", m.World.Name())
	assert.Equal(t, 75, m.World.Warmth().Int())
	assert.Equal(t, 2, m.Imported)
	assert.Empty(t, m.Conflicts)

	order := m.Forest.DepthFirst()
	require.Len(t, order, 2)
	assert.Equal(t, "Prime Timeline", order[0].Title())
	assert.True(t, order[0].IsRoot())
	assert.Equal(t, "B", order[1].Title())
	assert.True(t, order[1].ParentID().Equals(order[0].ID()))
	assert.False(t, order[1].ID().Equals(b.ID()), "imported timelines get fresh ids")
	assert.True(t, order[1].WorldID().Equals(newID))
}

func TestMaterialize_KeepTimelines(t *testing.T) {
	world, f := newWorldForest(t)
	a := branch(t, f, f.Root().ID(), "A", 1)
	a1 := branch(t, f, a.ID(), "A1", 2)
	branch(t, f, f.Root().ID(), "B", 3)
	p := BuildPackage(world, f, valueobjects.VisibilityPublicWithCredits, valueobjects.WisdomFullPublic, nil, t0)

	m, err := p.Materialize(valueobjects.NewWorldID(), []string{"A1", "Missing"}, t0, nil)
	require.NoError(t, err)

	order := m.Forest.DepthFirst()
	assert.Equal(t, []string{"Prime Timeline", "A1"}, titles(order))
	assert.True(t, order[1].ParentID().Equals(order[0].ID()), "A1 re-parents onto the root")
	assert.Equal(t, []entities.MergeConflict{{Title: "Missing", Resolution: entities.ResolutionNotInPackage}}, m.Conflicts)

	// Original ids select too.
	m, err = p.Materialize(valueobjects.NewWorldID(), []string{a1.ID().String()}, t0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Prime Timeline", "A1"}, titles(m.Forest.DepthFirst()))
	assert.Empty(t, m.Conflicts)
}

func TestMaterialize_MultipleRootsGetSyntheticRoot(t *testing.T) {
	world, f := newWorldForest(t)
	f.CollapseAll(t0)
	branch(t, f, f.Root().ID(), "Late A", 1)
	branch(t, f, f.Root().ID(), "Late B", 2)
	p := BuildPackage(world, f, valueobjects.VisibilityPrivate, valueobjects.WisdomAnonymized, nil, t0)

	m, err := p.Materialize(valueobjects.NewWorldID(), nil, t0, nil)
	require.NoError(t, err)

	order := m.Forest.DepthFirst()
	assert.Equal(t, []string{"Prime Timeline", "Late A", "Late B"}, titles(order))
	assert.Equal(t, 2, m.Imported)
	assert.Contains(t, string(m.World.MapLayout().Bytes()), "Ember (Imported) Core", "redacted layouts are reseeded")
}

func TestPackageValidate_RejectsCorruptTimelines(t *testing.T) {
	p := &Package{
		World: PackagedWorld{Name: "x"},
		Timelines: []PackagedTimeline{
			{ID: "a", ParentID: "b"},
			{ID: "b", ParentID: "a"},
		},
	}
	err := p.Validate()
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCorruptPackage))

	p.Timelines = []PackagedTimeline{{ID: "a", ParentID: "ghost"}}
	assert.True(t, pkgerrors.HasCode(p.Validate(), pkgerrors.CodeCorruptPackage))

	p.Manifest.Format = "something-else"
	p.Timelines = nil
	assert.True(t, pkgerrors.HasCode(p.Validate(), pkgerrors.CodeCorruptPackage))
}
