package valueobjects

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "cosmos-backend/pkg/errors"
)

func TestNewWarmth(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
		tone    Tone
	}{
		{name: "lower bound", value: 0, tone: ToneRealistic},
		{name: "just below hopeful", value: 59, tone: ToneRealistic},
		{name: "hopeful threshold", value: 60, tone: ToneHopeful},
		{name: "upper bound", value: 100, tone: ToneHopeful},
		{name: "negative", value: -1, wantErr: true},
		{name: "too warm", value: 101, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWarmth(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidWarmth))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, w.Int())
			assert.Equal(t, tt.tone, w.Tone())
		})
	}
}

func TestParsePackageName(t *testing.T) {
	_, err := ParsePackageName("")
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = ParsePackageName("../etc/passwd")
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = ParsePackageName(".hidden")
	assert.True(t, pkgerrors.IsValidation(err))

	name, err := ParsePackageName("  cosmos-1-1700000000.agentora ")
	require.NoError(t, err)
	assert.Equal(t, "cosmos-1-1700000000.agentora", name.String())
}

func TestGeneratePackageName_IsValidAndDistinct(t *testing.T) {
	world := NewWorldID()
	now := time.Unix(1700000000, 0)

	a := GeneratePackageName(world, now, ".agentora")
	b := GeneratePackageName(world, now, ".agentora")

	assert.NotEqual(t, a.String(), b.String())
	assert.True(t, strings.HasPrefix(a.String(), "cosmos-"+world.String()[:8]+"-1700000000-"))
	assert.True(t, strings.HasSuffix(a.String(), ".agentora"))

	_, err := ParsePackageName(a.String())
	assert.NoError(t, err)
}

func TestParseVisibilityAndWisdomMode(t *testing.T) {
	v, err := ParseVisibility("")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPrivate, v)
	assert.False(t, v.Listed())

	v, err = ParseVisibility("anonymized")
	require.NoError(t, err)
	assert.True(t, v.Listed())
	assert.False(t, v.ShowsNames())

	_, err = ParseVisibility("everyone")
	assert.True(t, pkgerrors.IsValidation(err))

	m, err := ParseWisdomMode("full_public")
	require.NoError(t, err)
	assert.False(t, m.Redacts())

	m, err = ParseWisdomMode("")
	require.NoError(t, err)
	assert.True(t, m.Redacts())
}

func TestMapLayout(t *testing.T) {
	layout, err := NewMapLayout([]byte(` {"points":[1,2]} `))
	require.NoError(t, err)
	assert.Equal(t, `{"points":[1,2]}`, string(layout.Bytes()))

	_, err = NewMapLayout([]byte(`{"points":`))
	assert.True(t, pkgerrors.IsValidation(err))

	empty, err := NewMapLayout(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty.Bytes()))

	var points []MapPoint
	require.NoError(t, json.Unmarshal(SeedMapLayout("Ember", "a spark").Bytes(), &points))
	require.Len(t, points, 3)
	assert.Equal(t, "Ember Core", points[0].Label)
	assert.Equal(t, "a spark", points[1].Note)
}

func TestTimelineIDJSON(t *testing.T) {
	id := NewTimelineID()
	raw, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded TimelineID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, id.Equals(decoded))

	var zero TimelineID
	raw, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &decoded))
}

func TestAnonymizeCredits(t *testing.T) {
	credits := []Credit{{Name: "Ada", Role: "author"}, {Name: "Lin", Role: "editor"}}
	out := AnonymizeCredits(credits)
	assert.Equal(t, []Credit{{Role: "author"}, {Role: "editor"}}, out)
	assert.Equal(t, "Ada", credits[0].Name)
}
