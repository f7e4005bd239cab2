package codec

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cosmos-backend/application/ports"
	pkgerrors "cosmos-backend/pkg/errors"
)

const readmeFile = "README.txt"

type seedWorld struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SeedPrompt string          `json:"seed_prompt"`
	Warmth     int             `json:"warmth"`
	MapLayout  json.RawMessage `json:"map_layout"`
	CreatedAt  time.Time       `json:"created_at"`
}

type seedTimeline struct {
	ID           string    `json:"id"`
	ParentID     *string   `json:"parent_timeline_id"`
	Title        string    `json:"title"`
	BranchPrompt string    `json:"branch_prompt"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type seedEntry struct {
	ID         string    `json:"id"`
	TimelineID *string   `json:"timeline_id"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// SeedArchiver writes eternal seeds: full backups of one world, collapsed
// timelines and archive included.
type SeedArchiver struct {
	clock func() time.Time
}

var _ ports.SeedArchiver = (*SeedArchiver)(nil)

// NewSeedArchiver creates an archiver.
func NewSeedArchiver() *SeedArchiver {
	return &SeedArchiver{clock: time.Now}
}

func (a *SeedArchiver) EncodeSeed(snapshot ports.SeedSnapshot) ([]byte, error) {
	w := snapshot.World
	if w == nil {
		return nil, pkgerrors.NewInternalError("seed snapshot has no world")
	}
	now := a.clock().UTC()

	world := seedWorld{
		ID:         w.ID().String(),
		Name:       w.Name(),
		SeedPrompt: w.SeedPrompt(),
		Warmth:     w.Warmth().Int(),
		MapLayout:  json.RawMessage(w.MapLayout().Bytes()),
		CreatedAt:  w.CreatedAt(),
	}

	timelines := make([]seedTimeline, 0, len(snapshot.Timelines))
	for _, t := range snapshot.Timelines {
		st := seedTimeline{
			ID:           t.ID().String(),
			Title:        t.Title(),
			BranchPrompt: t.BranchPrompt(),
			Status:       t.Status().String(),
			CreatedAt:    t.CreatedAt(),
		}
		if !t.IsRoot() {
			parent := t.ParentID().String()
			st.ParentID = &parent
		}
		timelines = append(timelines, st)
	}

	entries := make([]seedEntry, 0, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		se := seedEntry{
			ID:        e.ID().String(),
			Kind:      string(e.Kind()),
			Content:   e.Content(),
			CreatedAt: e.CreatedAt(),
		}
		if !e.TimelineID().IsZero() {
			tid := e.TimelineID().String()
			se.TimelineID = &tid
		}
		entries = append(entries, se)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	members := []struct {
		name string
		v    interface{}
	}{
		{worldFile, world},
		{timelinesFile, timelines},
		{"archive.json", entries},
	}
	for _, m := range members {
		if err := writeJSON(zw, m.name, zip.Deflate, m.v, now); err != nil {
			return nil, pkgerrors.Wrapf(err, "encode %s", m.name)
		}
	}

	rw, err := zw.CreateHeader(&zip.FileHeader{Name: readmeFile, Method: zip.Deflate, Modified: now})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode readme")
	}
	if _, err := rw.Write([]byte(readme(world.Name, len(timelines), len(entries), now))); err != nil {
		return nil, pkgerrors.Wrap(err, "encode readme")
	}
	if err := zw.Close(); err != nil {
		return nil, pkgerrors.Wrap(err, "finish seed archive")
	}
	return buf.Bytes(), nil
}

func readme(name string, timelines, entries int, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eternal seed of %q\n", name)
	fmt.Fprintf(&b, "Written %s\n\n", at.Format(time.RFC3339))
	fmt.Fprintf(&b, "world.json      world metadata and map layout\n")
	fmt.Fprintf(&b, "timelines.json  %d timeline(s), collapsed ones included\n", timelines)
	fmt.Fprintf(&b, "archive.json    %d archive entr(ies)\n\n", entries)
	b.WriteString("This is a private backup. It is not a share package and cannot be imported.\n")
	return b.String()
}
