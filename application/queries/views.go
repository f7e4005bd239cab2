package queries

import (
	"encoding/json"
	"time"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
)

// WorldView is the API shape of a world
type WorldView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SeedPrompt string          `json:"seed_prompt"`
	Warmth     int             `json:"warmth"`
	MapLayout  json.RawMessage `json:"map_layout"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewWorldView maps a world
func NewWorldView(w *entities.World) WorldView {
	return WorldView{
		ID:         w.ID().String(),
		Name:       w.Name(),
		SeedPrompt: w.SeedPrompt(),
		Warmth:     w.Warmth().Int(),
		MapLayout:  json.RawMessage(w.MapLayout().Bytes()),
		CreatedAt:  w.CreatedAt(),
	}
}

// StorageReport counts what the store holds
type StorageReport struct {
	Warning   bool `json:"warning"`
	Worlds    int  `json:"worlds"`
	Timelines int  `json:"timelines"`
}

// ListWorldsResult is the world listing
type ListWorldsResult struct {
	Items   []WorldView   `json:"items"`
	Storage StorageReport `json:"storage"`
}

// TimelineView is the API shape of a timeline. ParentTimelineID is null for
// the root.
type TimelineView struct {
	ID               string    `json:"id"`
	WorldID          string    `json:"world_id"`
	ParentTimelineID *string   `json:"parent_timeline_id"`
	Title            string    `json:"title"`
	BranchPrompt     string    `json:"branch_prompt"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	ArchiveRefs      []string  `json:"archive_refs"`
}

// NewTimelineView maps a timeline
func NewTimelineView(t *entities.Timeline) TimelineView {
	v := TimelineView{
		ID:           t.ID().String(),
		WorldID:      t.WorldID().String(),
		Title:        t.Title(),
		BranchPrompt: t.BranchPrompt(),
		Status:       t.Status().String(),
		CreatedAt:    t.CreatedAt(),
		ArchiveRefs:  make([]string, 0, len(t.ArchiveRefs())),
	}
	if !t.IsRoot() {
		parent := t.ParentID().String()
		v.ParentTimelineID = &parent
	}
	for _, ref := range t.ArchiveRefs() {
		v.ArchiveRefs = append(v.ArchiveRefs, ref.String())
	}
	return v
}

// ListTimelinesResult is the depth-first timeline listing
type ListTimelinesResult struct {
	Items []TimelineView `json:"items"`
}

// ArchiveEntryView is the API shape of an archive entry
type ArchiveEntryView struct {
	ID         string    `json:"id"`
	WorldID    string    `json:"world_id"`
	TimelineID *string   `json:"timeline_id"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewArchiveEntryView maps an archive entry
func NewArchiveEntryView(e *entities.ArchiveEntry) ArchiveEntryView {
	v := ArchiveEntryView{
		ID:        e.ID().String(),
		WorldID:   e.WorldID().String(),
		Kind:      string(e.Kind()),
		Content:   e.Content(),
		CreatedAt: e.CreatedAt(),
	}
	if !e.TimelineID().IsZero() {
		id := e.TimelineID().String()
		v.TimelineID = &id
	}
	return v
}

// ArchiveSearchResult is the archive search response
type ArchiveSearchResult struct {
	Items []ArchiveEntryView `json:"items"`
}

// ReflectionView is the reflect response
type ReflectionView struct {
	Message string            `json:"message"`
	Oracle  string            `json:"oracle"`
	Tone    valueobjects.Tone `json:"tone,omitempty"`
	EntryID string            `json:"entry_id,omitempty"`
}

// ShareView is the API shape of a ledger record. Peers read this shape too.
type ShareView struct {
	PackageName string                   `json:"package_name"`
	WorldID     string                   `json:"world_id"`
	WorldName   string                   `json:"world_name"`
	Visibility  string                   `json:"visibility"`
	WisdomMode  string                   `json:"wisdom_mode"`
	Credits     []valueobjects.Credit    `json:"credits"`
	Manifest    entities.PackageManifest `json:"manifest"`
	SizeBytes   int64                    `json:"size_bytes"`
	Revoked     bool                     `json:"revoked"`
	RevokedAt   *time.Time               `json:"revoked_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// NewShareView maps a ledger record
func NewShareView(p *entities.SharePackage) ShareView {
	credits := p.Credits()
	if credits == nil {
		credits = []valueobjects.Credit{}
	}
	return ShareView{
		PackageName: p.Name().String(),
		WorldID:     p.WorldID().String(),
		WorldName:   p.Manifest().WorldName,
		Visibility:  p.Visibility().String(),
		WisdomMode:  p.WisdomMode().String(),
		Credits:     credits,
		Manifest:    p.Manifest(),
		SizeBytes:   p.SizeBytes(),
		Revoked:     p.IsRevoked(),
		RevokedAt:   p.RevokedAt(),
		CreatedAt:   p.CreatedAt(),
	}
}

// ListSharesResult is the ledger listing
type ListSharesResult struct {
	Items []ShareView `json:"items"`
}

// PackageDownload is a package blob with its file name
type PackageDownload struct {
	FileName string
	Blob     []byte
}

// NetworkEntryView is the API shape of a directory entry
type NetworkEntryView struct {
	Title      string                `json:"title"`
	Thumbnail  string                `json:"thumbnail"`
	Package    string                `json:"package"`
	Credits    []valueobjects.Credit `json:"credits"`
	Visibility string                `json:"visibility"`
	Peer       string                `json:"peer"`
	SharedAt   time.Time             `json:"shared_at"`
}

// NewNetworkEntryView maps a directory entry
func NewNetworkEntryView(e entities.NetworkEntry) NetworkEntryView {
	credits := e.Credits
	if credits == nil {
		credits = []valueobjects.Credit{}
	}
	return NetworkEntryView{
		Title:      e.Title,
		Thumbnail:  e.Thumbnail,
		Package:    e.Package,
		Credits:    credits,
		Visibility: e.Visibility.String(),
		Peer:       e.Peer,
		SharedAt:   e.SharedAt,
	}
}

// ListNetworkResult is the directory listing
type ListNetworkResult struct {
	Items []NetworkEntryView `json:"items"`
}

// MergeView is the API shape of an import record. Decisions is "all" when
// no keep_timelines filter was given.
type MergeView struct {
	ID                string                    `json:"merge_id"`
	ImportedWorldID   string                    `json:"imported_world_id"`
	SourcePackage     string                    `json:"source_package"`
	Decisions         interface{}               `json:"decisions"`
	Conflicts         []entities.MergeConflict  `json:"conflicts"`
	ImportedTimelines int                       `json:"imported_timelines"`
	Status            string                    `json:"status"`
	Manifest          *entities.PackageManifest `json:"manifest,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

// NewMergeView maps an import record
func NewMergeView(r *entities.MergeRecord) MergeView {
	var decisions interface{} = "all"
	if len(r.KeepTimelines) > 0 {
		decisions = r.KeepTimelines
	}
	conflicts := r.Conflicts
	if conflicts == nil {
		conflicts = []entities.MergeConflict{}
	}
	return MergeView{
		ID:                r.ID.String(),
		ImportedWorldID:   r.WorldID.String(),
		SourcePackage:     r.SourcePackage.String(),
		Decisions:         decisions,
		Conflicts:         conflicts,
		ImportedTimelines: r.ImportedTimelines,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
	}
}

// ListMergesResult is the import history
type ListMergesResult struct {
	Items []MergeView `json:"items"`
}

// SeedDownload is an eternal seed archive with its file name
type SeedDownload struct {
	FileName string
	Blob     []byte
}
