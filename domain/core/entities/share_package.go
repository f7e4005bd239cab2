package entities

import (
	"time"

	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
)

// PackageFormat identifies the package layout written by this store.
const PackageFormat = "agentora-open-cosmos-v1"

// PackageManifest describes a package's contents. It travels inside the
// package and is kept by the ledger.
type PackageManifest struct {
	Format                 string                  `json:"format"`
	WorldID                string                  `json:"world_id"`
	WorldName              string                  `json:"world_name"`
	CreatedAt              time.Time               `json:"created_at"`
	Visibility             valueobjects.Visibility `json:"visibility"`
	WisdomMode             valueobjects.WisdomMode `json:"wisdom_mode"`
	Timelines              int                     `json:"timelines"`
	BackwardCompatibleWith []string                `json:"backward_compatible_with"`
}

// SharePackage is the ledger record of one exported package. The only mutation
// after publication is the one-way revoked flag.
type SharePackage struct {
	name       valueobjects.PackageName
	worldID    valueobjects.WorldID
	visibility valueobjects.Visibility
	wisdomMode valueobjects.WisdomMode
	credits    []valueobjects.Credit
	manifest   PackageManifest
	sizeBytes  int64
	revoked    bool
	revokedAt  *time.Time
	createdAt  time.Time

	events []events.DomainEvent
}

// NewSharePackage creates an unrevoked ledger record.
func NewSharePackage(
	name valueobjects.PackageName,
	worldID valueobjects.WorldID,
	visibility valueobjects.Visibility,
	wisdomMode valueobjects.WisdomMode,
	credits []valueobjects.Credit,
	manifest PackageManifest,
	sizeBytes int64,
	now time.Time,
) *SharePackage {
	p := &SharePackage{
		name:       name,
		worldID:    worldID,
		visibility: visibility,
		wisdomMode: wisdomMode,
		credits:    credits,
		manifest:   manifest,
		sizeBytes:  sizeBytes,
		createdAt:  now.UTC(),
	}
	p.addEvent(events.NewPackagePublished(name, worldID, manifest.WorldName, visibility, wisdomMode, manifest.Timelines, p.createdAt))
	return p
}

// ReconstructSharePackage rebuilds a ledger record from storage.
func ReconstructSharePackage(
	name valueobjects.PackageName,
	worldID valueobjects.WorldID,
	visibility valueobjects.Visibility,
	wisdomMode valueobjects.WisdomMode,
	credits []valueobjects.Credit,
	manifest PackageManifest,
	sizeBytes int64,
	revoked bool,
	revokedAt *time.Time,
	createdAt time.Time,
) *SharePackage {
	return &SharePackage{
		name:       name,
		worldID:    worldID,
		visibility: visibility,
		wisdomMode: wisdomMode,
		credits:    credits,
		manifest:   manifest,
		sizeBytes:  sizeBytes,
		revoked:    revoked,
		revokedAt:  revokedAt,
		createdAt:  createdAt,
	}
}

func (p *SharePackage) Name() valueobjects.PackageName      { return p.name }
func (p *SharePackage) WorldID() valueobjects.WorldID       { return p.worldID }
func (p *SharePackage) Visibility() valueobjects.Visibility { return p.visibility }
func (p *SharePackage) WisdomMode() valueobjects.WisdomMode { return p.wisdomMode }
func (p *SharePackage) Credits() []valueobjects.Credit      { return p.credits }
func (p *SharePackage) Manifest() PackageManifest           { return p.manifest }
func (p *SharePackage) SizeBytes() int64                    { return p.sizeBytes }
func (p *SharePackage) IsRevoked() bool                     { return p.revoked }
func (p *SharePackage) RevokedAt() *time.Time               { return p.revokedAt }
func (p *SharePackage) CreatedAt() time.Time                { return p.createdAt }

// Revoke disables importing the package. It reports whether the flag changed.
func (p *SharePackage) Revoke(now time.Time) bool {
	if p.revoked {
		return false
	}
	at := now.UTC()
	p.revoked = true
	p.revokedAt = &at
	p.addEvent(events.NewPackageRevoked(p.name, p.worldID, at))
	return true
}

// Summary returns what a peer advertises about the package.
func (p *SharePackage) Summary() ShareSummary {
	return ShareSummary{
		Package:    p.name.String(),
		WorldName:  p.manifest.WorldName,
		Visibility: p.visibility,
		Credits:    p.credits,
		Revoked:    p.revoked,
		SharedAt:   p.createdAt,
	}
}

// GetUncommittedEvents returns events raised since the last commit
func (p *SharePackage) GetUncommittedEvents() []events.DomainEvent {
	return p.events
}

// MarkEventsAsCommitted clears the pending events
func (p *SharePackage) MarkEventsAsCommitted() {
	p.events = nil
}

func (p *SharePackage) addEvent(event events.DomainEvent) {
	p.events = append(p.events, event)
}

// ShareSummary is the part of a ledger record visible to other installations.
type ShareSummary struct {
	Package    string
	WorldName  string
	Visibility valueobjects.Visibility
	Credits    []valueobjects.Credit
	Revoked    bool
	SharedAt   time.Time
}

// NetworkEntry projects the summary for the network directory, or reports
// false when it must not be listed.
func (s ShareSummary) NetworkEntry(peer, thumbnail string) (NetworkEntry, bool) {
	if s.Revoked || !s.Visibility.Listed() {
		return NetworkEntry{}, false
	}
	credits := s.Credits
	if !s.Visibility.ShowsNames() {
		credits = valueobjects.AnonymizeCredits(credits)
	}
	title := s.WorldName
	if title == "" {
		title = s.Package
	}
	return NetworkEntry{
		Title:      title,
		Thumbnail:  thumbnail,
		Package:    s.Package,
		Credits:    credits,
		Visibility: s.Visibility,
		Peer:       peer,
		SharedAt:   s.SharedAt,
	}, true
}

// NetworkEntry is the read-only directory projection of a listed package.
type NetworkEntry struct {
	Title      string
	Thumbnail  string
	Package    string
	Credits    []valueobjects.Credit
	Visibility valueobjects.Visibility
	Peer       string
	SharedAt   time.Time
}
