package dynamodb

import (
	"fmt"
	"time"
)

// Item layout:
//
//	PK                 SK                 GSI1PK     GSI1SK      GSI2PK            GSI2SK
//	WORLD#<id>         METADATA           WORLDS     <ts>#<id>
//	WORLD#<id>         TIMELINE#<ts>#<id> TIMELINES  <ts>#<id>
//	ENTRY#<id>         METADATA           ARCHIVE    <ts>#<id>   ARCHIVE#<world>   <ts>#<id>
//	PACKAGE#<name>     METADATA           PACKAGES   <ts>#<name>
//	PACKAGE#<name>     BLOB
//	MERGE#<id>         METADATA           MERGES     <ts>#<id>
//	LOCK#<resource>    LOCK
const (
	skMetadata = "METADATA"
	skBlob     = "BLOB"
	skLock     = "LOCK"

	gsiWorlds    = "WORLDS"
	gsiTimelines = "TIMELINES"
	gsiArchive   = "ARCHIVE"
	gsiPackages  = "PACKAGES"
	gsiMerges    = "MERGES"

	entityWorld    = "WORLD"
	entityTimeline = "TIMELINE"
	entityEntry    = "ARCHIVE_ENTRY"
	entityPackage  = "PACKAGE"
	entityBlob     = "PACKAGE_BLOB"
	entityMerge    = "MERGE"
)

func worldPK(id string) string             { return "WORLD#" + id }
func entryPK(id string) string             { return "ENTRY#" + id }
func packagePK(name string) string         { return "PACKAGE#" + name }
func mergePK(id string) string             { return "MERGE#" + id }
func lockPK(resource string) string        { return "LOCK#" + resource }
func archiveByWorld(worldID string) string { return "ARCHIVE#" + worldID }

func timelineSK(createdAt time.Time, id string) string {
	return "TIMELINE#" + sortKey(createdAt, id)
}

// sortKey orders by creation time; the zero padding keeps lexical and
// numeric order equal.
func sortKey(createdAt time.Time, id string) string {
	return fmt.Sprintf("%020d#%s", createdAt.UTC().UnixNano(), id)
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
