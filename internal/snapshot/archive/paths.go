package archive

import (
	"strconv"
	"strings"
)

const (
	VersionPath     = "version"
	StatusCachePath = "snapshots/status_cache"
	AccountsDir     = "accounts"
	SnapshotsDir    = "snapshots"
)

// ParseSegmentPath parses accounts/<slot>.<id>.
func ParseSegmentPath(p string) (slot, id uint64, ok bool) {
	name, found := strings.CutPrefix(p, AccountsDir+"/")
	if !found {
		return 0, 0, false
	}
	return ParseSegmentName(name)
}

// ParseSegmentName parses the <slot>.<id> file name of a segment.
func ParseSegmentName(name string) (slot, id uint64, ok bool) {
	a, b, found := strings.Cut(name, ".")
	if !found {
		return 0, 0, false
	}
	slot, err := strconv.ParseUint(a, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	id, err = strconv.ParseUint(b, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return slot, id, true
}

// ParseManifestPath parses snapshots/<slot>/<slot>.
func ParseManifestPath(p string) (uint64, bool) {
	rest, found := strings.CutPrefix(p, SnapshotsDir+"/")
	if !found {
		return 0, false
	}
	dir, file, found := strings.Cut(rest, "/")
	if !found || dir != file {
		return 0, false
	}
	slot, err := strconv.ParseUint(dir, 10, 64)
	if err != nil {
		return 0, false
	}
	return slot, true
}

// IsVersionPath reports whether p is the archive's version entry.
func IsVersionPath(p string) bool {
	return p == VersionPath
}

// IsStatusCachePath reports whether p is the status cache entry.
func IsStatusCachePath(p string) bool {
	return p == StatusCachePath
}
