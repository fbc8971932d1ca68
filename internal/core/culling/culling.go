// Package culling reduces a pin collection to the subset worth rendering for
// a viewport: pins inside the box, own pins first, then most liked, capped.
package culling

import (
	"sort"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// DefaultCap is the visible-set size used when configuration does not set one.
const DefaultCap = 200

// InBounds reports whether p is a valid coordinate inside vp (edges inclusive).
func InBounds(p domain.GeoPoint, vp domain.Bounds) bool {
	return p.Valid() && vp.Contains(p)
}

// Less is the display priority: the viewer's own pins first, then by like
// count descending.
func Less(a, b domain.Pin) bool {
	if a.IsMine != b.IsMine {
		return a.IsMine
	}
	return a.LikeCount > b.LikeCount
}

// ComputeVisible returns the pins inside vp, ordered by Less and truncated to
// at most limit entries. Ties keep their input order. Pins with invalid
// coordinates are dropped. An invalid viewport or a non-positive limit yields
// an empty result. The input slice is never modified.
func ComputeVisible(pins []domain.Pin, vp domain.Bounds, limit int) []domain.Pin {
	visible := []domain.Pin{}
	if limit <= 0 || !vp.Valid() {
		return visible
	}

	for _, p := range pins {
		if InBounds(p.Location, vp) {
			visible = append(visible, p)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return Less(visible[i], visible[j])
	})

	if len(visible) > limit {
		visible = visible[:limit:limit]
	}
	return visible
}
