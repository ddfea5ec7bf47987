package world

import (
	"math"

	"github.com/OCAP2/siegelimit/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Tolerances for the segment/obstacle test, in metres.
const (
	verticalEpsilon = 1e-6
	overlapEpsilon  = 1e-6
)

// FilterVisible keeps the objects whose reference point has a clear line of sight to point.
// Obstacles owned by the object itself or by viewerID are ignored. Objects that are no
// longer in the world, or whose reference point is not a finite position, are dropped.
// It implements placement.VisibilityFilter.
func (w *World) FilterVisible(point core.Position3D, viewerID string, objects []core.WorldObject) []core.WorldObject {
	if !point.IsFinite() {
		return nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	visible := objects[:0:0]
	for _, o := range objects {
		current, ok := w.objects[o.ID]
		if !ok {
			continue
		}
		if !current.ReferencePoint.IsFinite() {
			continue
		}
		if w.segmentBlockedLocked(point, current.ReferencePoint, current.ID, viewerID) {
			continue
		}
		visible = append(visible, current)
	}
	return visible
}

// LineOfSight reports whether nothing opaque lies between a and b.
// Obstacles owned by ownerID or viewerID are skipped.
func (w *World) LineOfSight(a, b core.Position3D, ownerID, viewerID string) bool {
	if !a.IsFinite() || !b.IsFinite() {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.segmentBlockedLocked(a, b, ownerID, viewerID)
}

func (w *World) segmentBlockedLocked(a, b core.Position3D, ownerID, viewerID string) bool {
	if len(w.obstacles) == 0 {
		return false
	}

	minX, maxX := min(a.X, b.X), max(a.X, b.X)
	minY, maxY := min(a.Y, b.Y), max(a.Y, b.Y)
	minZ, maxZ := min(a.Z, b.Z), max(a.Z, b.Z)

	seen := make(map[string]struct{})
	blocked := false
	w.obsGrid.queryBox(minX, minY, maxX, maxY, func(id string) {
		if blocked {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		ob, ok := w.obstacles[id]
		if !ok {
			return
		}
		if ob.OwnerID != "" && (ob.OwnerID == ownerID || ob.OwnerID == viewerID) {
			return
		}
		if maxZ <= ob.MinZ || minZ >= ob.MaxZ {
			return
		}
		if maxX < ob.minX || minX > ob.maxX || maxY < ob.minY || minY > ob.maxY {
			return
		}
		if segmentCrossesObstacle(ob, a, b) {
			blocked = true
		}
	})
	return blocked
}

// segmentCrossesObstacle tests the segment a→b against the obstacle prism.
// The XY projection of the segment is clipped to the footprint; each clipped piece
// maps back to a parameter range along the segment and therefore to a Z range.
// The segment is blocked when that Z range overlaps MinZ..MaxZ with positive extent,
// so rays that only graze an edge, corner or top face pass.
func segmentCrossesObstacle(ob *obstacleEntry, a, b core.Position3D) bool {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	lenSq := dx*dx + dy*dy

	if lenSq < verticalEpsilon*verticalEpsilon {
		pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: a.X, Y: a.Y}, Type: geom.DimXY})
		if !geom.Intersects(pt.AsGeometry(), ob.polygon.AsGeometry()) {
			return false
		}
		return openOverlap(min(a.Z, b.Z), max(a.Z, b.Z), ob.MinZ, ob.MaxZ)
	}

	seg := geom.NewLineString(geom.NewSequence([]float64{a.X, a.Y, b.X, b.Y}, geom.DimXY))
	clipped, err := geom.Intersection(seg.AsGeometry(), ob.polygon.AsGeometry())
	if err != nil {
		// Unclippable geometry counts as opaque: never report a view we could not verify.
		return true
	}
	if clipped.IsEmpty() {
		return false
	}

	for _, piece := range clipped.Dump() {
		if piece.Type() != geom.TypeLineString {
			continue
		}
		seq := piece.DumpCoordinates()
		tMin, tMax := math.Inf(1), math.Inf(-1)
		for i := 0; i < seq.Length(); i++ {
			xy := seq.GetXY(i)
			t := ((xy.X-a.X)*dx + (xy.Y-a.Y)*dy) / lenSq
			tMin = min(tMin, t)
			tMax = max(tMax, t)
		}
		tMin = math.Max(tMin, 0)
		tMax = math.Min(tMax, 1)
		if (tMax-tMin)*math.Sqrt(lenSq) <= overlapEpsilon {
			continue
		}
		z0 := a.Z + tMin*dz
		z1 := a.Z + tMax*dz
		if openOverlap(min(z0, z1), max(z0, z1), ob.MinZ, ob.MaxZ) {
			return true
		}
	}
	return false
}

// openOverlap reports whether [lo,hi] and [min,max] share more than a boundary.
// A degenerate lo == hi range counts when it lies strictly inside.
func openOverlap(lo, hi, obMin, obMax float64) bool {
	return lo < obMax-overlapEpsilon && hi > obMin+overlapEpsilon
}
