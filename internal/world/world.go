// Package world holds the limiter's view of the host world: placed objects with a
// spatial index for radius queries, and obstacle geometry for line of sight.
// The host feeds it through world commands; placement checks only read it.
package world

import (
	"fmt"
	"math"
	"sync"

	"github.com/OCAP2/siegelimit/internal/geo"
	"github.com/OCAP2/siegelimit/internal/placement"
	"github.com/OCAP2/siegelimit/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
)

// DefaultCellSize is the grid cell edge in metres. Siege check radii are a few metres,
// so a query touches at most four cells.
const DefaultCellSize = 16.0

// Options configures a World.
type Options struct {
	CellSize float64
	// Ready makes queries available before the host completes its first sync.
	Ready bool
}

type obstacleEntry struct {
	core.Obstacle
	polygon                geom.Polygon
	minX, minY, maxX, maxY float64
}

// World is safe for concurrent use. Reads (FindNearby, FilterVisible) share a read lock.
type World struct {
	mu sync.RWMutex

	cellSize  float64
	objects   map[string]core.WorldObject
	byKind    map[string]*grid
	obstacles map[string]*obstacleEntry
	obsGrid   *grid

	syncing bool
	ready   bool
}

// Stats is a point-in-time summary of the world snapshot.
type Stats struct {
	Objects       int            `json:"objects"`
	ObjectsByKind map[string]int `json:"objectsByKind"`
	Obstacles     int            `json:"obstacles"`
	Syncing       bool           `json:"syncing"`
	Ready         bool           `json:"ready"`
}

// New creates an empty World.
func New(opts Options) *World {
	cellSize := opts.CellSize
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &World{
		cellSize:  cellSize,
		objects:   make(map[string]core.WorldObject),
		byKind:    make(map[string]*grid),
		obstacles: make(map[string]*obstacleEntry),
		obsGrid:   newGrid(cellSize),
		ready:     opts.Ready,
	}
}

// UpsertObject adds or replaces an object.
func (w *World) UpsertObject(o core.WorldObject) error {
	if o.ID == "" {
		return fmt.Errorf("object id is empty")
	}
	if !o.Position.InWorld() || !o.ReferencePoint.InWorld() {
		return fmt.Errorf("object %s: %w", o.ID, geo.ErrInvalidCoordinates)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.objects[o.ID]; ok && prev.Kind != o.Kind {
		w.removeFromKindLocked(prev)
	}
	g, ok := w.byKind[o.Kind]
	if !ok {
		g = newGrid(w.cellSize)
		w.byKind[o.Kind] = g
	}
	g.insertPoint(o.ID, o.Position.X, o.Position.Y)
	w.objects[o.ID] = o
	return nil
}

// RemoveObject deletes an object and any obstacles it owns. Unknown IDs are ignored.
func (w *World) RemoveObject(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	o, ok := w.objects[id]
	if !ok {
		return false
	}
	w.removeFromKindLocked(o)
	delete(w.objects, id)

	for obID, ob := range w.obstacles {
		if ob.OwnerID == id {
			w.obsGrid.remove(obID)
			delete(w.obstacles, obID)
		}
	}
	return true
}

func (w *World) removeFromKindLocked(o core.WorldObject) {
	g, ok := w.byKind[o.Kind]
	if !ok {
		return
	}
	g.remove(o.ID)
	if g.len() == 0 {
		delete(w.byKind, o.Kind)
	}
}

// Object returns the current state of an object.
func (w *World) Object(id string) (core.WorldObject, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objects[id]
	return o, ok
}

// UpsertObstacle adds or replaces opaque geometry.
func (w *World) UpsertObstacle(ob core.Obstacle) error {
	if ob.ID == "" {
		return fmt.Errorf("obstacle id is empty")
	}
	if math.IsNaN(ob.MinZ) || math.IsNaN(ob.MaxZ) {
		return fmt.Errorf("obstacle %s: %w", ob.ID, geo.ErrInvalidCoordinates)
	}
	if ob.MinZ > ob.MaxZ {
		ob.MinZ, ob.MaxZ = ob.MaxZ, ob.MinZ
	}
	for _, p := range ob.Footprint {
		if !(core.Position3D{X: p.X, Y: p.Y}).InWorld() {
			return fmt.Errorf("obstacle %s: %w", ob.ID, geo.ErrInvalidCoordinates)
		}
	}
	poly, err := geo.FootprintPolygon(ob.Footprint)
	if err != nil {
		return fmt.Errorf("obstacle %s: %w", ob.ID, err)
	}

	entry := &obstacleEntry{Obstacle: ob, polygon: poly}
	entry.minX, entry.minY, entry.maxX, entry.maxY = geo.FootprintBounds(ob.Footprint)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.obsGrid.insertBox(ob.ID, entry.minX, entry.minY, entry.maxX, entry.maxY)
	w.obstacles[ob.ID] = entry
	return nil
}

// RemoveObstacle deletes an obstacle. Unknown IDs are ignored.
func (w *World) RemoveObstacle(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.obstacles[id]; !ok {
		return false
	}
	w.obsGrid.remove(id)
	delete(w.obstacles, id)
	return true
}

// BeginSync clears the snapshot and makes queries unavailable until EndSync.
// The host then replays every object and obstacle.
func (w *World) BeginSync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clearLocked()
	w.syncing = true
}

// EndSync makes queries available again.
func (w *World) EndSync() Stats {
	w.mu.Lock()
	w.syncing = false
	w.ready = true
	w.mu.Unlock()
	return w.Stats()
}

// Reset clears the snapshot and marks it not ready, e.g. when a mission ends.
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clearLocked()
	w.syncing = false
	w.ready = false
}

func (w *World) clearLocked() {
	w.objects = make(map[string]core.WorldObject)
	w.byKind = make(map[string]*grid)
	w.obstacles = make(map[string]*obstacleEntry)
	w.obsGrid = newGrid(w.cellSize)
}

// Available reports whether queries can currently be answered.
func (w *World) Available() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready && !w.syncing
}

// FindNearby returns every object of kind whose position is within radius of point (inclusive).
// It implements placement.SpatialQuery.
func (w *World) FindNearby(point core.Position3D, radius float64, kind string) ([]core.WorldObject, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.ready || w.syncing {
		return nil, placement.ErrQueryUnavailable
	}
	if radius < 0 || !point.IsFinite() || math.IsNaN(radius) {
		return nil, nil
	}
	if !point.InWorld() {
		return nil, fmt.Errorf("query point: %w", geo.ErrInvalidCoordinates)
	}

	g, ok := w.byKind[kind]
	if !ok {
		return nil, nil
	}

	radiusSq := radius * radius
	var found []core.WorldObject
	g.queryBox(point.X-radius, point.Y-radius, point.X+radius, point.Y+radius, func(id string) {
		o, ok := w.objects[id]
		if !ok {
			return
		}
		if o.Position.DistanceSq(point) <= radiusSq {
			found = append(found, o)
		}
	})
	return found, nil
}

// Stats returns counts for status reporting.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	byKind := make(map[string]int, len(w.byKind))
	for kind, g := range w.byKind {
		byKind[kind] = g.len()
	}
	return Stats{
		Objects:       len(w.objects),
		ObjectsByKind: byKind,
		Obstacles:     len(w.obstacles),
		Syncing:       w.syncing,
		Ready:         w.ready,
	}
}
