package world

import (
	"math"

	"github.com/OCAP2/siegelimit/pkg/core"
)

const (
	// maxEntryCells caps how many cells one entry is indexed under. Larger
	// boxes are kept on a side list that every query visits.
	maxEntryCells = 1024
	// minScanCells is the smallest query box answered by scanning entries
	// instead of walking cells.
	minScanCells = 256
)

type cellKey struct {
	X int64
	Y int64
}

// grid is a sparse uniform grid over the XY plane. Entries are IDs covering one
// or more cells; lookups return every ID in the cells a box overlaps.
type grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]string
	entries     map[string][]cellKey
	wide        map[string]struct{}
}

func newGrid(cellSize float64) *grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]string),
		entries:     make(map[string][]cellKey),
		wide:        make(map[string]struct{}),
	}
}

// coord clamps v to the world bounds so the conversion never overflows.
func (g *grid) coord(v float64) int64 {
	v = max(-core.MaxCoordinate, min(core.MaxCoordinate, v))
	return int64(math.Floor(v * g.invCellSize))
}

func (g *grid) span(minX, minY, maxX, maxY float64) (x0, y0, x1, y1 int64, cells float64) {
	x0, y0 = g.coord(minX), g.coord(minY)
	x1, y1 = g.coord(maxX), g.coord(maxY)
	return x0, y0, x1, y1, float64(x1-x0+1) * float64(y1-y0+1)
}

// insertBox indexes id under every cell the box touches, replacing any previous entry.
func (g *grid) insertBox(id string, minX, minY, maxX, maxY float64) {
	g.remove(id)

	x0, y0, x1, y1, n := g.span(minX, minY, maxX, maxY)
	if n > maxEntryCells {
		g.wide[id] = struct{}{}
		g.entries[id] = nil
		return
	}

	keys := make([]cellKey, 0, int(n))
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			k := cellKey{X: cx, Y: cy}
			g.cells[k] = append(g.cells[k], id)
			keys = append(keys, k)
		}
	}
	g.entries[id] = keys
}

func (g *grid) insertPoint(id string, x, y float64) {
	g.insertBox(id, x, y, x, y)
}

func (g *grid) remove(id string) {
	keys, ok := g.entries[id]
	if !ok {
		return
	}
	delete(g.wide, id)
	for _, k := range keys {
		bucket := g.cells[k]
		for i, existing := range bucket {
			if existing == id {
				bucket[i] = bucket[len(bucket)-1]
				bucket = bucket[:len(bucket)-1]
				break
			}
		}
		if len(bucket) == 0 {
			delete(g.cells, k)
		} else {
			g.cells[k] = bucket
		}
	}
	delete(g.entries, id)
}

// queryBox calls visit for every ID in cells overlapping the box.
// IDs spanning several cells may be visited more than once. A box covering
// more cells than there are entries visits every entry instead.
func (g *grid) queryBox(minX, minY, maxX, maxY float64, visit func(id string)) {
	x0, y0, x1, y1, n := g.span(minX, minY, maxX, maxY)
	if n > max(minScanCells, float64(len(g.entries))) {
		for id := range g.entries {
			visit(id)
		}
		return
	}

	for id := range g.wide {
		visit(id)
	}
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			for _, id := range g.cells[cellKey{X: cx, Y: cy}] {
				visit(id)
			}
		}
	}
}

func (g *grid) len() int {
	return len(g.entries)
}
