// pkg/core/types.go
package core

import "math"

// Position3D represents a 3D coordinate without GIS dependencies
type Position3D struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing
	Z float64 `json:"z"` // elevation ASL
}

// Sub returns p - o.
func (p Position3D) Sub(o Position3D) Position3D {
	return Position3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// DistanceSq returns the squared euclidean distance between p and o.
func (p Position3D) DistanceSq(o Position3D) float64 {
	d := p.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

// Distance returns the euclidean distance between p and o.
func (p Position3D) Distance(o Position3D) float64 {
	return math.Sqrt(p.DistanceSq(o))
}

// MaxCoordinate bounds every position component, in metres from the world
// origin. Host maps are a few tens of kilometres across.
const MaxCoordinate = 1e7

// InWorld reports whether p is finite and every component lies within
// ±MaxCoordinate.
func (p Position3D) InWorld() bool {
	return p.IsFinite() &&
		math.Abs(p.X) <= MaxCoordinate &&
		math.Abs(p.Y) <= MaxCoordinate &&
		math.Abs(p.Z) <= MaxCoordinate
}

// IsFinite reports whether every component is a finite number.
func (p Position3D) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
