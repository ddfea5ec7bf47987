// pkg/core/world.go
package core

// WorldObject is an existing object in the host world, as last reported by the host.
// ReferencePoint is the anchor used for line of sight (for siege charges, the
// explosion spawn point), which is usually offset from Position.
type WorldObject struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"` // prefab name
	Position       Position3D `json:"position"`
	ReferencePoint Position3D `json:"referencePoint"`
}

// FootprintPoint is a vertex of an obstacle footprint on the XY plane.
type FootprintPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Obstacle is opaque geometry that blocks line of sight: a vertical prism
// spanning MinZ..MaxZ over the Footprint polygon.
// OwnerID links a collision volume to the world object or player it belongs to;
// it is empty for static terrain and buildings.
type Obstacle struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"ownerId"`
	Footprint []FootprintPoint `json:"footprint"`
	MinZ      float64          `json:"minZ"`
	MaxZ      float64          `json:"maxZ"`
}
