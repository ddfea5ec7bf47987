package geo

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/siegelimit/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParseFootprint parses a JSON array of XY coordinates into an obstacle footprint.
// Input format: "[[x1,y1],[x2,y2],[x3,y3],...]". A closing vertex equal to the first is optional.
func ParseFootprint(input string) ([]core.FootprintPoint, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse footprint JSON: %w", err)
	}

	points := make([]core.FootprintPoint, 0, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		points = append(points, core.FootprintPoint{X: coord[0], Y: coord[1]})
	}

	if n := len(points); n > 1 && points[0] == points[n-1] {
		points = points[:n-1]
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("footprint must have at least 3 distinct points, got %d", len(points))
	}
	return points, nil
}

// FootprintPolygon builds a closed, validated polygon from a footprint.
func FootprintPolygon(points []core.FootprintPoint) (geom.Polygon, error) {
	if len(points) < 3 {
		return geom.Polygon{}, fmt.Errorf("footprint must have at least 3 points, got %d", len(points))
	}

	flat := make([]float64, 0, (len(points)+1)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	flat = append(flat, points[0].X, points[0].Y)

	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid footprint: %w", err)
	}
	return poly, nil
}

// FootprintBounds returns the XY bounding box of a footprint.
func FootprintBounds(points []core.FootprintPoint) (minX, minY, maxX, maxY float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = points[0].X, points[0].Y
	maxX, maxY = minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}
