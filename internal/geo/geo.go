package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/OCAP2/siegelimit/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Positions arrive from the host as "x,y" or "x,y,z" strings in world metres (ASL).
// Audit records store them as XYZ points; world locations are kept in EPSG:3857.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Position3DFromString parses a "x,y" or "x,y,z" string into a core.Position3D.
// Components beyond core.MaxCoordinate are rejected.
func Position3DFromString(coords string) (core.Position3D, error) {
	coordsSplit := strings.Split(strings.Trim(strings.TrimSpace(coords), "[]"), ",")
	if len(coordsSplit) < 2 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if len(coordsSplit) > 2 {
		z, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	pos := core.Position3D{X: x, Y: y, Z: z}
	if !pos.InWorld() {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	return pos, nil
}

// PointFromPosition converts a position into an XYZ point for storage.
func PointFromPosition(p core.Position3D) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Z:    p.Z,
		Type: geom.DimXYZ,
	})
}

// PositionFromPoint is the inverse of PointFromPosition. Empty points yield the origin.
func PositionFromPoint(pt geom.Point) core.Position3D {
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{X: c.X, Y: c.Y, Z: c.Z}
}

// Position3DFrom4326 projects a world's longitude/latitude into EPSG:3857.
func Position3DFrom4326(longitude, latitude float64) core.Position3D {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return core.Position3D{X: x, Y: y}
}
