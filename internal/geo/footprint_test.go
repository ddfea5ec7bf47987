package geo

import (
	"testing"

	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFootprint_Valid(t *testing.T) {
	fp, err := ParseFootprint("[[0,0],[10,0],[10,5],[0,5]]")

	require.NoError(t, err)
	require.Len(t, fp, 4)
	assert.Equal(t, core.FootprintPoint{X: 10, Y: 5}, fp[2])
}

func TestParseFootprint_DropsClosingVertex(t *testing.T) {
	fp, err := ParseFootprint("[[0,0],[10,0],[10,5],[0,0]]")

	require.NoError(t, err)
	assert.Len(t, fp, 3)
}

func TestParseFootprint_InvalidJSON(t *testing.T) {
	_, err := ParseFootprint("not valid json")
	require.Error(t, err)
}

func TestParseFootprint_TooFewPoints(t *testing.T) {
	_, err := ParseFootprint("[[0,0],[1,1]]")
	require.Error(t, err)
}

func TestParseFootprint_InsufficientCoordinates(t *testing.T) {
	_, err := ParseFootprint("[[0],[1,1],[2,2]]")
	require.Error(t, err)
}

func TestFootprintPolygon_Square(t *testing.T) {
	poly, err := FootprintPolygon([]core.FootprintPoint{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}})

	require.NoError(t, err)
	assert.InDelta(t, 16.0, poly.Area(), 1e-9)
}

func TestFootprintPolygon_SelfIntersecting(t *testing.T) {
	_, err := FootprintPolygon([]core.FootprintPoint{{X: 0, Y: 0}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 4}})
	require.Error(t, err)
}

func TestFootprintBounds(t *testing.T) {
	minX, minY, maxX, maxY := FootprintBounds([]core.FootprintPoint{{X: 3, Y: -1}, {X: -2, Y: 4}, {X: 5, Y: 2}})

	assert.Equal(t, -2.0, minX)
	assert.Equal(t, -1.0, minY)
	assert.Equal(t, 5.0, maxX)
	assert.Equal(t, 4.0, maxY)
}
