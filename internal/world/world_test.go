package world

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/siegelimit/internal/geo"
	"github.com/OCAP2/siegelimit/internal/placement"
	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyWorld() *World {
	return New(Options{CellSize: 4, Ready: true})
}

func bomb(id, kind string, x, y, z float64) core.WorldObject {
	return core.WorldObject{
		ID:             id,
		Kind:           kind,
		Position:       core.Position3D{X: x, Y: y, Z: z},
		ReferencePoint: core.Position3D{X: x, Y: y, Z: z + 0.5},
	}
}

func ids(objs []core.WorldObject) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.ID
	}
	return out
}

func TestFindNearby_InclusiveRadius(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("edge", "bombA", 5, 0, 0)))
	require.NoError(t, w.UpsertObject(bomb("outside", "bombA", 5.001, 0, 0)))
	require.NoError(t, w.UpsertObject(bomb("inside", "bombA", 0, 3, 4)))

	found, err := w.FindNearby(core.Position3D{}, 5, "bombA")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"edge", "inside"}, ids(found))
}

func TestFindNearby_UsesThreeDimensions(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("above", "bombA", 0, 0, 6)))

	found, err := w.FindNearby(core.Position3D{}, 5, "bombA")

	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindNearby_FiltersKind(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("a", "bombA", 1, 0, 0)))
	require.NoError(t, w.UpsertObject(bomb("b", "bombB", 1, 0, 0)))

	found, err := w.FindNearby(core.Position3D{}, 5, "bombA")

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(found))
}

func TestFindNearby_AcrossCellBoundaries(t *testing.T) {
	w := readyWorld()
	// cell size 4: place objects around the query point in every neighbouring cell
	n := 0
	for dx := -4.0; dx <= 4.0; dx += 2 {
		for dy := -4.0; dy <= 4.0; dy += 2 {
			require.NoError(t, w.UpsertObject(bomb(fmt.Sprintf("b%d", n), "bombA", 4+dx, 4+dy, 0)))
			n++
		}
	}

	center := core.Position3D{X: 4, Y: 4}
	found, err := w.FindNearby(center, 4, "bombA")
	require.NoError(t, err)

	// brute force reference
	expected := 0
	for i := 0; i < n; i++ {
		o, _ := w.Object(fmt.Sprintf("b%d", i))
		if o.Position.Distance(center) <= 4 {
			expected++
		}
	}
	assert.Len(t, found, expected)
}

func TestFindNearby_UnavailableBeforeSync(t *testing.T) {
	w := New(Options{})

	_, err := w.FindNearby(core.Position3D{}, 5, "bombA")
	assert.True(t, errors.Is(err, placement.ErrQueryUnavailable))

	w.BeginSync()
	require.NoError(t, w.UpsertObject(bomb("a", "bombA", 1, 0, 0)))
	_, err = w.FindNearby(core.Position3D{}, 5, "bombA")
	assert.True(t, errors.Is(err, placement.ErrQueryUnavailable))

	stats := w.EndSync()
	assert.Equal(t, 1, stats.Objects)
	assert.True(t, stats.Ready)

	found, err := w.FindNearby(core.Position3D{}, 5, "bombA")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestBeginSync_ClearsSnapshot(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("a", "bombA", 1, 0, 0)))

	w.BeginSync()
	w.EndSync()

	found, err := w.FindNearby(core.Position3D{}, 5, "bombA")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReset_MakesUnavailable(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("a", "bombA", 1, 0, 0)))

	w.Reset()

	assert.False(t, w.Available())
	assert.Equal(t, 0, w.Stats().Objects)
}

func TestUpsertObject_ChangesKind(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("a", "bombA", 1, 0, 0)))
	require.NoError(t, w.UpsertObject(bomb("a", "bombB", 1, 0, 0)))

	foundA, _ := w.FindNearby(core.Position3D{}, 5, "bombA")
	foundB, _ := w.FindNearby(core.Position3D{}, 5, "bombB")
	assert.Empty(t, foundA)
	assert.Len(t, foundB, 1)
	assert.Equal(t, map[string]int{"bombB": 1}, w.Stats().ObjectsByKind)
}

func TestUpsertObject_RejectsInvalid(t *testing.T) {
	w := readyWorld()

	assert.Error(t, w.UpsertObject(core.WorldObject{Kind: "bombA"}))
	assert.Error(t, w.UpsertObject(bomb("nan", "bombA", math.NaN(), 0, 0)))
}

func TestUpsertObject_RejectsFarCoordinates(t *testing.T) {
	w := readyWorld()

	err := w.UpsertObject(bomb("far", "bombA", 34359738360, 0, 0))
	assert.True(t, errors.Is(err, geo.ErrInvalidCoordinates))
	err = w.UpsertObstacle(box("far-wall", "", 0, 0, 2*core.MaxCoordinate, 1, 0, 3))
	assert.True(t, errors.Is(err, geo.ErrInvalidCoordinates))
	assert.Equal(t, 0, w.Stats().Objects)
	assert.Equal(t, 0, w.Stats().Obstacles)
}

func TestFindNearby_RejectsFarPoint(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("a", "bombA", 0, 0, 0)))

	_, err := w.FindNearby(core.Position3D{X: 34359738360}, 5, "bombA")
	assert.True(t, errors.Is(err, geo.ErrInvalidCoordinates))
}

func TestFindNearby_HugeRadius(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("origin", "bombA", 0, 0, 0)))
	require.NoError(t, w.UpsertObject(bomb("edge", "bombA", core.MaxCoordinate, -core.MaxCoordinate, 0)))

	done := make(chan []core.WorldObject, 1)
	go func() {
		found, err := w.FindNearby(core.Position3D{}, 1e300, "bombA")
		assert.NoError(t, err)
		done <- found
	}()

	select {
	case found := <-done:
		assert.ElementsMatch(t, []string{"origin", "edge"}, ids(found))
	case <-time.After(5 * time.Second):
		t.Fatal("FindNearby with a huge radius did not return")
	}
}

func TestRemoveObject_RemovesOwnedObstacles(t *testing.T) {
	w := readyWorld()
	require.NoError(t, w.UpsertObject(bomb("a", "bombA", 1, 0, 0)))
	require.NoError(t, w.UpsertObstacle(box("a-hull", "a", 0.5, -0.5, 1.5, 0.5, 0, 1)))
	require.NoError(t, w.UpsertObstacle(box("wall", "", 10, -1, 11, 1, 0, 3)))

	assert.True(t, w.RemoveObject("a"))
	assert.False(t, w.RemoveObject("a"))
	assert.Equal(t, 1, w.Stats().Obstacles)
}

func TestWorld_ConcurrentReadersAndWriters(t *testing.T) {
	w := readyWorld()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			id := fmt.Sprintf("b%d", i%20)
			_ = w.UpsertObject(bomb(id, "bombA", float64(i%7), 0, 0))
			if i%3 == 0 {
				w.RemoveObject(id)
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				found, err := w.FindNearby(core.Position3D{}, 10, "bombA")
				assert.NoError(t, err)
				w.FilterVisible(core.Position3D{}, "", found)
			}
		}()
	}
	wg.Wait()
}
