package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/OCAP2/siegelimit/pkg/core"
)

func TestPosition3DFromString_ValidWithElevation(t *testing.T) {
	pos, err := Position3DFromString("100.5,200.25,50.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pos.X != 100.5 {
		t.Errorf("expected X=100.5, got %f", pos.X)
	}
	if pos.Y != 200.25 {
		t.Errorf("expected Y=200.25, got %f", pos.Y)
	}
	if pos.Z != 50.0 {
		t.Errorf("expected Z=50.0, got %f", pos.Z)
	}
}

func TestPosition3DFromString_ValidWithoutElevation(t *testing.T) {
	pos, err := Position3DFromString("100.5,200.25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Z != 0 {
		t.Errorf("expected Z=0, got %f", pos.Z)
	}
}

func TestPosition3DFromString_BracketsAndSpaces(t *testing.T) {
	pos, err := Position3DFromString("[1, 2, 3]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != (core.Position3D{X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected position %+v", pos)
	}
}

func TestPosition3DFromString_NegativeCoordinates(t *testing.T) {
	pos, err := Position3DFromString("-100.5,-200.25,-50.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.X != -100.5 || pos.Y != -200.25 || pos.Z != -50.0 {
		t.Errorf("unexpected position %+v", pos)
	}
}

func TestPosition3DFromString_Invalid(t *testing.T) {
	inputs := []string{"", "100", "abc,200", "100,abc", "100,200,abc", "NaN,1,1", "1,+Inf,1", "34359738360,0,0", "0,-2e7"}
	for _, in := range inputs {
		_, err := Position3DFromString(in)
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("input %q: expected ErrInvalidCoordinates, got %v", in, err)
		}
	}
}

func TestPointFromPosition_RoundTrip(t *testing.T) {
	in := core.Position3D{X: 1234.5, Y: 6789.25, Z: 12}
	pt := PointFromPosition(in)

	coords, ok := pt.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != in.X || coords.Y != in.Y || coords.Z != in.Z {
		t.Errorf("unexpected coordinates %+v", coords)
	}
	if out := PositionFromPoint(pt); out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestPosition3DFrom4326_Origin(t *testing.T) {
	pos := Position3DFrom4326(0, 0)
	if math.Abs(pos.X) > 0.001 || math.Abs(pos.Y) > 0.001 {
		t.Errorf("expected origin, got %+v", pos)
	}
}

func TestPosition3DFrom4326_NonZero(t *testing.T) {
	// Altis sits around 25E / 40N
	pos := Position3DFrom4326(25, 40)
	if pos.X <= 2_700_000 || pos.X >= 2_800_000 {
		t.Errorf("unexpected easting %f", pos.X)
	}
	if pos.Y <= 4_800_000 || pos.Y >= 4_900_000 {
		t.Errorf("unexpected northing %f", pos.Y)
	}
}

func TestPosition3DFrom4326_Negative(t *testing.T) {
	pos := Position3DFrom4326(-25, -40)
	if pos.X >= 0 || pos.Y >= 0 {
		t.Errorf("expected negative coordinates, got %+v", pos)
	}
}
