package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrate_CurrentVersionUnchanged(t *testing.T) {
	doc := map[string]any{"version": Version, "limit": map[string]any{"maxNearby": 3.0}}

	out, changed := Migrate(doc)

	assert.False(t, changed)
	assert.Equal(t, doc, out)
}

func TestMigrate_LegacyKeys(t *testing.T) {
	doc := map[string]any{
		"Version":                    "1.0.0",
		"Maximum Nearby Siege Bombs": 4.0,
		"Siege Bomb Check Radius":    6.0,
		"Siege Bomb Prefab Names":    []any{"a"},
		"logLevel":                   "debug",
	}

	out, changed := Migrate(doc)

	assert.True(t, changed)
	assert.Equal(t, Version, out["version"])
	assert.Equal(t, "debug", out["logLevel"])
	assert.Equal(t, map[string]any{
		"maxNearby":       4.0,
		"checkRadius":     6.0,
		"restrictedKinds": []any{"a"},
	}, out["limit"])
	assert.NotContains(t, out, "Version")
	// input is not modified
	assert.Contains(t, doc, "Maximum Nearby Siege Bombs")
}

func TestMigrate_NewKeysWin(t *testing.T) {
	doc := map[string]any{
		"Maximum Nearby Siege Bombs": 4.0,
		"limit":                      map[string]any{"maxNearby": 9.0},
	}

	out, changed := Migrate(doc)

	assert.True(t, changed)
	assert.Equal(t, 9.0, out["limit"].(map[string]any)["maxNearby"])
}

func TestMigrate_LegacyWithoutMaxStaysUnlimited(t *testing.T) {
	doc := map[string]any{"Version": "1.0.0", "Siege Bomb Check Radius": 6.0}

	out, _ := Migrate(doc)

	limit := out["limit"].(map[string]any)
	assert.NotContains(t, limit, "maxNearby")
}

func TestMigrate_Nil(t *testing.T) {
	out, changed := Migrate(nil)

	assert.True(t, changed)
	assert.Equal(t, Version, out["version"])
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "2.0.0", 0},
		{"2.1", "2.0.9", 1},
		{"", "1.0.0", -1},
		{"2", "2.0.0", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
