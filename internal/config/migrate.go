package config

import (
	"strconv"
	"strings"
)

// Keys used by the first release of the plugin config.
const (
	legacyVersionKey = "Version"
	legacyMaxKey     = "Maximum Nearby Siege Bombs"
	legacyRadiusKey  = "Siege Bomb Check Radius"
	legacyKindsKey   = "Siege Bomb Prefab Names"
)

// Migrate upgrades a decoded config document to the current format.
// It returns the (possibly new) document and whether anything changed.
// Legacy flat keys are moved under "limit"; unknown keys are kept.
func Migrate(doc map[string]any) (map[string]any, bool) {
	if doc == nil {
		return defaultFile(), true
	}

	version, _ := doc["version"].(string)
	if version == "" {
		version, _ = doc[legacyVersionKey].(string)
	}
	if compareVersions(version, Version) >= 0 && !hasLegacyKeys(doc) {
		return doc, false
	}

	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}

	limit, _ := out["limit"].(map[string]any)
	if limit == nil {
		limit = make(map[string]any)
	}
	moveKey(out, limit, legacyMaxKey, "maxNearby")
	moveKey(out, limit, legacyRadiusKey, "checkRadius")
	moveKey(out, limit, legacyKindsKey, "restrictedKinds")
	if len(limit) > 0 {
		out["limit"] = limit
	}

	delete(out, legacyVersionKey)
	out["version"] = Version
	return out, true
}

func hasLegacyKeys(doc map[string]any) bool {
	for _, k := range []string{legacyVersionKey, legacyMaxKey, legacyRadiusKey, legacyKindsKey} {
		if _, ok := doc[k]; ok {
			return true
		}
	}
	return false
}

// moveKey moves doc[from] to limit[to] unless limit already has a value.
func moveKey(doc, limit map[string]any, from, to string) {
	v, ok := doc[from]
	if !ok {
		return
	}
	delete(doc, from)
	if _, exists := limit[to]; !exists {
		limit[to] = v
	}
}

// compareVersions compares dotted numeric versions. Missing or malformed
// parts compare as zero, so "" sorts before any release.
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var na, nb int
		if i < len(pa) {
			na, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			nb, _ = strconv.Atoi(pb[i])
		}
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}
