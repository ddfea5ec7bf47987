package placement

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/OCAP2/siegelimit/pkg/core"
)

// Config is an immutable snapshot of the limit settings.
// Replace it wholesale through a Store; never mutate a published Config.
type Config struct {
	// MaxNearby is the number of existing visible objects at which placement is denied.
	MaxNearby int
	// CheckRadius is the inclusive search radius in metres.
	CheckRadius float64
	// RestrictedKinds are the object kinds (prefab names) subject to the limit.
	RestrictedKinds map[string]struct{}
	// Unlimited disables the limit entirely; set when no maximum was configured.
	Unlimited bool
	// FailClosed denies placement when the world cannot be queried. The default is to allow.
	FailClosed bool
	// Version is the config format version the snapshot was read from.
	Version string
}

// NewConfig builds a Config. Negative values are clamped to zero.
func NewConfig(maxNearby int, checkRadius float64, kinds []string) *Config {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return &Config{
		MaxNearby:       max(maxNearby, 0),
		CheckRadius:     max(checkRadius, 0),
		RestrictedKinds: set,
	}
}

// IsRestricted reports whether placements of kind are subject to the limit.
func (c *Config) IsRestricted(kind string) bool {
	if c == nil || c.Unlimited || len(c.RestrictedKinds) == 0 {
		return false
	}
	_, ok := c.RestrictedKinds[kind]
	return ok
}

// Kinds returns the restricted kinds in sorted order.
func (c *Config) Kinds() []string {
	kinds := make([]string, 0, len(c.RestrictedKinds))
	for k := range c.RestrictedKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Summary is the reportable form of a Config.
type Summary struct {
	Version         string   `json:"version"`
	MaxNearby       int      `json:"maxNearby"`
	Unlimited       bool     `json:"unlimited"`
	CheckRadius     float64  `json:"checkRadius"`
	RestrictedKinds []string `json:"restrictedKinds"`
	FailClosed      bool     `json:"failClosed"`
}

// Summary returns the snapshot as reported by :CONFIG:RELOAD: and :STATUS:.
func (c *Config) Summary() Summary {
	return Summary{
		Version:         c.Version,
		MaxNearby:       c.MaxNearby,
		Unlimited:       c.Unlimited,
		CheckRadius:     c.CheckRadius,
		RestrictedKinds: c.Kinds(),
		FailClosed:      c.FailClosed,
	}
}

// Revision returns the audit record for the snapshot becoming active.
func (c *Config) Revision(source string, t time.Time) core.ConfigRevision {
	return core.ConfigRevision{
		Time:            t,
		Version:         c.Version,
		MaxNearby:       c.MaxNearby,
		Unlimited:       c.Unlimited,
		CheckRadius:     c.CheckRadius,
		RestrictedKinds: c.Kinds(),
		FailClosed:      c.FailClosed,
		Source:          source,
	}
}

// Store publishes Config snapshots. Readers always see one complete snapshot.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a store holding cfg. A nil cfg behaves as "no restriction".
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(orUnlimited(cfg))
	return s
}

func orUnlimited(cfg *Config) *Config {
	if cfg == nil {
		return &Config{Unlimited: true}
	}
	return cfg
}

// Load returns the active snapshot.
func (s *Store) Load() *Config {
	return s.current.Load()
}

// Swap installs cfg and returns the previous snapshot. A nil cfg installs
// the same unrestricted default as NewStore.
func (s *Store) Swap(cfg *Config) *Config {
	return s.current.Swap(orUnlimited(cfg))
}
