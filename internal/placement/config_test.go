package placement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_ClampsNegatives(t *testing.T) {
	cfg := NewConfig(-3, -1, []string{"a"})

	assert.Equal(t, 0, cfg.MaxNearby)
	assert.Equal(t, 0.0, cfg.CheckRadius)
}

func TestNewConfig_IgnoresEmptyKinds(t *testing.T) {
	cfg := NewConfig(1, 1, []string{"", "b", "a", "b"})

	assert.Equal(t, []string{"a", "b"}, cfg.Kinds())
}

func TestConfig_IsRestricted(t *testing.T) {
	cfg := NewConfig(5, 5, []string{"bombA"})

	assert.True(t, cfg.IsRestricted("bombA"))
	assert.False(t, cfg.IsRestricted("bombB"))

	cfg.Unlimited = true
	assert.False(t, cfg.IsRestricted("bombA"))

	var nilCfg *Config
	assert.False(t, nilCfg.IsRestricted("bombA"))
}

func TestStore_NilIsUnrestricted(t *testing.T) {
	s := NewStore(nil)

	assert.True(t, s.Load().Unlimited)
	assert.False(t, s.Load().IsRestricted("bombA"))
}

func TestStore_Swap(t *testing.T) {
	first := NewConfig(1, 1, []string{"a"})
	second := NewConfig(2, 2, []string{"b"})
	s := NewStore(first)

	prev := s.Swap(second)

	assert.Same(t, first, prev)
	assert.Same(t, second, s.Load())
}

func TestStore_SwapNilIsUnrestricted(t *testing.T) {
	first := NewConfig(1, 1, []string{"bombA"})
	s := NewStore(first)

	prev := s.Swap(nil)

	assert.Same(t, first, prev)
	require.NotNil(t, s.Load())
	assert.True(t, s.Load().Unlimited)
	assert.False(t, s.Load().IsRestricted("bombA"))
	assert.NotPanics(t, func() { _ = s.Load().Summary() })
}

func TestConfig_SummaryAndRevision(t *testing.T) {
	cfg := NewConfig(3, 7.5, []string{"b", "a"})
	cfg.FailClosed = true
	cfg.Version = "2.0.0"

	sum := cfg.Summary()
	assert.Equal(t, []string{"a", "b"}, sum.RestrictedKinds)
	assert.Equal(t, 3, sum.MaxNearby)
	assert.True(t, sum.FailClosed)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rev := cfg.Revision("command", ts)
	assert.Equal(t, "command", rev.Source)
	assert.Equal(t, ts, rev.Time)
	assert.Equal(t, 7.5, rev.CheckRadius)
	assert.Equal(t, "2.0.0", rev.Version)
	assert.Equal(t, []string{"a", "b"}, rev.RestrictedKinds)
}
