// Package placement decides whether a new object may be placed, based on how many
// objects of the same kind are nearby and visible from the placement point.
package placement

import (
	"context"
	"errors"
	"fmt"

	"github.com/OCAP2/siegelimit/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrQueryUnavailable is returned by a SpatialQuery when the world snapshot is
// being rebuilt and a complete answer cannot be given.
var ErrQueryUnavailable = errors.New("spatial query unavailable")

// SpatialQuery finds objects of a kind within radius of a point (inclusive).
// It must never omit a qualifying object; extra objects are tolerated.
type SpatialQuery interface {
	FindNearby(point core.Position3D, radius float64, kind string) ([]core.WorldObject, error)
}

// VisibilityFilter keeps the objects whose reference point has a clear line of sight
// to point. Obstacles belonging to the object or to viewerID are ignored.
// Objects that no longer exist are dropped.
type VisibilityFilter interface {
	FilterVisible(point core.Position3D, viewerID string, objects []core.WorldObject) []core.WorldObject
}

// Gate evaluates placement candidates against the active configuration.
type Gate struct {
	store      *Store
	query      SpatialQuery
	visibility VisibilityFilter

	decisions   metric.Int64Counter
	unavailable metric.Int64Counter
	nearby      metric.Int64Histogram
}

// NewGate creates a Gate. Metrics use the global OTel meter (no-op unless configured).
func NewGate(store *Store, query SpatialQuery, visibility VisibilityFilter) (*Gate, error) {
	g := &Gate{
		store:      store,
		query:      query,
		visibility: visibility,
	}

	m := meter()

	var err error
	g.decisions, err = m.Int64Counter(
		"placement.decisions",
		metric.WithDescription("Placement decisions by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decisions counter: %w", err)
	}

	g.unavailable, err = m.Int64Counter(
		"placement.query.unavailable",
		metric.WithDescription("Spatial queries that failed because the world was unavailable"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unavailable counter: %w", err)
	}

	g.nearby, err = m.Int64Histogram(
		"placement.nearby",
		metric.WithDescription("Visible nearby objects counted per restricted placement"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating nearby histogram: %w", err)
	}

	return g, nil
}

// Config returns the snapshot the next evaluation will use.
func (g *Gate) Config() *Config {
	return g.store.Load()
}

// Evaluate decides a candidate with the active configuration snapshot.
func (g *Gate) Evaluate(candidate core.PlacementCandidate) (core.Decision, error) {
	return g.EvaluateWith(candidate, g.store.Load())
}

// EvaluateWith decides a candidate with an explicit configuration.
// Errors from the spatial query (ErrQueryUnavailable) are returned unchanged;
// the caller owns the fail-open / fail-closed choice.
func (g *Gate) EvaluateWith(candidate core.PlacementCandidate, cfg *Config) (core.Decision, error) {
	if !cfg.IsRestricted(candidate.Kind) {
		g.record(core.ReasonNotRestrictedKind, candidate.Kind)
		return core.Decision{Allowed: true, Reason: core.ReasonNotRestrictedKind}, nil
	}

	found, err := g.query.FindNearby(candidate.Position, cfg.CheckRadius, candidate.Kind)
	if err != nil {
		if errors.Is(err, ErrQueryUnavailable) {
			g.unavailable.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", candidate.Kind)))
		}
		return core.Decision{}, fmt.Errorf("finding nearby %s: %w", candidate.Kind, err)
	}

	visible := g.visibility.FilterVisible(candidate.Position, candidate.ActorID, found)
	n := len(visible)
	g.nearby.Record(context.Background(), int64(n), metric.WithAttributes(attribute.String("kind", candidate.Kind)))

	if n >= cfg.MaxNearby {
		g.record(core.ReasonAtOrOverLimit, candidate.Kind)
		return core.Decision{Allowed: false, Reason: core.ReasonAtOrOverLimit, Nearby: n}, nil
	}

	g.record(core.ReasonUnderLimit, candidate.Kind)
	return core.Decision{Allowed: true, Reason: core.ReasonUnderLimit, Nearby: n}, nil
}

func (g *Gate) record(reason core.ReasonCode, kind string) {
	g.decisions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("reason", reason.String()),
		attribute.String("kind", kind),
	))
}
