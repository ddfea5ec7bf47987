package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/siegelimit/internal/dispatcher"
	"github.com/OCAP2/siegelimit/internal/lang"
	"github.com/OCAP2/siegelimit/internal/parser"
	"github.com/OCAP2/siegelimit/internal/permission"
	"github.com/OCAP2/siegelimit/internal/placement"
	"github.com/OCAP2/siegelimit/pkg/core"

	"github.com/google/uuid"
)

// Outcome is the answer to a placement attempt.
type Outcome struct {
	Decision core.Decision
	Message  string // localized notice for the actor, empty when allowed
}

// Response is the host reply: ["allow"|"deny", reason, nearby, message].
func (o Outcome) Response() []any {
	verdict := "deny"
	if o.Decision.Allowed {
		verdict = "allow"
	}
	return []any{verdict, o.Decision.Reason.String(), o.Decision.Nearby, o.Message}
}

func (s *Service) handlePlaceCheck(e dispatcher.Event) (any, error) {
	check, err := s.deps.Parser.ParsePlacementCheck(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse placement check: %w", err)
	}
	return s.CheckPlacement(check).Response(), nil
}

// CheckPlacement decides a placement attempt. It never fails: world errors are
// resolved by the fail policy of the active configuration.
func (s *Service) CheckPlacement(check parser.PlacementCheck) Outcome {
	start := time.Now()
	cfg := s.deps.Store.Load()
	candidate := check.Candidate

	var dec core.Decision
	if candidate.ActorID != "" && s.deps.Permissions.Has(candidate.ActorID, permission.Ignore) {
		dec = core.Decision{Allowed: true, Reason: core.ReasonBypassed}
	} else {
		var err error
		dec, err = s.deps.Gate.EvaluateWith(candidate, cfg)
		if err != nil {
			dec = core.Decision{Allowed: !cfg.FailClosed, Reason: core.ReasonQueryUnavailable}
			if errors.Is(err, placement.ErrQueryUnavailable) {
				s.log.Debug("World unavailable for placement check", "kind", candidate.Kind, "allowed", dec.Allowed)
			} else {
				s.log.Error("Placement check failed", "error", err, "kind", candidate.Kind, "allowed", dec.Allowed)
			}
		}
	}

	out := Outcome{Decision: dec}
	if !dec.Allowed {
		out.Message = s.denyMessage(check.Lang, dec.Reason)
	}

	if dec.Reason != core.ReasonNotRestrictedKind {
		rec := core.DecisionRecord{
			ID:          uuid.NewString(),
			Time:        start,
			Candidate:   candidate,
			Decision:    dec,
			MaxNearby:   cfg.MaxNearby,
			CheckRadius: cfg.CheckRadius,
			Duration:    time.Since(start),
		}
		s.audit.enqueue(auditItem{decision: &rec}, false)
	}

	if !dec.Allowed {
		s.log.Info("Placement denied",
			"actor", candidate.ActorID,
			"kind", candidate.Kind,
			"reason", dec.Reason.String(),
			"nearby", dec.Nearby)
	}
	return out
}

func (s *Service) denyMessage(language string, reason core.ReasonCode) string {
	key := lang.BombDeployRestricted
	if reason == core.ReasonQueryUnavailable {
		key = lang.WorldUnavailable
	}
	return s.deps.Catalog.Message(language, key)
}
