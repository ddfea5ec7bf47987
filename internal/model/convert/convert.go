package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/OCAP2/siegelimit/internal/geo"
	"github.com/OCAP2/siegelimit/internal/model"
	"github.com/OCAP2/siegelimit/pkg/core"
)

// SessionToCore converts a GORM Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	out := core.Session{
		ID:               s.ID,
		WorldName:        s.WorldName,
		MissionName:      s.MissionName,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		Location:         geo.PositionFromPoint(s.Location),
		StartTime:        s.StartTime,
		ExtensionVersion: s.ExtensionVersion,
	}
	if s.EndTime.Valid {
		out.EndTime = s.EndTime.Time
	}
	return out
}

// DecisionToCore converts a GORM Decision to a core.DecisionRecord.
// A row with an unrecognised reason is an error rather than a guess.
func DecisionToCore(d model.Decision) (core.DecisionRecord, error) {
	reason, err := core.ParseReasonCode(d.Reason)
	if err != nil {
		return core.DecisionRecord{}, fmt.Errorf("decision %s: %w", d.ID, err)
	}

	var sessionID uint
	if d.SessionID != nil {
		sessionID = *d.SessionID
	}

	return core.DecisionRecord{
		ID:        d.ID.String(),
		SessionID: sessionID,
		Time:      d.Time,
		Candidate: core.PlacementCandidate{
			ActorID:  d.ActorID,
			Position: geo.PositionFromPoint(d.Position),
			Kind:     d.Kind,
		},
		Decision: core.Decision{
			Allowed: d.Allowed,
			Reason:  reason,
			Nearby:  d.Nearby,
		},
		MaxNearby:   d.MaxNearby,
		CheckRadius: d.CheckRadius,
		Duration:    time.Duration(d.DurationUs) * time.Microsecond,
	}, nil
}

// ConfigRevisionToCore converts a GORM ConfigRevision to a core.ConfigRevision.
func ConfigRevisionToCore(r model.ConfigRevision) core.ConfigRevision {
	var kinds []string
	if len(r.RestrictedKinds) > 0 {
		_ = json.Unmarshal(r.RestrictedKinds, &kinds)
	}

	return core.ConfigRevision{
		Time:            r.Time,
		Version:         r.Version,
		MaxNearby:       r.MaxNearby,
		Unlimited:       r.Unlimited,
		CheckRadius:     r.CheckRadius,
		RestrictedKinds: kinds,
		FailClosed:      r.FailClosed,
		Source:          r.Source,
	}
}
