// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/OCAP2/siegelimit/internal/geo"
	"github.com/OCAP2/siegelimit/internal/model"
	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// kindsToJSON converts a []string to datatypes.JSON for DB storage.
func kindsToJSON(kinds []string) datatypes.JSON {
	if len(kinds) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(kinds)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	out := model.Session{
		ID:               s.ID,
		WorldName:        s.WorldName,
		MissionName:      s.MissionName,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		Location:         geo.PointFromPosition(s.Location),
		StartTime:        s.StartTime,
		ExtensionVersion: s.ExtensionVersion,
	}
	if !s.EndTime.IsZero() {
		out.EndTime = sql.NullTime{Time: s.EndTime, Valid: true}
	}
	return out
}

// CoreToDecision converts a core.DecisionRecord to a GORM model.Decision.
// A record without a parseable ID gets a fresh one; SessionID 0 maps to NULL.
func CoreToDecision(r core.DecisionRecord) model.Decision {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.New()
	}

	var sessionID *uint
	if r.SessionID != 0 {
		sid := r.SessionID
		sessionID = &sid
	}

	return model.Decision{
		ID:          id,
		Time:        r.Time,
		SessionID:   sessionID,
		ActorID:     r.Candidate.ActorID,
		Kind:        r.Candidate.Kind,
		Position:    geo.PointFromPosition(r.Candidate.Position),
		Allowed:     r.Decision.Allowed,
		Reason:      r.Decision.Reason.String(),
		Nearby:      r.Decision.Nearby,
		MaxNearby:   r.MaxNearby,
		CheckRadius: r.CheckRadius,
		DurationUs:  r.Duration.Microseconds(),
	}
}

// CoreToConfigRevision converts a core.ConfigRevision to a GORM model.ConfigRevision.
func CoreToConfigRevision(r core.ConfigRevision) model.ConfigRevision {
	return model.ConfigRevision{
		Time:            r.Time,
		Version:         r.Version,
		MaxNearby:       r.MaxNearby,
		Unlimited:       r.Unlimited,
		CheckRadius:     r.CheckRadius,
		RestrictedKinds: kindsToJSON(r.RestrictedKinds),
		FailClosed:      r.FailClosed,
		Source:          r.Source,
	}
}
