// pkg/core/placement.go
package core

import (
	"fmt"
	"time"
)

// PlacementCandidate is a single placement attempt. It only lives for the duration of one check.
type PlacementCandidate struct {
	ActorID  string     `json:"actorId"` // player UID, excluded from line of sight tests
	Position Position3D `json:"position"`
	Kind     string     `json:"kind"`
}

// ReasonCode explains a placement decision.
type ReasonCode uint8

const (
	// ReasonNotRestrictedKind means the kind is not subject to the density limit.
	ReasonNotRestrictedKind ReasonCode = iota
	// ReasonUnderLimit means fewer than the maximum visible objects were nearby.
	ReasonUnderLimit
	// ReasonAtOrOverLimit means the maximum was reached; placement is denied.
	ReasonAtOrOverLimit
	// ReasonQueryUnavailable means the world could not be queried and the failure policy decided.
	ReasonQueryUnavailable
	// ReasonBypassed means the actor holds the ignore permission and no check was made.
	ReasonBypassed
)

var reasonNames = [...]string{
	ReasonNotRestrictedKind: "NotRestrictedKind",
	ReasonUnderLimit:        "UnderLimit",
	ReasonAtOrOverLimit:     "AtOrOverLimit",
	ReasonQueryUnavailable:  "QueryUnavailable",
	ReasonBypassed:          "Bypassed",
}

func (r ReasonCode) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "Unknown"
}

// ParseReasonCode is the inverse of String.
func ParseReasonCode(s string) (ReasonCode, error) {
	for i, name := range reasonNames {
		if name == s {
			return ReasonCode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown reason code %q", s)
}

// MarshalText encodes the reason by name so audit records stay readable.
func (r ReasonCode) MarshalText() ([]byte, error) {
	if int(r) >= len(reasonNames) {
		return nil, fmt.Errorf("unknown reason code %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a reason written by MarshalText.
func (r *ReasonCode) UnmarshalText(text []byte) error {
	code, err := ParseReasonCode(string(text))
	if err != nil {
		return err
	}
	*r = code
	return nil
}

// Decision is the outcome of a placement check.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  ReasonCode `json:"reason"`
	Nearby  int        `json:"nearby"` // visible objects counted; 0 when no query ran
}

// DecisionRecord is a decision as written to the audit trail.
type DecisionRecord struct {
	ID          string             `json:"id"`
	SessionID   uint               `json:"sessionId"`
	Time        time.Time          `json:"time"`
	Candidate   PlacementCandidate `json:"candidate"`
	Decision    Decision           `json:"decision"`
	MaxNearby   int                `json:"maxNearby"`
	CheckRadius float64            `json:"checkRadius"`
	Duration    time.Duration      `json:"duration"`
}

// ConfigRevision records a configuration snapshot that became active.
type ConfigRevision struct {
	Time            time.Time `json:"time"`
	Version         string    `json:"version"`
	MaxNearby       int       `json:"maxNearby"`
	Unlimited       bool      `json:"unlimited"`
	CheckRadius     float64   `json:"checkRadius"`
	RestrictedKinds []string  `json:"restrictedKinds"`
	FailClosed      bool      `json:"failClosed"`
	Source          string    `json:"source"` // "startup", "file", "command"
}
