package parser

import (
	"fmt"
	"strings"

	"github.com/OCAP2/siegelimit/internal/geo"
	"github.com/OCAP2/siegelimit/pkg/core"
)

// PlacementCheck is a parsed :PLACE:CHECK: call.
type PlacementCheck struct {
	Candidate core.PlacementCandidate
	Lang      string // player's language, may be empty
}

// ParsePlacementCheck parses a placement attempt.
// Args: [actorUID, "x,y,z", kind, lang?]
func (p *Parser) ParsePlacementCheck(data []string) (PlacementCheck, error) {
	var result PlacementCheck

	if err := fixArgs(data, 3); err != nil {
		return result, err
	}

	// [0] actorUID
	result.Candidate.ActorID = strings.TrimSpace(data[0])

	// [1] position
	pos, err := geo.Position3DFromString(data[1])
	if err != nil {
		return result, fmt.Errorf("error parsing position: %w", err)
	}
	result.Candidate.Position = pos

	// [2] kind
	if err := requireNonEmpty("kind", data[2]); err != nil {
		return result, err
	}
	result.Candidate.Kind = strings.TrimSpace(data[2])

	// [3] lang
	if len(data) > 3 {
		result.Lang = strings.TrimSpace(data[3])
	}

	return result, nil
}

// PermissionChange is a parsed :PERM:GRANT: / :PERM:REVOKE: call.
type PermissionChange struct {
	PlayerUID  string
	Permission string
}

// ParsePermissionChange parses a permission grant or revoke.
// Args: [uid, permission]
func (p *Parser) ParsePermissionChange(data []string) (PermissionChange, error) {
	var result PermissionChange

	if err := fixArgs(data, 2); err != nil {
		return result, err
	}
	if err := requireNonEmpty("uid", data[0]); err != nil {
		return result, err
	}
	if err := requireNonEmpty("permission", data[1]); err != nil {
		return result, err
	}
	result.PlayerUID = strings.TrimSpace(data[0])
	result.Permission = strings.TrimSpace(data[1])
	return result, nil
}
