package parser

import (
	"fmt"
	"strings"

	"github.com/OCAP2/siegelimit/internal/geo"
	"github.com/OCAP2/siegelimit/pkg/core"
)

// ParseWorldObject parses an object added to or moved in the world.
// Args: [id, kind, "x,y,z" position, "x,y,z" reference point?]
// Without a reference point the position is used.
func (p *Parser) ParseWorldObject(data []string) (core.WorldObject, error) {
	var result core.WorldObject

	if err := fixArgs(data, 3); err != nil {
		return result, err
	}

	// [0] id
	if err := requireNonEmpty("id", data[0]); err != nil {
		return result, err
	}
	result.ID = strings.TrimSpace(data[0])

	// [1] kind
	if err := requireNonEmpty("kind", data[1]); err != nil {
		return result, err
	}
	result.Kind = strings.TrimSpace(data[1])

	// [2] position
	pos, err := geo.Position3DFromString(data[2])
	if err != nil {
		return result, fmt.Errorf("error parsing position: %w", err)
	}
	result.Position = pos
	result.ReferencePoint = pos

	// [3] reference point
	if len(data) > 3 && strings.TrimSpace(data[3]) != "" {
		ref, err := geo.Position3DFromString(data[3])
		if err != nil {
			return result, fmt.Errorf("error parsing reference point: %w", err)
		}
		result.ReferencePoint = ref
	}

	return result, nil
}

// ParseObstacle parses opaque geometry.
// Args: [id, ownerID, "[[x,y],...]" footprint, minZ, maxZ]
func (p *Parser) ParseObstacle(data []string) (core.Obstacle, error) {
	var result core.Obstacle

	if err := fixArgs(data, 5); err != nil {
		return result, err
	}

	// [0] id
	if err := requireNonEmpty("id", data[0]); err != nil {
		return result, err
	}
	result.ID = strings.TrimSpace(data[0])

	// [1] ownerID, empty for static terrain objects
	result.OwnerID = strings.TrimSpace(data[1])

	// [2] footprint
	footprint, err := geo.ParseFootprint(data[2])
	if err != nil {
		return result, fmt.Errorf("error parsing footprint: %w", err)
	}
	result.Footprint = footprint

	// [3] minZ
	result.MinZ, err = parseFloat(data[3])
	if err != nil {
		return result, fmt.Errorf("error parsing minZ: %w", err)
	}

	// [4] maxZ
	result.MaxZ, err = parseFloat(data[4])
	if err != nil {
		return result, fmt.Errorf("error parsing maxZ: %w", err)
	}

	return result, nil
}

// ParseID parses a single-ID removal command.
// Args: [id]
func (p *Parser) ParseID(data []string) (string, error) {
	if err := fixArgs(data, 1); err != nil {
		return "", err
	}
	if err := requireNonEmpty("id", data[0]); err != nil {
		return "", err
	}
	return strings.TrimSpace(data[0]), nil
}
