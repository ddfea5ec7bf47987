package parser

import (
	"fmt"
	"time"

	"github.com/OCAP2/siegelimit/internal/geo"
	"github.com/OCAP2/siegelimit/pkg/core"
)

// ParseSession parses a session start.
// Args: [worldName, latitude, longitude, missionName]
// Returns the session with its EPSG:3857 location. NO storage operations.
func (p *Parser) ParseSession(data []string) (core.Session, error) {
	var result core.Session

	if err := fixArgs(data, 4); err != nil {
		return result, err
	}

	// [0] worldName
	if err := requireNonEmpty("worldName", data[0]); err != nil {
		return result, err
	}
	result.WorldName = data[0]

	// [1] latitude
	lat, err := parseFloat(data[1])
	if err != nil {
		return result, fmt.Errorf("error parsing latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return result, fmt.Errorf("latitude %v out of range", lat)
	}
	result.Latitude = lat

	// [2] longitude
	long, err := parseFloat(data[2])
	if err != nil {
		return result, fmt.Errorf("error parsing longitude: %w", err)
	}
	if long < -180 || long > 180 {
		return result, fmt.Errorf("longitude %v out of range", long)
	}
	result.Longitude = long

	// [3] missionName
	result.MissionName = data[3]

	result.Location = geo.Position3DFrom4326(long, lat)
	result.StartTime = time.Now()

	p.logger.Debug("Parsed session data",
		"worldName", result.WorldName,
		"missionName", result.MissionName)

	return result, nil
}
