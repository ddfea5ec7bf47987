// pkg/core/session.go
package core

import "time"

// Session is one server session (mission) the limiter ran in.
type Session struct {
	ID               uint       `json:"id"`
	WorldName        string     `json:"worldName"`
	MissionName      string     `json:"missionName"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	Location         Position3D `json:"location"` // EPSG:3857 of Latitude/Longitude
	StartTime        time.Time  `json:"startTime"`
	EndTime          time.Time  `json:"endTime,omitempty"`
	ExtensionVersion string     `json:"extensionVersion"`
}
