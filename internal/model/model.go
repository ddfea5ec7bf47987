package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&Decision{},
	&ConfigRevision{},
}

// Session is one server session the limiter ran in
type Session struct {
	ID               uint         `json:"id" gorm:"primarykey"`
	CreatedAt        time.Time    `json:"createdAt"`
	WorldName        string       `json:"worldName" gorm:"size:127;index:idx_session_world"`
	MissionName      string       `json:"missionName" gorm:"size:255"`
	Latitude         float64      `json:"latitude"`
	Longitude        float64      `json:"longitude"`
	Location         geom.Point   `json:"location"` // EPSG:3857
	StartTime        time.Time    `json:"startTime" gorm:"index:idx_session_start"`
	EndTime          sql.NullTime `json:"endTime"`
	ExtensionVersion string       `json:"extensionVersion" gorm:"size:32"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Decision is one evaluated placement attempt
type Decision struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey"`
	Time        time.Time  `json:"time" gorm:"index:idx_decision_time"`
	SessionID   *uint      `json:"sessionId" gorm:"index:idx_decision_session"` // nil when no session was running
	ActorID     string     `json:"actorId" gorm:"size:64;index:idx_decision_actor"`
	Kind        string     `json:"kind" gorm:"size:255;index:idx_decision_kind"`
	Position    geom.Point `json:"position"` // XYZ
	Allowed     bool       `json:"allowed" gorm:"index:idx_decision_allowed"`
	Reason      string     `json:"reason" gorm:"size:32"`
	Nearby      int        `json:"nearby"`
	MaxNearby   int        `json:"maxNearby"`
	CheckRadius float64    `json:"checkRadius"`
	DurationUs  int64      `json:"durationUs"`
}

func (*Decision) TableName() string {
	return "decisions"
}

// ConfigRevision is a limiter configuration that became active
type ConfigRevision struct {
	ID              uint           `json:"id" gorm:"primarykey"`
	Time            time.Time      `json:"time" gorm:"index:idx_config_revision_time"`
	Version         string         `json:"version" gorm:"size:32"`
	MaxNearby       int            `json:"maxNearby"`
	Unlimited       bool           `json:"unlimited"`
	CheckRadius     float64        `json:"checkRadius"`
	RestrictedKinds datatypes.JSON `json:"restrictedKinds"`
	FailClosed      bool           `json:"failClosed"`
	Source          string         `json:"source" gorm:"size:16"`
}

func (*ConfigRevision) TableName() string {
	return "config_revisions"
}

////////////////////////
// RETRIEVAL
////////////////////////

// KindSummary aggregates decisions for one object kind
type KindSummary struct {
	Kind    string `json:"kind"`
	Total   int64  `json:"total"`
	Allowed int64  `json:"allowed"`
	Denied  int64  `json:"denied"`
}

// ActorSummary counts denied placements per actor
type ActorSummary struct {
	ActorID string `json:"actorId"`
	Denied  int64  `json:"denied"`
}
