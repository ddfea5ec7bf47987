// Package handlers implements the host command surface: the placement hook,
// the world feed and the admin commands.
package handlers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/siegelimit/internal/dispatcher"
	"github.com/OCAP2/siegelimit/internal/lang"
	"github.com/OCAP2/siegelimit/internal/parser"
	"github.com/OCAP2/siegelimit/internal/permission"
	"github.com/OCAP2/siegelimit/internal/placement"
	"github.com/OCAP2/siegelimit/internal/storage"
	"github.com/OCAP2/siegelimit/internal/world"
	"github.com/OCAP2/siegelimit/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Host commands.
const (
	CmdPlaceCheck     = ":PLACE:CHECK:"
	CmdObjectAdd      = ":WORLD:OBJECT:ADD:"
	CmdObjectRemove   = ":WORLD:OBJECT:REMOVE:"
	CmdObstacleAdd    = ":WORLD:OBSTACLE:ADD:"
	CmdObstacleRemove = ":WORLD:OBSTACLE:REMOVE:"
	CmdSyncBegin      = ":WORLD:SYNC:BEGIN:"
	CmdSyncEnd        = ":WORLD:SYNC:END:"
	CmdWorldReset     = ":WORLD:RESET:"
	CmdPermGrant      = ":PERM:GRANT:"
	CmdPermRevoke     = ":PERM:REVOKE:"
	CmdConfigReload   = ":CONFIG:RELOAD:"
	CmdSessionStart   = ":SESSION:START:"
	CmdSessionEnd     = ":SESSION:END:"
	CmdMetric         = ":METRIC:"
)

// MetricsWriter receives decision metrics and host-reported points.
type MetricsWriter interface {
	WriteDecision(rec core.DecisionRecord, worldName string) error
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Parser      *parser.Parser
	World       *world.World
	Gate        *placement.Gate
	Store       *placement.Store
	Permissions *permission.Registry
	Catalog     *lang.Catalog
	Backend     storage.Backend
	Metrics     MetricsWriter // optional

	// Reload re-reads the config file and publishes it to the store.
	// Nil disables :CONFIG:RELOAD:.
	Reload func(*placement.Store) (*placement.Config, error)

	ExtensionVersion string
	AuditBuffer      int
}

// Service provides handler methods for host commands.
type Service struct {
	deps  Dependencies
	log   *slog.Logger
	audit *auditor

	mu      sync.RWMutex
	session *core.Session
}

// NewService creates a new handler service. Call Start before dispatching.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Gate == nil || deps.Store == nil || deps.World == nil {
		return nil, fmt.Errorf("handlers: gate, store and world are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Permissions == nil {
		deps.Permissions = permission.NewRegistry(permission.Ignore)
	}
	if deps.Backend == nil {
		deps.Backend = storage.Discard{}
	}
	if deps.Catalog == nil {
		c, err := lang.New(lang.English)
		if err != nil {
			return nil, err
		}
		deps.Catalog = c
	}

	s := &Service{
		deps: deps,
		log:  deps.Logger.With("component", "handlers"),
	}
	s.audit = newAuditor(deps.AuditBuffer, s.log, deps.Backend, deps.Metrics, s.worldName)
	return s, nil
}

// Start begins processing audit records.
func (s *Service) Start() {
	s.audit.start()
}

// Close drains pending audit records. It does not close the backend.
func (s *Service) Close() {
	s.audit.close()
}

// AuditPending returns the number of audit items not yet written.
func (s *Service) AuditPending() int {
	return s.audit.pending()
}

// AuditDropped returns the number of decisions dropped because the audit buffer was full.
func (s *Service) AuditDropped() int64 {
	return s.audit.dropped.Load()
}

// Session returns a copy of the active session, or nil.
func (s *Service) Session() *core.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

func (s *Service) worldName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.WorldName
}

// RecordConfig audits a configuration snapshot that became active.
func (s *Service) RecordConfig(cfg *placement.Config, source string) {
	rev := cfg.Revision(source, time.Now())
	s.audit.enqueue(auditItem{revision: &rev}, true)
}

// RegisterHandlers registers all host commands with the dispatcher.
// Placement checks are synchronous; the host waits for their answer.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdPlaceCheck, s.handlePlaceCheck)

	d.Register(CmdObjectAdd, s.handleObjectAdd)
	d.Register(CmdObjectRemove, s.handleObjectRemove)
	d.Register(CmdObstacleAdd, s.handleObstacleAdd)
	d.Register(CmdObstacleRemove, s.handleObstacleRemove)
	d.Register(CmdSyncBegin, s.handleSyncBegin, dispatcher.Logged())
	d.Register(CmdSyncEnd, s.handleSyncEnd, dispatcher.Logged())
	d.Register(CmdWorldReset, s.handleWorldReset, dispatcher.Logged())

	d.Register(CmdPermGrant, s.handlePermGrant, dispatcher.Logged())
	d.Register(CmdPermRevoke, s.handlePermRevoke, dispatcher.Logged())
	d.Register(CmdConfigReload, s.handleConfigReload, dispatcher.Logged())

	d.Register(CmdSessionStart, s.handleSessionStart, dispatcher.Logged())
	d.Register(CmdSessionEnd, s.handleSessionEnd, dispatcher.Logged())

	d.Register(CmdMetric, s.handleMetric, dispatcher.Buffered(1000))
}
