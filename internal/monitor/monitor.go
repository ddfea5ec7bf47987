// Package monitor builds the :STATUS: snapshot and keeps status.txt current.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/siegelimit/internal/influx"
	"github.com/OCAP2/siegelimit/internal/placement"
	"github.com/OCAP2/siegelimit/internal/world"
	"github.com/OCAP2/siegelimit/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// StatusFile is written to the addon folder while the monitor runs.
const StatusFile = "status.txt"

// PointWriter receives the periodic performance sample.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger           *slog.Logger
	World            *world.World
	Store            *placement.Store
	Session          func() *core.Session
	StorageQueues    func() map[string]int
	DispatcherQueues func() map[string]int
	AuditDropped     func() int64
	Metrics          PointWriter // optional

	AddonFolder      string
	ExtensionVersion string
	StorageType      string
	Interval         time.Duration
}

// Status is the snapshot returned by :STATUS: and written to status.txt.
type Status struct {
	Time             time.Time         `json:"time"`
	Uptime           string            `json:"uptime"`
	Version          string            `json:"version"`
	World            world.Stats       `json:"world"`
	Config           placement.Summary `json:"config"`
	Session          *core.Session     `json:"session,omitempty"`
	Storage          string            `json:"storage"`
	StorageQueues    map[string]int    `json:"storageQueues,omitempty"`
	DispatcherQueues map[string]int    `json:"dispatcherQueues,omitempty"`
	AuditDropped     int64             `json:"auditDropped"`
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	started time.Time

	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{
		deps:    deps,
		started: time.Now(),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current program status.
func (s *Service) GetStatus() Status {
	st := Status{
		Time:    time.Now().UTC(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Version: s.deps.ExtensionVersion,
		Storage: s.deps.StorageType,
	}
	if s.deps.World != nil {
		st.World = s.deps.World.Stats()
	}
	if s.deps.Store != nil {
		st.Config = s.deps.Store.Load().Summary()
	}
	if s.deps.Session != nil {
		st.Session = s.deps.Session()
	}
	if s.deps.StorageQueues != nil {
		st.StorageQueues = s.deps.StorageQueues()
	}
	if s.deps.DispatcherQueues != nil {
		st.DispatcherQueues = s.deps.DispatcherQueues()
	}
	if s.deps.AuditDropped != nil {
		st.AuditDropped = s.deps.AuditDropped()
	}
	return st
}

// PerformancePoint converts a status into the influx performance sample.
func PerformancePoint(st Status) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("siegelimit_status").
		AddField("objects", st.World.Objects).
		AddField("obstacles", st.World.Obstacles).
		AddField("ready", st.World.Ready).
		AddField("syncing", st.World.Syncing).
		AddField("audit_dropped", st.AuditDropped).
		SetTime(st.Time)

	pending := 0
	for _, n := range st.StorageQueues {
		pending += n
	}
	p.AddField("storage_pending", pending)

	if st.Session != nil {
		p.AddTag("world", st.Session.WorldName)
	}
	return p
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.AddonFolder != "" {
		f, err := os.Create(filepath.Join(s.deps.AddonFolder, StatusFile))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("error creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) tick(statusFile *os.File) {
	st := s.GetStatus()

	if statusFile != nil {
		if err := writeStatus(statusFile, st); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.WritePoint(influx.PerformanceBucket, PerformancePoint(st)); err != nil {
			s.deps.Logger.Debug("Error writing status metric", "error", err)
		}
	}
}

func writeStatus(f *os.File, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	stop, done := s.stopChan, s.done
	s.stopChan = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
