package handlers

import (
	"errors"
	"fmt"

	"github.com/OCAP2/siegelimit/internal/dispatcher"
	"github.com/OCAP2/siegelimit/internal/influx"
)

// ErrNoSession is returned by :SESSION:END: when no session is running.
var ErrNoSession = errors.New("no active session")

func (s *Service) handlePermGrant(e dispatcher.Event) (any, error) {
	change, err := s.deps.Parser.ParsePermissionChange(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse permission grant: %w", err)
	}
	if err := s.deps.Permissions.Grant(change.PlayerUID, change.Permission); err != nil {
		return nil, err
	}
	s.log.Info("Permission granted", "uid", change.PlayerUID, "permission", change.Permission)
	return "ok", nil
}

func (s *Service) handlePermRevoke(e dispatcher.Event) (any, error) {
	change, err := s.deps.Parser.ParsePermissionChange(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse permission revoke: %w", err)
	}
	removed, err := s.deps.Permissions.Revoke(change.PlayerUID, change.Permission)
	if err != nil {
		return nil, err
	}
	if removed {
		s.log.Info("Permission revoked", "uid", change.PlayerUID, "permission", change.Permission)
	}
	return "ok", nil
}

func (s *Service) handleConfigReload(dispatcher.Event) (any, error) {
	if s.deps.Reload == nil {
		return nil, fmt.Errorf("config reload not available")
	}
	cfg, err := s.deps.Reload(s.deps.Store)
	if err != nil {
		s.log.Warn("Config reload rejected, keeping previous values", "error", err)
		return nil, err
	}
	s.RecordConfig(cfg, "command")
	s.log.Info("Config reloaded", "maxNearby", cfg.MaxNearby, "checkRadius", cfg.CheckRadius, "unlimited", cfg.Unlimited)
	return cfg.Summary(), nil
}

func (s *Service) handleSessionStart(e dispatcher.Event) (any, error) {
	sess, err := s.deps.Parser.ParseSession(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	sess.ExtensionVersion = s.deps.ExtensionVersion

	active := &sess
	s.mu.Lock()
	prev := s.session
	s.session = active
	s.mu.Unlock()

	if prev != nil {
		s.log.Warn("Session started while another was running, ending it", "world", prev.WorldName)
		s.audit.enqueue(auditItem{end: true}, true)
	}

	stored := sess
	s.audit.enqueue(auditItem{
		start: &stored,
		onStarted: func(id uint) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.session == active {
				active.ID = id
			}
		},
	}, true)

	s.log.Info("Session started", "world", sess.WorldName, "mission", sess.MissionName)
	return "ok", nil
}

func (s *Service) handleSessionEnd(dispatcher.Event) (any, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	s.session = nil
	s.mu.Unlock()

	s.audit.enqueue(auditItem{end: true}, true)
	s.log.Info("Session ended")
	return "ok", nil
}

func (s *Service) handleMetric(e dispatcher.Event) (any, error) {
	if s.deps.Metrics == nil {
		return nil, nil
	}
	bucket, point, err := influx.ProcessMetricData(e.Args)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Metrics.WritePoint(bucket, point); err != nil {
		return nil, err
	}
	return "queued", nil
}
