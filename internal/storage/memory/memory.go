// Package memory keeps the audit trail in memory and exports one JSON file per session.
package memory

import (
	"sync"

	"github.com/OCAP2/siegelimit/internal/config"
	"github.com/OCAP2/siegelimit/pkg/core"
)

// Backend stores session audit data in memory and exports it to JSON on session end
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	decisions []core.DecisionRecord
	revisions []core.ConfigRevision
	active    *core.ConfigRevision // carried into the next session

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports a session that was never ended
func (b *Backend) Close() error {
	b.mu.RLock()
	running := b.session != nil
	b.mu.RUnlock()
	if running {
		return b.EndSession()
	}
	return nil
}

// StartSession begins recording a new session and assigns its ID
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	copied := *s
	b.session = &copied

	b.decisions = nil
	b.revisions = nil
	if b.active != nil {
		b.revisions = append(b.revisions, *b.active)
	}
	return nil
}

// EndSession exports the session and clears it
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	if b.session.EndTime.IsZero() {
		b.session.EndTime = now()
	}

	var err error
	if b.cfg.OutputDir != "" {
		err = b.exportJSON()
	}

	b.session = nil
	b.decisions = nil
	b.revisions = nil
	return err
}

// RecordDecision appends a decision, stamping the running session
func (b *Backend) RecordDecision(r *core.DecisionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := *r
	if rec.SessionID == 0 && b.session != nil {
		rec.SessionID = b.session.ID
	}
	b.decisions = append(b.decisions, rec)
	return nil
}

// RecordConfigRevision appends a revision and remembers it as the active one
func (b *Backend) RecordConfigRevision(r *core.ConfigRevision) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rev := *r
	b.revisions = append(b.revisions, rev)
	b.active = &rev
	return nil
}

// Decisions returns a copy of the decisions recorded in the current session
func (b *Backend) Decisions() []core.DecisionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.DecisionRecord(nil), b.decisions...)
}

// ConfigRevisions returns a copy of the revisions of the current session
func (b *Backend) ConfigRevisions() []core.ConfigRevision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.ConfigRevision(nil), b.revisions...)
}

// Session returns a copy of the running session, nil if none
func (b *Backend) Session() *core.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return nil
	}
	s := *b.session
	return &s
}

// ExportedFilePath returns the path of the last exported session file
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
