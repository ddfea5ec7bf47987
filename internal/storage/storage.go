// Package storage defines the audit trail backends placement decisions are written to.
package storage

import "github.com/OCAP2/siegelimit/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Record* calls must not block on I/O; backends queue and write asynchronously.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (assigns ID to the passed pointer)
	StartSession(s *core.Session) error
	EndSession() error

	// Audit records
	RecordDecision(r *core.DecisionRecord) error
	RecordConfigRevision(r *core.ConfigRevision) error
}

// Exporter is an optional interface for backends that write a file per session.
type Exporter interface {
	ExportedFilePath() string
}

// Discard is the backend used when auditing is disabled.
type Discard struct{}

func (Discard) Init() error                                     { return nil }
func (Discard) Close() error                                    { return nil }
func (Discard) StartSession(*core.Session) error                { return nil }
func (Discard) EndSession() error                               { return nil }
func (Discard) RecordDecision(*core.DecisionRecord) error       { return nil }
func (Discard) RecordConfigRevision(*core.ConfigRevision) error { return nil }
