package handlers

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/OCAP2/siegelimit/internal/channel"
	"github.com/OCAP2/siegelimit/internal/storage"
	"github.com/OCAP2/siegelimit/pkg/core"
)

const defaultAuditBuffer = 10000

// auditItem is one ordered unit of audit work. Exactly one field is set.
type auditItem struct {
	decision *core.DecisionRecord
	revision *core.ConfigRevision
	start    *core.Session
	end      bool

	// onStarted receives the ID the backend assigned to start.
	onStarted func(id uint)
}

// auditor serialises audit writes off the host's calling thread.
// Session boundaries travel through the same channel so every decision is
// written under the session that was active when it was made.
type auditor struct {
	log       *slog.Logger
	backend   storage.Backend
	metrics   MetricsWriter
	worldName func() string

	ch      channel.Channel[auditItem]
	done    chan struct{}
	dropped atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool
}

func newAuditor(size int, log *slog.Logger, backend storage.Backend, metrics MetricsWriter, worldName func() string) *auditor {
	if size <= 0 {
		size = defaultAuditBuffer
	}
	return &auditor{
		log:       log,
		backend:   backend,
		metrics:   metrics,
		worldName: worldName,
		ch:        channel.New[auditItem](size),
		done:      make(chan struct{}),
	}
}

func (a *auditor) start() {
	a.startOnce.Do(func() {
		go a.run()
	})
}

// enqueue hands an item to the writer. Decisions are dropped when the buffer
// is full; session and config items wait for room.
func (a *auditor) enqueue(item auditItem, wait bool) bool {
	a.closeMu.RLock()
	defer a.closeMu.RUnlock()
	if a.closed {
		return false
	}

	if wait {
		a.ch.Send(item)
		return true
	}
	if a.ch.TrySend(item) {
		return true
	}
	if n := a.dropped.Add(1); n%100 == 1 {
		a.log.Warn("Audit buffer full, dropping decisions", "dropped", n)
	}
	return false
}

// pending is the number of items waiting to be written.
func (a *auditor) pending() int {
	return a.ch.Len()
}

func (a *auditor) run() {
	defer close(a.done)
	for item := range a.ch.Receive() {
		a.write(item)
	}
}

func (a *auditor) write(item auditItem) {
	switch {
	case item.decision != nil:
		if err := a.backend.RecordDecision(item.decision); err != nil {
			a.log.Error("Failed to record decision", "error", err, "id", item.decision.ID)
		}
		if a.metrics != nil {
			if err := a.metrics.WriteDecision(*item.decision, a.worldName()); err != nil {
				a.log.Debug("Failed to write decision metric", "error", err)
			}
		}
	case item.revision != nil:
		if err := a.backend.RecordConfigRevision(item.revision); err != nil {
			a.log.Error("Failed to record config revision", "error", err)
		}
	case item.start != nil:
		if err := a.backend.StartSession(item.start); err != nil {
			a.log.Error("Failed to start session in storage", "error", err)
			return
		}
		a.log.Info("Session started in storage", "sessionId", item.start.ID)
		if item.onStarted != nil {
			item.onStarted(item.start.ID)
		}
	case item.end:
		if err := a.backend.EndSession(); err != nil {
			a.log.Error("Failed to end session in storage", "error", err)
			return
		}
		a.log.Info("Session ended in storage")
	}
}

// close stops accepting items and waits for the queued ones to be written.
func (a *auditor) close() {
	a.closeOnce.Do(func() {
		a.start()
		a.closeMu.Lock()
		a.closed = true
		a.ch.Close()
		a.closeMu.Unlock()
		<-a.done
	})
}
