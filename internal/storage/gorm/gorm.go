// Package gormstorage implements storage.Backend on top of any gorm dialect.
// Records are queued and written in batches by a background writer goroutine;
// sessions are inserted synchronously because their ID is needed immediately.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/siegelimit/internal/database"
	"github.com/OCAP2/siegelimit/internal/model"
	"github.com/OCAP2/siegelimit/internal/model/convert"
	"github.com/OCAP2/siegelimit/internal/queue"
	"github.com/OCAP2/siegelimit/pkg/core"

	"gorm.io/gorm"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 500
	defaultQueueLimit    = 100_000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	BatchSize     int
	QueueLimit    int
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	decisions *queue.Queue[model.Decision]
	revisions *queue.Queue[model.ConfigRevision]
	sessionID atomic.Uint64

	writeMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.QueueLimit <= 0 {
		deps.QueueLimit = defaultQueueLimit
	}
	return &Backend{
		deps:      deps,
		decisions: queue.NewBounded[model.Decision](deps.QueueLimit),
		revisions: queue.NewBounded[model.ConfigRevision](deps.QueueLimit),
	}
}

// SetDB injects the connection when it is opened after New.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// DB returns the connection, nil when none is configured.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
// Without a DB the backend only queues, which the tests rely on.
func (b *Backend) Init() error {
	if b.deps.DB != nil {
		b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
		if err := database.Migrate(b.deps.DB); err != nil {
			return err
		}
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes what is still queued.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
	}
	return b.Flush()
}

// StartSession inserts the session and assigns its DB ID.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}

	row := convert.CoreToSession(*s)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	return nil
}

// EndSession stamps the end time on the current session.
func (b *Backend) EndSession() error {
	id := uint(b.sessionID.Swap(0))
	if id == 0 || b.deps.DB == nil {
		return nil
	}

	// decisions of the ending session are written before it is closed
	if err := b.Flush(); err != nil {
		b.deps.Logger.Warn("Flush before session end failed", "error", err)
	}

	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("end_time", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to end session %d: %w", id, err)
	}
	return nil
}

// SessionID returns the running session's ID, 0 when none.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// RecordDecision converts and queues a decision.
func (b *Backend) RecordDecision(r *core.DecisionRecord) error {
	row := convert.CoreToDecision(*r)
	if row.SessionID == nil {
		if id := b.SessionID(); id != 0 {
			row.SessionID = &id
		}
	}
	b.decisions.Push(row)
	return nil
}

// RecordConfigRevision converts and queues a config revision.
func (b *Backend) RecordConfigRevision(r *core.ConfigRevision) error {
	b.revisions.Push(convert.CoreToConfigRevision(*r))
	return nil
}

// QueueLengths reports pending writes per table.
func (b *Backend) QueueLengths() map[string]int {
	return map[string]int{
		"decisions":        b.decisions.Len(),
		"config_revisions": b.revisions.Len(),
	}
}

// Dropped reports records evicted because the queues were full.
func (b *Backend) Dropped() uint64 {
	return b.decisions.Dropped() + b.revisions.Dropped()
}

// Flush writes every queued record now.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := writeQueue(b.deps.DB, b.revisions, b.deps.BatchSize); err != nil {
		return fmt.Errorf("config revisions: %w", err)
	}
	if err := writeQueue(b.deps.DB, b.decisions, b.deps.BatchSize); err != nil {
		return fmt.Errorf("decisions: %w", err)
	}
	return nil
}

// writeQueue drains q in batches, each in its own transaction.
// A failed batch goes back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], batchSize int) error {
	for !q.Empty() {
		items := q.Take(batchSize)
		if len(items) == 0 {
			return nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&items).Error
		})
		if err != nil {
			q.Requeue(items...)
			return err
		}
	}
	return nil
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Error writing audit records", "error", err)
				continue
			}
			if d := time.Since(start); d > time.Second {
				b.deps.Logger.Warn("Slow audit write", "took", d)
			}
		}
	}
}
