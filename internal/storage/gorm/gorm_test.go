package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/siegelimit/internal/database"
	"github.com/OCAP2/siegelimit/internal/model"
	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{FlushInterval: time.Hour})
}

func newSQLiteBackend(t *testing.T) (*Backend, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour, BatchSize: 2})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b, db
}

func decision(actor, kind string, allowed bool) *core.DecisionRecord {
	reason := core.ReasonUnderLimit
	if !allowed {
		reason = core.ReasonAtOrOverLimit
	}
	return &core.DecisionRecord{
		ID:   uuid.NewString(),
		Time: time.Now().UTC(),
		Candidate: core.PlacementCandidate{
			ActorID:  actor,
			Position: core.Position3D{X: 10, Y: 20, Z: 1},
			Kind:     kind,
		},
		Decision:    core.Decision{Allowed: allowed, Reason: reason, Nearby: 3},
		MaxNearby:   5,
		CheckRadius: 5,
	}
}

func TestInitClose_NoDB(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	require.NotNil(t, b.stopChan)
	require.NoError(t, b.Close())
	// second close is a no-op
	require.NoError(t, b.Close())
}

func TestRecordDecision_QueuesWithoutDB(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordDecision(decision("p1", "bombA", true)))
	require.NoError(t, b.RecordConfigRevision(&core.ConfigRevision{Version: "2.0.0"}))

	assert.Equal(t, map[string]int{"decisions": 1, "config_revisions": 1}, b.QueueLengths())
	assert.NoError(t, b.Flush())
}

func TestStartSession_NoDB(t *testing.T) {
	b := newTestBackend()
	s := &core.Session{WorldName: "procedural"}
	require.NoError(t, b.StartSession(s))
	assert.Equal(t, uint(0), s.ID)
	assert.NoError(t, b.EndSession())
}

func TestSessionLifecycle(t *testing.T) {
	b, db := newSQLiteBackend(t)

	s := &core.Session{WorldName: "procedural", MissionName: "wipe", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartSession(s))
	require.NotZero(t, s.ID)
	assert.Equal(t, s.ID, b.SessionID())

	require.NoError(t, b.RecordDecision(decision("p1", "bombA", true)))
	require.NoError(t, b.EndSession())
	assert.Equal(t, uint(0), b.SessionID())

	var row model.Session
	require.NoError(t, db.First(&row, s.ID).Error)
	assert.True(t, row.EndTime.Valid)

	// the session's decisions were flushed on end and stamped with its ID
	var d model.Decision
	require.NoError(t, db.First(&d).Error)
	require.NotNil(t, d.SessionID)
	assert.Equal(t, s.ID, *d.SessionID)
}

func TestFlush_WritesInBatches(t *testing.T) {
	b, db := newSQLiteBackend(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.RecordDecision(decision("p1", "bombA", i%2 == 0)))
	}
	require.NoError(t, b.RecordConfigRevision(&core.ConfigRevision{
		Time: time.Now().UTC(), Version: "2.0.0", MaxNearby: 5, CheckRadius: 5,
		RestrictedKinds: []string{"bombA"}, Source: "startup",
	}))
	require.NoError(t, b.Flush())

	var count int64
	require.NoError(t, db.Model(&model.Decision{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
	require.NoError(t, db.Model(&model.ConfigRevision{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 0, b.QueueLengths()["decisions"])

	// decisions without a session are stored with a NULL session
	var d model.Decision
	require.NoError(t, db.First(&d).Error)
	assert.Nil(t, d.SessionID)
}

func TestFlush_FailedBatchIsRequeued(t *testing.T) {
	b, db := newSQLiteBackend(t)

	dup := decision("p1", "bombA", true)
	require.NoError(t, b.RecordDecision(dup))
	require.NoError(t, b.Flush())

	// same primary key again fails and stays queued
	require.NoError(t, b.RecordDecision(dup))
	assert.Error(t, b.Flush())
	assert.Equal(t, 1, b.QueueLengths()["decisions"])

	var count int64
	require.NoError(t, db.Model(&model.Decision{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestClose_FlushesQueued(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordDecision(decision("p1", "bombA", false)))
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.Decision{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWriteLoop_FlushesPeriodically(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordDecision(decision("p1", "bombA", true)))
	assert.Eventually(t, func() bool {
		return b.QueueLengths()["decisions"] == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueLimitDropsOldest(t *testing.T) {
	b := New(Dependencies{QueueLimit: 2})
	for i := 0; i < 5; i++ {
		require.NoError(t, b.RecordDecision(decision("p1", "bombA", true)))
	}
	assert.Equal(t, 2, b.QueueLengths()["decisions"])
	assert.Equal(t, uint64(3), b.Dropped())
}
