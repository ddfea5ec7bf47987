package postgres

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/siegelimit/internal/database"
	"github.com/OCAP2/siegelimit/internal/model"
	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pg.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestNew(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	assert.Nil(t, b.DB())
}

func TestInit_ConnectFailure(t *testing.T) {
	b := New(Dependencies{Config: database.PostgresConfig{
		Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x",
	}})
	err := b.Init()
	require.Error(t, err)
}

func TestInjectedDB(t *testing.T) {
	db := newTestDB(t)

	b := New(Dependencies{DB: db})
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	s := &core.Session{WorldName: "procedural", MissionName: "wipe", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartSession(s))
	assert.NotZero(t, s.ID)

	require.NoError(t, b.RecordDecision(&core.DecisionRecord{
		Time:      time.Now().UTC(),
		Candidate: core.PlacementCandidate{ActorID: "p1", Kind: "bombA"},
		Decision:  core.Decision{Allowed: false, Reason: core.ReasonAtOrOverLimit, Nearby: 5},
	}))
	require.NoError(t, b.Flush())

	var d model.Decision
	require.NoError(t, db.First(&d).Error)
	assert.Equal(t, "AtOrOverLimit", d.Reason)
	require.NotNil(t, d.SessionID)
	assert.Equal(t, s.ID, *d.SessionID)
}
