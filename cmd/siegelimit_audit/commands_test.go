package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/siegelimit/internal/database"
	gormstorage "github.com/OCAP2/siegelimit/internal/storage/gorm"
	"github.com/OCAP2/siegelimit/pkg/core"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedDB(t *testing.T) (*gorm.DB, uint) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)

	b := gormstorage.New(gormstorage.Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	sess := &core.Session{WorldName: "Altis", MissionName: "Siege", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartSession(sess))
	for i, actor := range []string{"p1", "p1", "p2"} {
		require.NoError(t, b.RecordDecision(&core.DecisionRecord{
			ID:        uuid.NewString(),
			Time:      time.Now().UTC(),
			Candidate: core.PlacementCandidate{ActorID: actor, Kind: "bombA"},
			Decision:  core.Decision{Allowed: i == 2, Reason: core.ReasonAtOrOverLimit, Nearby: 5},
		}))
	}
	require.NoError(t, b.EndSession())
	return db, sess.ID
}

func TestRun_Sessions(t *testing.T) {
	db, _ := seedDB(t)

	var out bytes.Buffer
	require.NoError(t, run(&out, db, "sessions", nil))
	assert.Contains(t, out.String(), "Altis")
	assert.Contains(t, out.String(), "Siege")
	assert.NotContains(t, out.String(), "running")
}

func TestRun_SummaryAndDenied(t *testing.T) {
	db, id := seedDB(t)

	var out bytes.Buffer
	require.NoError(t, run(&out, db, "summary", []string{"1"}))
	assert.Regexp(t, `bombA\s+3\s+1\s+2`, out.String())

	out.Reset()
	require.NoError(t, run(&out, db, "denied", []string{"0", "5"}))
	assert.Regexp(t, `p1\s+2`, out.String())
	assert.Equal(t, uint(1), id)
}

func TestRun_Export(t *testing.T) {
	db, id := seedDB(t)
	path := filepath.Join(t.TempDir(), "session.json.gz")

	require.NoError(t, run(io.Discard, db, "export", []string{"1", path}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var doc sessionExport
	require.NoError(t, json.NewDecoder(zr).Decode(&doc))
	require.NotNil(t, doc.Session)
	assert.Equal(t, id, doc.Session.ID)
	assert.Len(t, doc.Decisions, 3)
}

func TestRun_Errors(t *testing.T) {
	db, _ := seedDB(t)

	assert.Error(t, run(io.Discard, db, "nope", nil))
	assert.Error(t, run(io.Discard, db, "export", []string{"1"}))
	assert.Error(t, run(io.Discard, db, "export", []string{"99", filepath.Join(t.TempDir(), "x.json")}))
	assert.Error(t, run(io.Discard, db, "sessions", []string{"-1"}))
}

func TestListBackups(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "siegelimit_audit.db"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	var out bytes.Buffer
	require.NoError(t, listBackups(&out, dir))
	assert.Contains(t, out.String(), "siegelimit_audit.db")
	assert.NotContains(t, out.String(), "notes.txt")
}
