package gormstorage

import (
	"testing"
	"time"

	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries(t *testing.T) {
	b, db := newSQLiteBackend(t)

	first := &core.Session{WorldName: "procedural", MissionName: "one", StartTime: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, b.StartSession(first))
	require.NoError(t, b.RecordDecision(decision("p1", "bombA", false)))
	require.NoError(t, b.RecordDecision(decision("p1", "bombA", false)))
	require.NoError(t, b.RecordDecision(decision("p2", "bombA", true)))
	require.NoError(t, b.RecordDecision(decision("p2", "bombB", false)))
	require.NoError(t, b.EndSession())

	second := &core.Session{WorldName: "procedural", MissionName: "two", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartSession(second))
	require.NoError(t, b.RecordDecision(decision("p3", "bombB", true)))
	require.NoError(t, b.RecordConfigRevision(&core.ConfigRevision{
		Time: time.Now().UTC(), Version: "2.0.0", MaxNearby: 3, RestrictedKinds: []string{"bombA"}, Source: "file",
	}))
	require.NoError(t, b.Flush())

	t.Run("sessions newest first", func(t *testing.T) {
		sessions, err := Sessions(db, 0)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "two", sessions[0].MissionName)
		assert.False(t, sessions[1].EndTime.IsZero())

		limited, err := Sessions(db, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("kind summaries per session", func(t *testing.T) {
		kinds, err := KindSummaries(db, first.ID)
		require.NoError(t, err)
		require.Len(t, kinds, 2)
		assert.Equal(t, "bombA", kinds[0].Kind)
		assert.Equal(t, int64(3), kinds[0].Total)
		assert.Equal(t, int64(1), kinds[0].Allowed)
		assert.Equal(t, int64(2), kinds[0].Denied)
	})

	t.Run("kind summaries across sessions", func(t *testing.T) {
		kinds, err := KindSummaries(db, 0)
		require.NoError(t, err)
		var total int64
		for _, k := range kinds {
			total += k.Total
		}
		assert.Equal(t, int64(5), total)
	})

	t.Run("top denied actors", func(t *testing.T) {
		actors, err := TopDeniedActors(db, 0, 1)
		require.NoError(t, err)
		require.Len(t, actors, 1)
		assert.Equal(t, "p1", actors[0].ActorID)
		assert.Equal(t, int64(2), actors[0].Denied)
	})

	t.Run("decisions of a session", func(t *testing.T) {
		decisions, err := Decisions(db, second.ID)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, "p3", decisions[0].Candidate.ActorID)
		assert.Equal(t, second.ID, decisions[0].SessionID)
		assert.Equal(t, core.ReasonUnderLimit, decisions[0].Decision.Reason)
	})

	t.Run("config revisions", func(t *testing.T) {
		revs, err := ConfigRevisions(db)
		require.NoError(t, err)
		require.Len(t, revs, 1)
		assert.Equal(t, []string{"bombA"}, revs[0].RestrictedKinds)
		assert.Equal(t, "file", revs[0].Source)
	})
}
