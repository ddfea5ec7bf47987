package gormstorage

import (
	"fmt"

	"github.com/OCAP2/siegelimit/internal/model"
	"github.com/OCAP2/siegelimit/internal/model/convert"
	"github.com/OCAP2/siegelimit/pkg/core"

	"gorm.io/gorm"
)

// Sessions returns the most recent sessions first.
func Sessions(db *gorm.DB, limit int) ([]core.Session, error) {
	var rows []model.Session
	q := db.Model(&model.Session{}).Order("start_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error getting sessions: %w", err)
	}

	out := make([]core.Session, len(rows))
	for i, r := range rows {
		out[i] = convert.SessionToCore(r)
	}
	return out, nil
}

// scope limits a query to one session; 0 means all sessions.
func scope(db *gorm.DB, sessionID uint) *gorm.DB {
	q := db.Model(&model.Decision{})
	if sessionID != 0 {
		q = q.Where("session_id = ?", sessionID)
	}
	return q
}

// KindSummaries counts allowed and denied decisions per kind.
func KindSummaries(db *gorm.DB, sessionID uint) ([]model.KindSummary, error) {
	var out []model.KindSummary
	err := scope(db, sessionID).
		Select(`kind,
			COUNT(*) AS total,
			SUM(CASE WHEN allowed THEN 1 ELSE 0 END) AS allowed,
			SUM(CASE WHEN allowed THEN 0 ELSE 1 END) AS denied`).
		Group("kind").
		Order("total DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("error summarising kinds: %w", err)
	}
	return out, nil
}

// TopDeniedActors lists the actors with the most denied placements.
func TopDeniedActors(db *gorm.DB, sessionID uint, limit int) ([]model.ActorSummary, error) {
	var out []model.ActorSummary
	q := scope(db, sessionID).
		Select("actor_id, COUNT(*) AS denied").
		Where("allowed = ?", false).
		Group("actor_id").
		Order("denied DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("error summarising actors: %w", err)
	}
	return out, nil
}

// Decisions returns a session's decisions in time order.
func Decisions(db *gorm.DB, sessionID uint) ([]core.DecisionRecord, error) {
	var rows []model.Decision
	if err := scope(db, sessionID).Order("time ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error getting decisions: %w", err)
	}

	out := make([]core.DecisionRecord, len(rows))
	for i, r := range rows {
		rec, err := convert.DecisionToCore(r)
		if err != nil {
			return nil, fmt.Errorf("error getting decisions: %w", err)
		}
		out[i] = rec
	}
	return out, nil
}

// ConfigRevisions returns the recorded config history, oldest first.
func ConfigRevisions(db *gorm.DB) ([]core.ConfigRevision, error) {
	var rows []model.ConfigRevision
	if err := db.Model(&model.ConfigRevision{}).Order("time ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error getting config revisions: %w", err)
	}

	out := make([]core.ConfigRevision, len(rows))
	for i, r := range rows {
		out[i] = convert.ConfigRevisionToCore(r)
	}
	return out, nil
}
