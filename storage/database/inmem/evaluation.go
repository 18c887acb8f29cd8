package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/peerval/peerval/core/evaluation"
)

type evaluationRepository struct {
	db *evaluationTable
}

var _ evaluation.Repository = (*evaluationRepository)(nil)

func NewEvaluationRepository(db *DB) *evaluationRepository {
	return &evaluationRepository{db: db.evaluation}
}

func (repo *evaluationRepository) CreateRecord(_ context.Context, rec evaluation.Record) (evaluation.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec.ID = uuid.New().String()
	if rec.Type == "" {
		rec.Type = evaluation.RecordType
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	stored := rec
	repo.db.table = append(repo.db.table, &stored)
	return rec, nil
}

func (repo *evaluationRepository) QueryRecords(_ context.Context, filter *evaluation.QueryFilter) ([]evaluation.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// newest first: reverse insertion order
	records := make([]evaluation.Record, 0, len(repo.db.table))
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		rec := *repo.db.table[i]
		if filter != nil {
			if filter.TeacherID != "" && rec.TeacherID != filter.TeacherID {
				continue
			}
			if filter.RosterID != "" && rec.RosterID != filter.RosterID {
				continue
			}
			if !filter.DateRange.Contains(rec.Date) {
				continue
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Len reports how many records have been appended; test helper.
func (repo *evaluationRepository) Len() int {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.table)
}
