package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/peerval/peerval/core/student"
)

type studentRepository struct {
	students *studentTable
	rosters  *rosterTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{students: db.student, rosters: db.roster}
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.students.mutex.RLock()
	defer repo.students.mutex.RUnlock()

	if filter.ID != "" {
		if s, ok := repo.students.table[filter.ID]; ok {
			return *s, nil
		}
		return student.Student{}, student.ErrNotFound
	}
	if filter.Username != "" {
		for _, s := range repo.students.table {
			if s.Username == filter.Username {
				return *s, nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryRosterStudents(_ context.Context, rosterID string) ([]student.Student, error) {
	repo.students.mutex.RLock()
	defer repo.students.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.students.table))
	for _, s := range repo.students.table {
		if s.IsActive && s.MemberOf(rosterID) {
			students = append(students, *s)
		}
	}
	return students, nil
}

func (repo *studentRepository) GetRoster(_ context.Context, id string) (student.Roster, error) {
	repo.rosters.mutex.RLock()
	defer repo.rosters.mutex.RUnlock()

	if r, ok := repo.rosters.table[id]; ok {
		return *r, nil
	}
	return student.Roster{}, student.ErrRosterNotFound
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.students.mutex.Lock()
	defer repo.students.mutex.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	repo.students.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) CreateRoster(_ context.Context, r student.Roster) (student.Roster, error) {
	repo.rosters.mutex.Lock()
	defer repo.rosters.mutex.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now().UTC()
	repo.rosters.table[r.ID] = &r
	return r, nil
}
