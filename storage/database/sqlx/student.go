package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/peerval/peerval/core/student"
)

type studentRow struct {
	ID        string         `db:"id"`
	StudentID null.String    `db:"student_id"`
	Username  null.String    `db:"username"`
	Name      null.String    `db:"name"`
	TeacherID null.String    `db:"teacher_id"`
	RosterID  null.String    `db:"roster_id"`
	RosterIDs pq.StringArray `db:"roster_ids"`
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type rosterRow struct {
	ID        string      `db:"id"`
	Name      null.String `db:"name"`
	TeacherID null.String `db:"teacher_id"`
	CreatedAt time.Time   `db:"created_at"`
}

type studentRepository struct {
	db sqlx.ExtContext
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db sqlx.ExtContext) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) unboil(row studentRow) student.Student {
	return student.Student{
		ID:        row.ID,
		StudentID: row.StudentID.String,
		Username:  row.Username.String,
		Name:      row.Name.String,
		TeacherID: row.TeacherID.String,
		RosterID:  row.RosterID.String,
		RosterIDs: row.RosterIDs,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	query := "SELECT * FROM student WHERE username = $1"
	key := filter.Username
	if filter.ID != "" {
		query = "SELECT * FROM student WHERE id = $1"
		key = filter.ID
	}
	if key == "" {
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	if err := sqlx.GetContext(ctx, repo.db, &row, query, key); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return repo.unboil(row), nil
}

func (repo studentRepository) QueryRosterStudents(ctx context.Context, rosterID string) ([]student.Student, error) {
	var rows []studentRow
	err := sqlx.SelectContext(ctx, repo.db, &rows,
		"SELECT * FROM student WHERE is_active AND (roster_id = $1 OR $1 = ANY(roster_ids))", rosterID)
	if err != nil {
		return nil, errors.Wrap(err, "querying roster students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unboil(row))
	}
	return students, nil
}

func (repo studentRepository) GetRoster(ctx context.Context, id string) (student.Roster, error) {
	var row rosterRow
	if err := sqlx.GetContext(ctx, repo.db, &row, "SELECT * FROM roster WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return student.Roster{}, student.ErrRosterNotFound
		}
		return student.Roster{}, errors.Wrap(err, "finding roster")
	}
	return student.Roster{
		ID:        row.ID,
		Name:      row.Name.String,
		TeacherID: row.TeacherID.String,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Write-side helpers for the admin CLI. The evaluation engine itself treats
// roster membership as read-only.

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO student (id, student_id, username, name, teacher_id, roster_id, roster_ids, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID,
		null.NewString(s.StudentID, s.StudentID != ""),
		null.NewString(s.Username, s.Username != ""),
		null.NewString(s.Name, s.Name != ""),
		null.NewString(s.TeacherID, s.TeacherID != ""),
		null.NewString(s.RosterID, s.RosterID != ""),
		pq.StringArray(s.Rosters()),
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) CreateRoster(ctx context.Context, r student.Roster) (student.Roster, error) {
	r.CreatedAt = time.Now().UTC()
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO roster (id, name, teacher_id, created_at) VALUES ($1, $2, $3, $4)",
		r.ID,
		null.NewString(r.Name, r.Name != ""),
		null.NewString(r.TeacherID, r.TeacherID != ""),
		r.CreatedAt,
	)
	if err != nil {
		return student.Roster{}, errors.Wrap(err, "inserting roster")
	}
	return r, nil
}
