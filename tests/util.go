package testutil

import (
	"context"
	"testing"

	"github.com/peerval/peerval/core/evaluation"
	"github.com/peerval/peerval/core/student"
)

type studentWriter interface {
	CreateStudent(ctx context.Context, s student.Student) (student.Student, error)
	CreateRoster(ctx context.Context, r student.Roster) (student.Roster, error)
}

func CreateRoster(t *testing.T, repo studentWriter, id, name, teacherID string) student.Roster {
	t.Helper()
	roster, err := repo.CreateRoster(context.Background(), student.Roster{
		ID:        id,
		Name:      name,
		TeacherID: teacherID,
	})
	if err != nil {
		t.Fatalf("createRoster() failed: %v", err)
	}
	return roster
}

func CreateStudent(
	t *testing.T,
	repo studentWriter,
	uname, name, number, teacherID, rosterID string,
	extraRosters ...string,
) student.Student {
	t.Helper()
	s := student.Student{
		Username:  uname,
		Name:      name,
		StudentID: number,
		TeacherID: teacherID,
		RosterID:  rosterID,
		RosterIDs: append([]string{rosterID}, extraRosters...),
		IsActive:  true,
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

// Session builds the student session matching a provisioned member.
func Session(s student.Student) student.Session {
	return student.Session{
		Role:      student.RoleStudent,
		UID:       s.ID,
		Username:  s.Username,
		Name:      s.Name,
		TeacherID: s.TeacherID,
		RosterID:  s.RosterID,
		RosterIDs: s.RosterIDs,
	}
}

// CreateRecord appends a fully-resolved record, bypassing the resolver.
func CreateRecord(t *testing.T, repo evaluation.Repository, rec evaluation.Record) evaluation.Record {
	t.Helper()
	stored, err := repo.CreateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("createRecord() failed: %v", err)
	}
	return stored
}
