package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/student"
)

// addRoster registers a roster so sessions and evaluations can reference it.
func (cli *commandLine) addRoster(id, name, teacherID string) error {
	ctx := context.Background()

	id = core.CleanString(id)
	if id == "" {
		id = uuid.NewString()
	}

	roster := student.Roster{
		ID:        id,
		Name:      core.CleanString(name),
		TeacherID: core.CleanString(teacherID),
	}
	if _, err := cli.repo.CreateRoster(ctx, roster); err != nil {
		return err
	}
	logger.Printf("roster %q created (id=%s)", roster.Name, roster.ID)
	return nil
}
