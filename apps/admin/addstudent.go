package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/student"
)

type addStudentOpts struct {
	username string
	name     string
	number   string
	teacher  string
	roster   string
	rosters  string
}

// addStudent enrolls a student on a roster. The username must be unused; the
// display name intentionally may collide with existing members.
func (cli *commandLine) addStudent(opts addStudentOpts) error {
	ctx := context.Background()
	uname := core.CleanString(opts.username, true /* lower */)

	if _, err := cli.repo.GetStudent(ctx, student.GetFilter{Username: uname}); err == nil {
		return fmt.Errorf("username %q is already taken", uname)
	} else if err != student.ErrNotFound {
		return err
	}

	rosterID := core.CleanString(opts.roster)
	if _, err := cli.repo.GetRoster(ctx, rosterID); err != nil {
		return err
	}

	rosterIDs := []string{rosterID}
	for _, id := range strings.Split(opts.rosters, ",") {
		if id = core.CleanString(id); id != "" && id != rosterID {
			rosterIDs = append(rosterIDs, id)
		}
	}

	s := student.Student{
		ID:        uuid.NewString(),
		StudentID: core.CleanString(opts.number),
		Username:  uname,
		Name:      core.NormalizeName(opts.name),
		TeacherID: core.CleanString(opts.teacher),
		RosterID:  rosterID,
		RosterIDs: rosterIDs,
		IsActive:  true,
	}
	if _, err := cli.repo.CreateStudent(ctx, s); err != nil {
		return err
	}
	logger.Printf("student %q enrolled on roster %s (id=%s)", s.Username, rosterID, s.ID)
	return nil
}
