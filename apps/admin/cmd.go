package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/peerval/peerval/core/student"
)

var errHelp = errors.New("help provided")

// studentStore is the slice of the storage layer the CLI drives.
type studentStore interface {
	GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error)
	GetRoster(ctx context.Context, id string) (student.Roster, error)
	CreateStudent(ctx context.Context, s student.Student) (student.Student, error)
	CreateRoster(ctx context.Context, r student.Roster) (student.Roster, error)
}

type commandLine struct {
	db   *sqlx.DB
	repo studentStore
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  addroster -name NAME -teacher TEACHER_ID [-id ID] - register a roster")
	fmt.Println("  addstudent -username USERNAME -name NAME -roster ROSTER_ID [-number NUMBER] [-teacher TEACHER_ID] [-rosters IDS] - enroll a student")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addRosterCmd := flag.NewFlagSet("addroster", flag.ExitOnError)
	addRosterID := addRosterCmd.String("id", "", "The roster id. Generated when omitted.")
	addRosterName := addRosterCmd.String("name", "", "The roster's display name.")
	addRosterTeacher := addRosterCmd.String("teacher", "", "The owning teacher's id.")

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ExitOnError)
	addStudentUname := addStudentCmd.String("username", "", "The student's username.")
	addStudentName := addStudentCmd.String("name", "", "The student's display name, as it appears on the roster.")
	addStudentNumber := addStudentCmd.String("number", "", "The school-issued student number.")
	addStudentTeacher := addStudentCmd.String("teacher", "", "The owning teacher's id.")
	addStudentRoster := addStudentCmd.String("roster", "", "The student's primary roster id.")
	addStudentRosters := addStudentCmd.String("rosters", "", "Extra roster ids, comma separated.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addroster":
		if err := addRosterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addRosterName == "" || *addRosterTeacher == "" {
			addRosterCmd.Usage()
			return errHelp
		}
		return cli.addRoster(*addRosterID, *addRosterName, *addRosterTeacher)
	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentUname == "" || *addStudentName == "" || *addStudentRoster == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(addStudentOpts{
			username: *addStudentUname,
			name:     *addStudentName,
			number:   *addStudentNumber,
			teacher:  *addStudentTeacher,
			roster:   *addStudentRoster,
			rosters:  *addStudentRosters,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}
