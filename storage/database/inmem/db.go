package inmemdb

import (
	"sync"

	"github.com/peerval/peerval/core/evaluation"
	"github.com/peerval/peerval/core/student"
)

type (
	studentTable struct {
		mutex sync.RWMutex
		table map[string]*student.Student // keyed by id
	}

	rosterTable struct {
		mutex sync.RWMutex
		table map[string]*student.Roster
	}

	evaluationTable struct {
		mutex sync.RWMutex
		table []*evaluation.Record // append-only, insertion order
	}

	DB struct {
		student    *studentTable
		roster     *rosterTable
		evaluation *evaluationTable
	}
)

func NewDB() *DB {
	return &DB{
		student:    &studentTable{table: make(map[string]*student.Student)},
		roster:     &rosterTable{table: make(map[string]*student.Roster)},
		evaluation: &evaluationTable{table: make([]*evaluation.Record, 0)},
	}
}
