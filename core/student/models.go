package student

import (
	"time"
)

// Student is a roster member as provisioned by the roster administration
// tooling. Records are read-only to the evaluation engine.
type Student struct {
	ID        string    `json:"id"`         // storage document id
	StudentID string    `json:"student_id"` // school-issued number; falls back to ID
	Username  string    `json:"username"`
	Name      string    `json:"name"` // display name; NOT unique within a roster
	TeacherID string    `json:"teacher_id"`
	RosterID  string    `json:"roster_id"` // primary roster
	RosterIDs []string  `json:"roster_ids,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Rosters returns every roster the student belongs to.
func (s Student) Rosters() []string {
	if len(s.RosterIDs) > 0 {
		return s.RosterIDs
	}
	if s.RosterID != "" {
		return []string{s.RosterID}
	}
	return nil
}

// MemberOf reports whether the student belongs to the given roster.
func (s Student) MemberOf(rosterID string) bool {
	for _, id := range s.Rosters() {
		if id == rosterID {
			return true
		}
	}
	return false
}

type Roster struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Session is the identity the session provider attaches to a request.
// teacherId/rosterId may be missing and must then be backfilled from the
// roster membership store.
type Session struct {
	Role      string   `json:"role"`
	UID       string   `json:"uid"`
	Username  string   `json:"username"`
	Name      string   `json:"name"`
	TeacherID string   `json:"teacher_id,omitempty"`
	RosterID  string   `json:"roster_id,omitempty"`
	RosterIDs []string `json:"roster_ids,omitempty"`
}

const RoleStudent = "student"

func (s Session) IsStudent() bool { return s.Role == RoleStudent }

// Key returns the identifier used to look the subject up in the membership
// store when session data is incomplete.
func (s Session) Key() string {
	if s.UID != "" {
		return s.UID
	}
	return s.Username
}
