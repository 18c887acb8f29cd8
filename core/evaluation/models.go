package evaluation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/peerval/peerval/core"
)

// RecordType discriminates daily evaluations from other documents sharing the
// evaluations collection in historical exports.
const RecordType = "daily-evaluation"

// JSON tags are camelCased to stay wire-compatible with the documents already
// in the store.
type (
	// Evaluator identifies the submitting student inside a record.
	Evaluator struct {
		UID      string `json:"uid,omitempty"`
		Username string `json:"username,omitempty"`
		Name     string `json:"name,omitempty"`
	}

	// Nominee references one roster member. At least one of the identifying
	// fields is set; fully-resolved records carry all of them.
	Nominee struct {
		DocID     string `json:"docId,omitempty"`
		StudentID string `json:"studentId,omitempty"`
		Username  string `json:"username,omitempty"`
		Name      string `json:"name,omitempty"`
	}

	PeerEvaluation struct {
		Competency string    `json:"competency"`
		Nominees   []Nominee `json:"nominees"`
		Reasons    []string  `json:"reasons,omitempty"`
	}

	SelfEvaluation struct {
		Competency string `json:"competency"`
		Reason     string `json:"reason,omitempty"`
	}

	// Record is the canonical unit of persistence: one per submission,
	// immutable after creation. Corrections are new submissions.
	Record struct {
		ID              string           `json:"id,omitempty"`
		Type            string           `json:"type"`
		Date            string           `json:"date"` // calendar day, YYYY-MM-DD
		TeacherID       string           `json:"teacherId"`
		RosterID        string           `json:"rosterId"`
		Evaluator       Evaluator        `json:"evaluator"`
		PeerEvaluations []PeerEvaluation `json:"peerEvaluations"`
		SelfEvaluation  *SelfEvaluation  `json:"selfEvaluation,omitempty"`
		CreatedAt       time.Time        `json:"createdAt,omitempty"` // stamped by the store
		UpdatedAt       time.Time        `json:"updatedAt,omitempty"`
	}
)

// Matches reports whether the nominee references the student with the given
// durable username. Legacy records may only carry the student number or the
// display name, so all three keys are honoured.
func (n Nominee) Matches(username string) bool {
	if username == "" {
		return false
	}
	return n.Username == username || n.StudentID == username || n.Name == username
}

// Ref returns the first usable identifying key.
func (n Nominee) Ref() string {
	switch {
	case n.StudentID != "":
		return n.StudentID
	case n.Username != "":
		return n.Username
	default:
		return n.Name
	}
}

func (n Nominee) isZero() bool {
	return n.StudentID == "" && n.Username == "" && n.Name == "" && n.DocID == ""
}

// GivenBy reports whether the record was submitted by the given username.
func (r Record) GivenBy(username string) bool {
	return username != "" && r.Evaluator.Username == username
}

// Nominates reports whether any peer evaluation in the record nominates the
// given username.
func (r Record) Nominates(username string) bool {
	for _, pe := range r.PeerEvaluations {
		for _, n := range pe.Nominees {
			if n.Matches(username) {
				return true
			}
		}
	}
	return false
}

// Submission is the client payload of POST /evaluations.
type (
	SubmissionItem struct {
		Competency string `json:"competency" validate:"required"`
		Name       string `json:"name"`
		Reason     string `json:"reason"`
	}

	SelfSubmission struct {
		Competency string `json:"competency" validate:"required"`
		Reason     string `json:"reason"`
	}

	Submission struct {
		Date            string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
		PeerEvaluations []SubmissionItem `json:"peerEvaluations" validate:"omitempty,dive"`
		SelfEvaluation  *SelfSubmission  `json:"selfEvaluation"`
	}
)

// Validate cleans the payload and checks its shape. Items without a nominee
// name are dropped rather than rejected, matching how clients send
// partially-filled forms.
func (s *Submission) Validate(validate *validator.Validate) error {
	s.Date = core.CleanString(s.Date)

	items := s.PeerEvaluations[:0]
	for _, item := range s.PeerEvaluations {
		item.Competency = core.CleanString(item.Competency)
		item.Name = core.CleanString(item.Name)
		item.Reason = core.CleanString(item.Reason)
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	s.PeerEvaluations = items

	if s.SelfEvaluation != nil {
		s.SelfEvaluation.Competency = core.CleanString(s.SelfEvaluation.Competency)
		s.SelfEvaluation.Reason = core.CleanString(s.SelfEvaluation.Reason)
		if s.SelfEvaluation.Competency == "" && s.SelfEvaluation.Reason == "" {
			s.SelfEvaluation = nil
		}
	}

	return validate.Struct(s)
}

// Evaluation types accepted by query filters.
const (
	TypePeer = "peer"
	TypeSelf = "self"
	TypeAll  = "all"
)

// DateRange bounds a query on the calendar-day string; both bounds are
// inclusive and either may be empty.
type DateRange struct {
	Start string `json:"startDate,omitempty" query:"startDate" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"endDate,omitempty" query:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

func (dr DateRange) Contains(date string) bool {
	if dr.Start != "" && date < dr.Start {
		return false
	}
	if dr.End != "" && date > dr.End {
		return false
	}
	return true
}

func (dr DateRange) IsEmpty() bool { return dr.Start == "" && dr.End == "" }

// QueryFilter narrows GET /evaluations.
// TeacherID/RosterID are applied by the store; the rest in memory.
type QueryFilter struct {
	TeacherID      string `query:"teacherId"`
	RosterID       string `query:"rosterId"`
	TargetUsername string `query:"targetUsername"`
	EvaluationType string `query:"evaluationType"`
	All            bool   `query:"all"`
	DateRange
}

func (qf *QueryFilter) Clean() {
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.RosterID = core.CleanString(qf.RosterID)
	qf.TargetUsername = core.CleanString(qf.TargetUsername)
	qf.EvaluationType = core.CleanString(qf.EvaluationType, true /* lower */)
	if qf.EvaluationType == "" {
		qf.EvaluationType = TypeAll
	}
	qf.Start = core.CleanString(qf.Start)
	qf.End = core.CleanString(qf.End)
}

// AdminMode reports whether the query is teacher/admin-scoped rather than
// scoped to one target student.
func (qf QueryFilter) AdminMode() bool {
	return qf.TeacherID != "" || qf.All
}
