package evaluation

// Rejection codes. All are client-correctable: the submission (or query) is
// refused as a whole and nothing is persisted.
const (
	CodeStudentSessionRequired = "STUDENT_SESSION_REQUIRED"
	CodeRosterContextRequired  = "ROSTER_CONTEXT_REQUIRED"
	CodeNameNotFound           = "NAME_NOT_FOUND_IN_ROSTER"
	CodeAmbiguousName          = "AMBIGUOUS_NAME_IN_ROSTER"
	CodeCannotEvaluateSelf     = "CANNOT_EVALUATE_SELF"
	CodeInvalidRoster          = "INVALID_ROSTER"
)

// AmbiguousName carries every candidate for one duplicated display name so
// the client can prompt for disambiguation instead of guessing.
type AmbiguousName struct {
	Name       string   `json:"name"`
	Candidates []string `json:"candidates"`
}

// Rejection is a semantic refusal of a submission or query. It carries all
// the detail the client needs to correct its input without guessing.
type Rejection struct {
	Code    string          `json:"error"`
	Name    string          `json:"name,omitempty"`    // offending name (self-reference)
	Unknown []string        `json:"unknown,omitempty"` // names with no roster match
	Details []AmbiguousName `json:"details,omitempty"` // duplicated names with candidates
}

func (r *Rejection) Error() string { return r.Code }

func newRejection(code string) *Rejection { return &Rejection{Code: code} }

func selfRejection(name string) *Rejection {
	return &Rejection{Code: CodeCannotEvaluateSelf, Name: name}
}

func notFoundRejection(unknown []string) *Rejection {
	return &Rejection{Code: CodeNameNotFound, Unknown: unknown}
}

func ambiguousRejection(details []AmbiguousName) *Rejection {
	return &Rejection{Code: CodeAmbiguousName, Details: details}
}
