package student

import (
	"fmt"

	"github.com/peerval/peerval/core"
)

// Resolution failure kinds.
const (
	ResolutionNotFound      = "NOT_FOUND"
	ResolutionAmbiguous     = "AMBIGUOUS"
	ResolutionSelfReference = "SELF_REFERENCE"
)

// ResolutionError is returned when a free-text nominee name cannot be mapped
// to exactly one roster member.
type ResolutionError struct {
	Kind       string
	Name       string   // the input name, as submitted
	Candidates []string // student ids of every match when Kind == ResolutionAmbiguous
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %q: %s", e.Name, e.Kind)
}

// NameIndex maps display names to roster members. The exact NFC-composed form
// is the primary key; a case-folded key exists for loose matching only, so
// that folding never merges names that differ in their exact form.
type NameIndex struct {
	exact  map[string][]Student
	folded map[string][]Student
}

// BuildIndex builds a point-in-time name index over one roster's members.
// Students without a usable display name are left out.
func BuildIndex(students []Student) NameIndex {
	idx := NameIndex{
		exact:  make(map[string][]Student, len(students)),
		folded: make(map[string][]Student, len(students)),
	}
	for _, s := range students {
		key := core.NormalizeName(s.Name)
		if key == "" {
			continue
		}
		idx.exact[key] = append(idx.exact[key], s)
		idx.folded[core.FoldName(s.Name)] = append(idx.folded[core.FoldName(s.Name)], s)
	}
	return idx
}

// Lookup returns the candidates for a submitted name: exact-form matches when
// any exist, case-folded matches otherwise.
func (idx NameIndex) Lookup(name string) []Student {
	if candidates := idx.exact[core.NormalizeName(name)]; len(candidates) > 0 {
		return candidates
	}
	return idx.folded[core.FoldName(name)]
}

// Len returns the number of distinct exact-form names in the index.
func (idx NameIndex) Len() int { return len(idx.exact) }

// Resolve maps a free-text nominee name to exactly one roster member.
// It is a pure function over the index and its inputs: zero candidates is
// NOT_FOUND, several candidates is AMBIGUOUS with the full candidate id list
// (never a silent pick), and a single candidate matching the evaluator is
// SELF_REFERENCE.
func Resolve(name string, evaluator Student, idx NameIndex) (Student, error) {
	candidates := idx.Lookup(name)
	switch len(candidates) {
	case 0:
		return Student{}, &ResolutionError{Kind: ResolutionNotFound, Name: name}
	case 1:
		match := candidates[0]
		if isSelf(match, evaluator) {
			return Student{}, &ResolutionError{Kind: ResolutionSelfReference, Name: name}
		}
		return match, nil
	default:
		ids := make([]string, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.StudentNumber())
		}
		return Student{}, &ResolutionError{Kind: ResolutionAmbiguous, Name: name, Candidates: ids}
	}
}

// StudentNumber returns the school-issued number, falling back to the
// document id for rows imported before the number existed.
func (s Student) StudentNumber() string {
	if s.StudentID != "" {
		return s.StudentID
	}
	return s.ID
}

func isSelf(match, evaluator Student) bool {
	if evaluator.ID != "" && match.ID == evaluator.ID {
		return true
	}
	// sessions predating uid stamping only carry the username
	return evaluator.ID == "" && evaluator.Username != "" && match.Username == evaluator.Username
}
