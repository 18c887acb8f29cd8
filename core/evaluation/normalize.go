package evaluation

import (
	"encoding/json"
	"time"

	"github.com/peerval/peerval/core"
)

// The store accumulated several record shapes over time: nominees as a bare
// string, as an array of strings, as an array of identity refs, and as split
// targetUsername/targetStudentId/targetName fields (sometimes nested under a
// `target` or `nominee` object); `peers` as an alias for `peerEvaluations`;
// the evaluator as a flat `evaluatorUsername`. RawRecord accepts all of them
// and Normalize maps them to the one canonical Record shape. Readers of
// legacy data stay isolated behind this adapter; the aggregator only ever
// sees canonical records.

type (
	// RawTarget is a nested nominee reference found in some legacy records.
	RawTarget struct {
		StudentID string `json:"studentId,omitempty"`
		Username  string `json:"username,omitempty"`
		Name      string `json:"name,omitempty"`
	}

	RawPeerEvaluation struct {
		Competency      string          `json:"competency,omitempty"`
		Nominees        json.RawMessage `json:"nominees,omitempty"`
		Reasons         []string        `json:"reasons,omitempty"`
		Reason          string          `json:"reason,omitempty"`
		TargetDocID     string          `json:"targetDocId,omitempty"`
		TargetStudentID string          `json:"targetStudentId,omitempty"`
		TargetUsername  string          `json:"targetUsername,omitempty"`
		TargetName      string          `json:"targetName,omitempty"`
		Target          *RawTarget      `json:"target,omitempty"`
		NomineeRef      *RawTarget      `json:"nominee,omitempty"`
	}

	RawRecord struct {
		ID                string              `json:"id,omitempty"`
		Type              string              `json:"type,omitempty"`
		Date              string              `json:"date,omitempty"`
		TeacherID         string              `json:"teacherId,omitempty"`
		RosterID          string              `json:"rosterId,omitempty"`
		Evaluator         *Evaluator          `json:"evaluator,omitempty"`
		EvaluatorUsername string              `json:"evaluatorUsername,omitempty"`
		PeerEvaluations   []RawPeerEvaluation `json:"peerEvaluations,omitempty"`
		Peers             []RawPeerEvaluation `json:"peers,omitempty"`
		SelfEvaluation    *SelfEvaluation     `json:"selfEvaluation,omitempty"`
		CreatedAt         time.Time           `json:"createdAt,omitempty"`
		UpdatedAt         time.Time           `json:"updatedAt,omitempty"`
	}
)

// Normalize maps a raw record to the canonical shape. ok is false when
// nothing in the record is mappable; such records are dropped from query
// results (with a debug note at the store layer), never a crash.
//
// Normalization is idempotent: a canonical record that goes through the raw
// representation and back normalizes to itself.
func (raw RawRecord) Normalize() (Record, bool) {
	rec := Record{
		ID:        raw.ID,
		Type:      raw.Type,
		Date:      core.CleanString(raw.Date),
		TeacherID: core.CleanString(raw.TeacherID),
		RosterID:  core.CleanString(raw.RosterID),
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	if rec.Type == "" {
		rec.Type = RecordType
	}
	if rec.Date == "" && !raw.CreatedAt.IsZero() {
		rec.Date = raw.CreatedAt.UTC().Format("2006-01-02")
	}

	if raw.Evaluator != nil {
		rec.Evaluator = Evaluator{
			UID:      core.CleanString(raw.Evaluator.UID),
			Username: core.CleanString(raw.Evaluator.Username),
			Name:     core.CleanString(raw.Evaluator.Name),
		}
	} else if u := core.CleanString(raw.EvaluatorUsername); u != "" {
		rec.Evaluator = Evaluator{Username: u}
	}

	items := raw.PeerEvaluations
	if len(items) == 0 {
		items = raw.Peers
	}
	if len(items) > 0 {
		rec.PeerEvaluations = make([]PeerEvaluation, 0, len(items))
		for _, item := range items {
			if pe, ok := item.normalize(); ok {
				rec.PeerEvaluations = append(rec.PeerEvaluations, pe)
			}
		}
		if len(rec.PeerEvaluations) == 0 {
			rec.PeerEvaluations = nil
		}
	}

	if raw.SelfEvaluation != nil {
		se := SelfEvaluation{
			Competency: core.CleanString(raw.SelfEvaluation.Competency),
			Reason:     core.CleanString(raw.SelfEvaluation.Reason),
		}
		if se.Competency != "" {
			rec.SelfEvaluation = &se
		}
	}

	ok := len(rec.PeerEvaluations) > 0 || rec.SelfEvaluation != nil
	return rec, ok
}

func (raw RawPeerEvaluation) normalize() (PeerEvaluation, bool) {
	pe := PeerEvaluation{Competency: core.CleanString(raw.Competency)}

	pe.Nominees = parseNominees(raw.Nominees)
	if len(pe.Nominees) == 0 {
		if n := raw.singleNominee(); !n.isZero() {
			pe.Nominees = []Nominee{n}
		}
	}

	for _, r := range raw.Reasons {
		if r = core.CleanString(r); r != "" {
			pe.Reasons = append(pe.Reasons, r)
		}
	}
	if len(pe.Reasons) == 0 {
		if r := core.CleanString(raw.Reason); r != "" {
			pe.Reasons = []string{r}
		}
	}

	if pe.Competency == "" || len(pe.Nominees) == 0 {
		return PeerEvaluation{}, false
	}
	return pe, true
}

// parseNominees accepts the three historical encodings of the nominees field:
// an array of identity refs, an array of bare strings, or a single bare string.
func parseNominees(data json.RawMessage) []Nominee {
	if len(data) == 0 {
		return nil
	}

	var refs []Nominee
	if err := json.Unmarshal(data, &refs); err == nil {
		nominees := refs[:0]
		for _, n := range refs {
			n.DocID = core.CleanString(n.DocID)
			n.StudentID = core.CleanString(n.StudentID)
			n.Username = core.CleanString(n.Username)
			n.Name = core.CleanString(n.Name)
			if !n.isZero() {
				nominees = append(nominees, n)
			}
		}
		if len(nominees) == 0 {
			return nil
		}
		return nominees
	}

	var strs []string
	if err := json.Unmarshal(data, &strs); err == nil {
		nominees := make([]Nominee, 0, len(strs))
		for _, s := range strs {
			if s = core.CleanString(s); s != "" {
				nominees = append(nominees, Nominee{Username: s})
			}
		}
		if len(nominees) == 0 {
			return nil
		}
		return nominees
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s = core.CleanString(s); s != "" {
			return []Nominee{{Username: s}}
		}
	}
	return nil
}

// singleNominee assembles a nominee from the split target fields, falling
// back to the nested object variants.
func (raw RawPeerEvaluation) singleNominee() Nominee {
	n := Nominee{
		DocID:     core.CleanString(raw.TargetDocID),
		StudentID: core.CleanString(raw.TargetStudentID),
		Username:  core.CleanString(raw.TargetUsername),
		Name:      core.CleanString(raw.TargetName),
	}
	if !n.isZero() {
		return n
	}
	for _, tgt := range []*RawTarget{raw.Target, raw.NomineeRef} {
		if tgt == nil {
			continue
		}
		n = Nominee{
			StudentID: core.CleanString(tgt.StudentID),
			Username:  core.CleanString(tgt.Username),
			Name:      core.CleanString(tgt.Name),
		}
		if !n.isZero() {
			return n
		}
	}
	return Nominee{}
}

// NormalizeJSON runs a raw JSON document through the adapter. It is how the
// store layers feed persisted payloads to the engine.
func NormalizeJSON(data []byte) (Record, bool, error) {
	var raw RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, false, err
	}
	rec, ok := raw.Normalize()
	return rec, ok, nil
}
