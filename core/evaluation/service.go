package evaluation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/student"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		// CreateRecord appends one record and returns it with its opaque id
		// and write-time stamps set. Records are never updated or deleted.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		// QueryRecords returns normalized records matching the store-level
		// filter fields (teacherId, rosterId, date bounds), newest first.
		// One pass per call; unmappable legacy rows are skipped.
		QueryRecords(ctx context.Context, filter *QueryFilter) ([]Record, error)
	}

	// Receipt acknowledges a stored submission.
	Receipt struct {
		ID    string `json:"id"`
		Saved int    `json:"saved"` // peer nominations + optional self-evaluation
	}

	Service interface {
		// Ingest validates a submission, resolves every nominee within the
		// evaluator's roster, and appends exactly one record. Any resolution
		// failure aborts the whole submission; nothing is persisted.
		Ingest(ctx context.Context, sess student.Session, sub Submission) (Receipt, error)
		// Query returns normalized records for the dashboard views.
		Query(ctx context.Context, filter *QueryFilter) ([]Record, error)
		// Aggregate folds the records in scope into a per-student summary.
		Aggregate(ctx context.Context, sess student.Session, rosterID string, dr DateRange) (Statistics, error)
	}

	service struct {
		repo       Repository
		studentSvc student.Service
		validate   *validator.Validate
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, studentSvc student.Service, validate *validator.Validate, logger core.Logger) Service {
	return &service{
		repo:       repo,
		studentSvc: studentSvc,
		validate:   validate,
		logger:     logger,
	}
}

func (svc *service) Ingest(ctx context.Context, sess student.Session, sub Submission) (Receipt, error) {
	// checked before any store access
	if !sess.IsStudent() {
		return Receipt{}, newRejection(CodeStudentSessionRequired)
	}
	sess = svc.studentSvc.Hydrate(ctx, sess)

	// the resolver is meaningless without a roster scope: fail closed
	if sess.RosterID == "" {
		return Receipt{}, newRejection(CodeRosterContextRequired)
	}

	if err := sub.Validate(svc.validate); err != nil {
		return Receipt{}, err
	}
	if sub.Date == "" {
		sub.Date = NowFunc().UTC().Format("2006-01-02")
	}

	idx, err := svc.studentSvc.BuildRosterIndex(ctx, sess.RosterID)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "building roster index")
	}

	evaluator := student.Student{
		ID:       sess.UID,
		Username: sess.Username,
		Name:     sess.Name,
		RosterID: sess.RosterID,
	}

	// All-or-nothing: every nomination must resolve before anything is
	// written. Unknown and ambiguous names are collected so one round trip
	// reports them all; a self-reference rejects immediately.
	var (
		peers     []PeerEvaluation
		unknown   []string
		ambiguous []AmbiguousName
	)
	for _, item := range sub.PeerEvaluations {
		match, err := student.Resolve(item.Name, evaluator, idx)
		if err != nil {
			resErr, ok := err.(*student.ResolutionError)
			if !ok {
				return Receipt{}, errors.Wrap(err, "resolving nominee")
			}
			switch resErr.Kind {
			case student.ResolutionSelfReference:
				return Receipt{}, selfRejection(item.Name)
			case student.ResolutionAmbiguous:
				ambiguous = append(ambiguous, AmbiguousName{
					Name:       core.NormalizeName(item.Name),
					Candidates: resErr.Candidates,
				})
			default:
				unknown = append(unknown, item.Name)
			}
			continue
		}

		pe := PeerEvaluation{
			Competency: item.Competency,
			Nominees: []Nominee{{
				DocID:     match.ID,
				StudentID: match.StudentNumber(),
				Username:  match.Username,
				Name:      match.Name,
			}},
		}
		if item.Reason != "" {
			pe.Reasons = []string{item.Reason}
		}
		peers = append(peers, pe)
	}
	if len(ambiguous) > 0 {
		return Receipt{}, ambiguousRejection(ambiguous)
	}
	if len(unknown) > 0 {
		return Receipt{}, notFoundRejection(unknown)
	}

	rec := Record{
		Type:            RecordType,
		Date:            sub.Date,
		TeacherID:       sess.TeacherID,
		RosterID:        sess.RosterID,
		Evaluator:       Evaluator{UID: sess.UID, Username: sess.Username, Name: sess.Name},
		PeerEvaluations: peers,
	}
	saved := len(peers)
	if sub.SelfEvaluation != nil {
		rec.SelfEvaluation = &SelfEvaluation{
			Competency: sub.SelfEvaluation.Competency,
			Reason:     sub.SelfEvaluation.Reason,
		}
		saved++
	}

	stored, err := svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "appending evaluation record")
	}
	return Receipt{ID: stored.ID, Saved: saved}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Record, error) {
	filter.Clean()
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying evaluation records")
	}
	return filterRecords(records, filter), nil
}

func (svc *service) Aggregate(ctx context.Context, sess student.Session, rosterID string, dr DateRange) (Statistics, error) {
	if !sess.IsStudent() {
		return Statistics{}, newRejection(CodeStudentSessionRequired)
	}
	sess = svc.studentSvc.Hydrate(ctx, sess)

	// the roster must be one of the student's known memberships
	rosterID = core.CleanString(rosterID)
	if rosterID == "" || !memberOf(sess, rosterID) {
		return Statistics{}, newRejection(CodeInvalidRoster)
	}

	records, err := svc.repo.QueryRecords(ctx, &QueryFilter{
		TeacherID: sess.TeacherID,
		RosterID:  rosterID,
		DateRange: dr,
	})
	if err != nil {
		return Statistics{}, errors.Wrap(err, "querying evaluation records")
	}

	// the stamped date is authoritative; enforce the bounds here too in case
	// a legacy row only grew its date during normalization
	in := records[:0]
	for _, rec := range records {
		if dr.Contains(rec.Date) {
			in = append(in, rec)
		}
	}

	return aggregateRecords(sess.Username, rosterID, in), nil
}

func memberOf(sess student.Session, rosterID string) bool {
	if sess.RosterID == rosterID {
		return true
	}
	for _, id := range sess.RosterIDs {
		if id == rosterID {
			return true
		}
	}
	return false
}
