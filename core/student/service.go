package student

import (
	"context"
	"errors"

	"github.com/peerval/peerval/core"
)

var (
	// errors
	ErrNotFound       = errors.New("student not found")
	ErrRosterNotFound = errors.New("roster not found")
)

// myRostersLimit caps how many roster memberships are expanded per request.
const myRostersLimit = 30

type (
	// GetFilter narrows a single-student lookup; ID wins over Username.
	GetFilter struct {
		ID       string
		Username string
	}

	Repository interface {
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		// QueryRosterStudents returns every member of the given roster.
		QueryRosterStudents(ctx context.Context, rosterID string) ([]Student, error)
		GetRoster(ctx context.Context, id string) (Roster, error)
	}

	Service interface {
		Get(ctx context.Context, filter GetFilter) (Student, error)
		// BuildRosterIndex builds a fresh name index over the roster's current
		// members. It is rebuilt per request; there is no cache to invalidate.
		BuildRosterIndex(ctx context.Context, rosterID string) (NameIndex, error)
		// Hydrate fills the session's missing identity fields from the
		// membership store. A session that cannot be matched is returned as-is.
		Hydrate(ctx context.Context, sess Session) Session
		// MyRosters expands the session's roster memberships, keeping only
		// rosters owned by the session teacher.
		MyRosters(ctx context.Context, sess Session) ([]Roster, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) Get(ctx context.Context, filter GetFilter) (Student, error) {
	return svc.repo.GetStudent(ctx, filter)
}

func (svc *service) BuildRosterIndex(ctx context.Context, rosterID string) (NameIndex, error) {
	students, err := svc.repo.QueryRosterStudents(ctx, rosterID)
	if err != nil {
		return NameIndex{}, err
	}
	return BuildIndex(students), nil
}

func (svc *service) Hydrate(ctx context.Context, sess Session) Session {
	if sess.TeacherID != "" && sess.RosterID != "" && sess.Name != "" && sess.Username != "" && len(sess.RosterIDs) > 0 {
		return sess
	}

	s, err := svc.repo.GetStudent(ctx, GetFilter{ID: sess.UID, Username: sess.Username})
	if err != nil {
		if err != ErrNotFound {
			svc.logger.Warn("hydrating session", err)
		}
		return sess
	}

	if sess.UID == "" {
		sess.UID = s.ID
	}
	if sess.Username == "" {
		sess.Username = s.Username
	}
	if sess.Name == "" {
		sess.Name = s.Name
	}
	if sess.TeacherID == "" {
		sess.TeacherID = s.TeacherID
	}
	if sess.RosterID == "" {
		sess.RosterID = s.RosterID
	}
	if len(sess.RosterIDs) == 0 {
		sess.RosterIDs = s.Rosters()
	}
	return sess
}

func (svc *service) MyRosters(ctx context.Context, sess Session) ([]Roster, error) {
	sess = svc.Hydrate(ctx, sess)

	ids := sess.RosterIDs
	if len(ids) == 0 && sess.RosterID != "" {
		ids = []string{sess.RosterID}
	}

	seen := make(map[string]bool, len(ids))
	rosters := make([]Roster, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if len(seen) > myRostersLimit {
			break
		}

		roster, err := svc.repo.GetRoster(ctx, id)
		if err != nil {
			if err == ErrRosterNotFound {
				continue
			}
			return nil, err
		}
		if sess.TeacherID != "" && roster.TeacherID != sess.TeacherID {
			continue
		}
		rosters = append(rosters, roster)
	}
	return rosters, nil
}
