package sqlxrepos

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/evaluation"
)

type evaluationRow struct {
	ID                string         `db:"id"`
	Type              string         `db:"type"`
	Date              string         `db:"date"`
	TeacherID         string         `db:"teacher_id"`
	RosterID          string         `db:"roster_id"`
	EvaluatorUID      null.String    `db:"evaluator_uid"`
	EvaluatorUsername null.String    `db:"evaluator_username"`
	EvaluatorName     null.String    `db:"evaluator_name"`
	Payload           types.JSONText `db:"payload"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

// evaluationPayload is the JSONB column content for records written by this
// engine. Legacy rows may hold other shapes; reads go through the
// normalization adapter either way.
type evaluationPayload struct {
	PeerEvaluations []evaluation.PeerEvaluation `json:"peerEvaluations"`
	SelfEvaluation  *evaluation.SelfEvaluation  `json:"selfEvaluation,omitempty"`
}

type evaluationRepository struct {
	db     sqlx.ExtContext
	logger core.Logger
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db sqlx.ExtContext, logger core.Logger) *evaluationRepository {
	return &evaluationRepository{db: db, logger: logger}
}

func (repo evaluationRepository) CreateRecord(ctx context.Context, rec evaluation.Record) (evaluation.Record, error) {
	payload, err := json.Marshal(evaluationPayload{
		PeerEvaluations: rec.PeerEvaluations,
		SelfEvaluation:  rec.SelfEvaluation,
	})
	if err != nil {
		return evaluation.Record{}, errors.Wrap(err, "marshaling record payload")
	}

	rec.ID = uuid.New().String()
	if rec.Type == "" {
		rec.Type = evaluation.RecordType
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO evaluation (id, type, date, teacher_id, roster_id, evaluator_uid, evaluator_username, evaluator_name, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID,
		rec.Type,
		rec.Date,
		rec.TeacherID,
		rec.RosterID,
		null.NewString(rec.Evaluator.UID, rec.Evaluator.UID != ""),
		null.NewString(rec.Evaluator.Username, rec.Evaluator.Username != ""),
		null.NewString(rec.Evaluator.Name, rec.Evaluator.Name != ""),
		types.JSONText(payload),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return evaluation.Record{}, errors.Wrap(err, "inserting evaluation record")
	}
	return rec, nil
}

func (repo evaluationRepository) QueryRecords(ctx context.Context, filter *evaluation.QueryFilter) ([]evaluation.Record, error) {
	query := "SELECT * FROM evaluation WHERE 1=1"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.TeacherID != "" {
			query += " AND teacher_id = " + arg(filter.TeacherID)
		}
		if filter.RosterID != "" {
			query += " AND roster_id = " + arg(filter.RosterID)
		}
		if filter.Start != "" {
			query += " AND date >= " + arg(filter.Start)
		}
		if filter.End != "" {
			query += " AND date <= " + arg(filter.End)
		}
	}
	query += " ORDER BY " + core.DBOrdering{Field: "created_at"}.String()

	var rows []evaluationRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying evaluation records")
	}

	records := make([]evaluation.Record, 0, len(rows))
	for _, row := range rows {
		rec, ok := repo.normalize(row)
		if !ok {
			// fail soft: one unmappable legacy row must not blank the dashboard
			repo.logger.Debug("skipping unmappable evaluation record", map[string]interface{}{"id": row.ID})
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (repo evaluationRepository) normalize(row evaluationRow) (evaluation.Record, bool) {
	var raw evaluation.RawRecord
	if err := json.Unmarshal(row.Payload, &raw); err != nil {
		repo.logger.Debug("unmarshaling evaluation payload", err, map[string]interface{}{"id": row.ID})
		return evaluation.Record{}, false
	}

	// columns are authoritative over whatever the payload carries
	raw.ID = row.ID
	raw.Type = row.Type
	raw.Date = row.Date
	raw.TeacherID = row.TeacherID
	raw.RosterID = row.RosterID
	raw.CreatedAt = row.CreatedAt
	raw.UpdatedAt = row.UpdatedAt
	if row.EvaluatorUID.Valid || row.EvaluatorUsername.Valid || row.EvaluatorName.Valid {
		raw.Evaluator = &evaluation.Evaluator{
			UID:      row.EvaluatorUID.String,
			Username: row.EvaluatorUsername.String,
			Name:     row.EvaluatorName.String,
		}
	}

	return raw.Normalize()
}
