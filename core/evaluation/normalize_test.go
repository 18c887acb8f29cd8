package evaluation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The same evaluation as stored by three generations of clients. All of them
// must normalize to the same canonical record.
var (
	modernPayload = []byte(`{
		"type": "daily-evaluation",
		"date": "2026-03-02",
		"teacherId": "t1",
		"rosterId": "r1",
		"evaluator": {"uid": "d1", "username": "kmj", "name": "김민준"},
		"peerEvaluations": [
			{"competency": "책임감", "nominees": [{"docId": "d2", "studentId": "20240302", "username": "lsy", "name": "이서연"}], "reasons": ["준비물"]}
		],
		"selfEvaluation": {"competency": "끈기"}
	}`)

	stringNomineesPayload = []byte(`{
		"date": "2026-03-02",
		"teacherId": "t1",
		"rosterId": "r1",
		"evaluatorUsername": "kmj",
		"peers": [
			{"competency": "책임감", "nominees": ["lsy"], "reason": "준비물"}
		],
		"selfEvaluation": {"competency": "끈기"}
	}`)

	flatTargetPayload = []byte(`{
		"date": "2026-03-02",
		"teacherId": "t1",
		"rosterId": "r1",
		"evaluator": {"username": "kmj"},
		"peerEvaluations": [
			{"competency": "책임감", "targetDocId": "d2", "targetStudentId": "20240302", "targetUsername": "lsy", "targetName": "이서연", "reason": "준비물"}
		],
		"selfEvaluation": {"competency": "끈기"}
	}`)
)

func TestNormalizeJSON_legacyShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "canonical", payload: modernPayload},
		{name: "string nominees with peers alias", payload: stringNomineesPayload},
		{name: "flat target fields", payload: flatTargetPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok, err := NormalizeJSON(tt.payload)
			require.NoError(t, err)
			require.True(t, ok)

			assert.Equal(t, RecordType, rec.Type)
			assert.Equal(t, "2026-03-02", rec.Date)
			assert.Equal(t, "t1", rec.TeacherID)
			assert.Equal(t, "r1", rec.RosterID)
			assert.Equal(t, "kmj", rec.Evaluator.Username)

			require.Len(t, rec.PeerEvaluations, 1)
			pe := rec.PeerEvaluations[0]
			assert.Equal(t, "책임감", pe.Competency)
			require.Len(t, pe.Nominees, 1)
			assert.True(t, pe.Nominees[0].Matches("lsy"))
			assert.Equal(t, []string{"준비물"}, pe.Reasons)

			require.NotNil(t, rec.SelfEvaluation)
			assert.Equal(t, "끈기", rec.SelfEvaluation.Competency)

			// received/given counts come out identical whatever the stored shape
			stats := aggregateRecords("lsy", "r1", []Record{rec})
			assert.Equal(t, map[string]int{"책임감": 1}, stats.Received)
			stats = aggregateRecords("kmj", "r1", []Record{rec})
			assert.Equal(t, map[string]int{"책임감": 1}, stats.Given)
			assert.Equal(t, map[string]int{"끈기": 1}, stats.Self)
		})
	}
}

func TestNormalize_singleStringNominee(t *testing.T) {
	rec, ok, err := NormalizeJSON([]byte(`{
		"date": "2026-03-02",
		"evaluatorUsername": "kmj",
		"peerEvaluations": [{"competency": "배려", "nominees": "lsy"}]
	}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.PeerEvaluations, 1)
	assert.Equal(t, []Nominee{{Username: "lsy"}}, rec.PeerEvaluations[0].Nominees)
}

func TestNormalize_nestedTarget(t *testing.T) {
	rec, ok, err := NormalizeJSON([]byte(`{
		"date": "2026-03-02",
		"evaluatorUsername": "kmj",
		"peerEvaluations": [{"competency": "배려", "nominee": {"studentId": "20240302", "name": "이서연"}}]
	}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.PeerEvaluations, 1)
	assert.Equal(t, []Nominee{{StudentID: "20240302", Name: "이서연"}}, rec.PeerEvaluations[0].Nominees)
}

func TestNormalize_dateFallsBackToCreatedAt(t *testing.T) {
	raw := RawRecord{
		EvaluatorUsername: "kmj",
		PeerEvaluations:   []RawPeerEvaluation{{Competency: "배려", TargetUsername: "lsy"}},
		CreatedAt:         time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC),
	}
	rec, ok := raw.Normalize()
	require.True(t, ok)
	assert.Equal(t, "2026-03-02", rec.Date)
}

func TestNormalize_unmappableRecordIsDropped(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: `{}`},
		{name: "no nominees at all", payload: `{"date": "2026-03-02", "peerEvaluations": [{"competency": "배려"}]}`},
		{name: "nominee without competency", payload: `{"date": "2026-03-02", "peerEvaluations": [{"nominees": ["lsy"]}]}`},
		{name: "blank self evaluation", payload: `{"date": "2026-03-02", "selfEvaluation": {"competency": "  "}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := NormalizeJSON([]byte(tt.payload))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

// A canonical record that round-trips through the raw representation must
// come out byte-identical.
func TestNormalize_idempotent(t *testing.T) {
	rec, ok, err := NormalizeJSON(modernPayload)
	require.NoError(t, err)
	require.True(t, ok)

	first, err := json.MarshalIndent(rec, "", "  ")
	require.NoError(t, err)

	again, ok, err := NormalizeJSON(first)
	require.NoError(t, err)
	require.True(t, ok)
	second, err := json.MarshalIndent(again, "", "  ")
	require.NoError(t, err)

	if string(first) != string(second) {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(first)),
			B:        difflib.SplitLines(string(second)),
			FromFile: "first pass",
			ToFile:   "second pass",
			Context:  3,
		})
		t.Errorf("normalization is not idempotent:\n%s", diff)
	}
}
