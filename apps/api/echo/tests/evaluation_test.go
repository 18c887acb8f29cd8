package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/peerval/peerval/core/evaluation"
	"github.com/peerval/peerval/core/student"
	testutil "github.com/peerval/peerval/tests"
)

// seedRoster provisions the reference classroom: one roster, five members,
// two of them sharing a display name.
func seedRoster(t *testing.T) map[string]student.Student {
	t.Helper()
	testutil.CreateRoster(t, studentRepo, "r1", "3학년 2반", "t1")

	members := map[string]student.Student{
		"kmj":  testutil.CreateStudent(t, studentRepo, "kmj", "김민준", "20240301", "t1", "r1"),
		"lsy":  testutil.CreateStudent(t, studentRepo, "lsy", "이서연", "20240302", "t1", "r1"),
		"pjh1": testutil.CreateStudent(t, studentRepo, "pjh1", "박지훈", "20240303", "t1", "r1"),
		"pjh2": testutil.CreateStudent(t, studentRepo, "pjh2", "박지훈", "20240304", "t1", "r1"),
		"csa":  testutil.CreateStudent(t, studentRepo, "csa", "최수아", "20240305", "t1", "r1"),
	}
	return members
}

func teacherSession() student.Session {
	return student.Session{Role: "teacher", UID: "t1", Username: "teacher", TeacherID: "t1"}
}

func Test_evaluationApi_save(t *testing.T) {
	resetDB()
	members := seedRoster(t)
	kmjToken := getToken(t, testutil.Session(members["kmj"]))

	submission := func(names ...string) []byte {
		items := make([]map[string]string, 0, len(names))
		for _, n := range names {
			items = append(items, map[string]string{"competency": "책임감", "name": n})
		}
		data, _ := json.Marshal(map[string]interface{}{"peerEvaluations": items})
		return data
	}

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/evaluations",
			body: submission("이서연"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Student session required", method: http.MethodPost, path: "/v1/evaluations",
			body: submission("이서연"), token: getToken(t, teacherSession()),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Roster context required", method: http.MethodPost, path: "/v1/evaluations",
			body: submission("이서연"), token: getToken(t, student.Session{Role: student.RoleStudent, Username: "stranger"}),
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, httpErr{Error: "ROSTER_CONTEXT_REQUIRED"}),
		},
		{
			name: "Unknown name rejects the whole submission", method: http.MethodPost, path: "/v1/evaluations",
			body: submission("이서연", "없는사람"), token: kmjToken,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]interface{}{
				"success": false, "error": "NAME_NOT_FOUND_IN_ROSTER", "unknown": []string{"없는사람"},
			}),
		},
		{
			name: "Ambiguous name reports every candidate", method: http.MethodPost, path: "/v1/evaluations",
			body: submission("박지훈"), token: kmjToken,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]interface{}{
				"success": false, "error": "AMBIGUOUS_NAME_IN_ROSTER",
				"details": []evaluation.AmbiguousName{{Name: "박지훈", Candidates: []string{"20240303", "20240304"}}},
			}),
		},
		{
			name: "Self nomination", method: http.MethodPost, path: "/v1/evaluations",
			body: submission("김민준"), token: kmjToken,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]interface{}{
				"success": false, "error": "CANNOT_EVALUATE_SELF", "name": "김민준",
			}),
		},
		{
			name: "Malformed date", method: http.MethodPost, path: "/v1/evaluations",
			body:  []byte(`{"date": "03/01/2026", "peerEvaluations": [{"competency": "책임감", "name": "이서연"}]}`),
			token: kmjToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: map[string]string{"date": "must be a calendar day in YYYY-MM-DD form"}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// every rejection above left the store untouched
	if n := evalRepo.Len(); n != 0 {
		t.Fatalf("rejections persisted records! Len() = %d", n)
	}

	t.Run("Saves peers and self", func(t *testing.T) {
		body := []byte(`{
			"date": "2026-03-02",
			"peerEvaluations": [
				{"competency": "책임감", "name": "이서연", "reason": "준비물"},
				{"competency": "배려", "name": "최수아"}
			],
			"selfEvaluation": {"competency": "끈기"}
		}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/evaluations", kmjToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Success bool   `json:"success"`
			ID      string `json:"id"`
			Saved   int    `json:"saved"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !resp.Success || resp.ID == "" || resp.Saved != 3 {
			t.Errorf("unexpected response: %+v", resp)
		}
		if n := evalRepo.Len(); n != 1 {
			t.Errorf("Len() = %d, want 1", n)
		}
	})
}

func Test_evaluationApi_query(t *testing.T) {
	resetDB()
	members := seedRoster(t)

	testutil.CreateRecord(t, evalRepo, evaluation.Record{
		Type: evaluation.RecordType, Date: "2026-03-02", TeacherID: "t1", RosterID: "r1",
		Evaluator: evaluation.Evaluator{UID: members["lsy"].ID, Username: "lsy", Name: "이서연"},
		PeerEvaluations: []evaluation.PeerEvaluation{{
			Competency: "책임감",
			Nominees:   []evaluation.Nominee{{DocID: members["kmj"].ID, StudentID: "20240301", Username: "kmj", Name: "김민준"}},
		}},
	})
	testutil.CreateRecord(t, evalRepo, evaluation.Record{
		Type: evaluation.RecordType, Date: "2026-03-03", TeacherID: "t1", RosterID: "r1",
		Evaluator:      evaluation.Evaluator{UID: members["kmj"].ID, Username: "kmj", Name: "김민준"},
		SelfEvaluation: &evaluation.SelfEvaluation{Competency: "끈기"},
	})

	kmjToken := getToken(t, testutil.Session(members["kmj"]))
	csaToken := getToken(t, testutil.Session(members["csa"]))
	teacherToken := getToken(t, teacherSession())

	fetch := func(t *testing.T, token string, query url.Values) (int, struct {
		Success     bool                `json:"success"`
		Evaluations []evaluation.Record `json:"evaluations"`
		Count       int                 `json:"count"`
	}) {
		t.Helper()
		path := "/v1/evaluations"
		if len(query) > 0 {
			path += "?" + query.Encode()
		}
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)

		var resp struct {
			Success     bool                `json:"success"`
			Evaluations []evaluation.Record `json:"evaluations"`
			Count       int                 `json:"count"`
		}
		if rec.Code == http.StatusOK {
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
		}
		return rec.Code, resp
	}

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/evaluations")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Student sees own slice", func(t *testing.T) {
		code, resp := fetch(t, kmjToken, nil)
		if code != http.StatusOK || resp.Count != 2 {
			t.Errorf("code = %d, count = %d, want 200/2", code, resp.Count)
		}
	})

	t.Run("Student cannot read another target", func(t *testing.T) {
		// targetUsername is overridden by the session identity
		code, resp := fetch(t, csaToken, url.Values{"targetUsername": {"kmj"}})
		if code != http.StatusOK || resp.Count != 0 {
			t.Errorf("code = %d, count = %d, want 200/0", code, resp.Count)
		}
	})

	t.Run("Type filter", func(t *testing.T) {
		code, resp := fetch(t, kmjToken, url.Values{"evaluationType": {"peer"}})
		if code != http.StatusOK || resp.Count != 1 {
			t.Fatalf("code = %d, count = %d, want 200/1", code, resp.Count)
		}
		if resp.Evaluations[0].Date != "2026-03-02" {
			t.Errorf("date = %s, want 2026-03-02", resp.Evaluations[0].Date)
		}
	})

	t.Run("Date bounds are inclusive", func(t *testing.T) {
		code, resp := fetch(t, kmjToken, url.Values{"startDate": {"2026-03-03"}, "endDate": {"2026-03-03"}})
		if code != http.StatusOK || resp.Count != 1 {
			t.Errorf("code = %d, count = %d, want 200/1", code, resp.Count)
		}
	})

	t.Run("Teacher scope returns the whole class", func(t *testing.T) {
		code, resp := fetch(t, teacherToken, nil)
		if code != http.StatusOK || resp.Count != 2 {
			t.Errorf("code = %d, count = %d, want 200/2", code, resp.Count)
		}
	})

	t.Run("Teacher can target one student", func(t *testing.T) {
		code, resp := fetch(t, teacherToken, url.Values{"targetUsername": {"kmj"}, "evaluationType": {"peer"}})
		if code != http.StatusOK || resp.Count != 1 {
			t.Errorf("code = %d, count = %d, want 200/1", code, resp.Count)
		}
	})
}

func Test_evaluationApi_statistics(t *testing.T) {
	resetDB()
	members := seedRoster(t)

	testutil.CreateRecord(t, evalRepo, evaluation.Record{
		Type: evaluation.RecordType, Date: "2026-03-02", TeacherID: "t1", RosterID: "r1",
		Evaluator: evaluation.Evaluator{UID: members["lsy"].ID, Username: "lsy", Name: "이서연"},
		PeerEvaluations: []evaluation.PeerEvaluation{{
			Competency: "책임감",
			Nominees:   []evaluation.Nominee{{DocID: members["kmj"].ID, StudentID: "20240301", Username: "kmj", Name: "김민준"}},
		}},
	})
	testutil.CreateRecord(t, evalRepo, evaluation.Record{
		Type: evaluation.RecordType, Date: "2026-03-03", TeacherID: "t1", RosterID: "r1",
		Evaluator: evaluation.Evaluator{UID: members["kmj"].ID, Username: "kmj", Name: "김민준"},
		PeerEvaluations: []evaluation.PeerEvaluation{{
			Competency: "배려",
			Nominees:   []evaluation.Nominee{{DocID: members["lsy"].ID, StudentID: "20240302", Username: "lsy", Name: "이서연"}},
		}},
		SelfEvaluation: &evaluation.SelfEvaluation{Competency: "끈기"},
	})

	kmjToken := getToken(t, testutil.Session(members["kmj"]))

	t.Run("Rejects a foreign roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/statistics?rosterId=r9", kmjToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "INVALID_ROSTER"}),
		}, rec)
	})

	t.Run("Requires a roster id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/statistics", kmjToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "INVALID_ROSTER"}),
		}, rec)
	})

	t.Run("Folds the roster records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/statistics?rosterId=r1", kmjToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; body = %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Success bool `json:"success"`
			evaluation.Statistics
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !resp.Success || resp.RosterID != "r1" {
			t.Errorf("unexpected envelope: %+v", resp)
		}
		if resp.Received["책임감"] != 1 || resp.Given["배려"] != 1 || resp.Self["끈기"] != 1 {
			t.Errorf("unexpected counters: received=%v given=%v self=%v", resp.Received, resp.Given, resp.Self)
		}
		if len(resp.Recent) != 2 || resp.Recent[0].Date != "2026-03-03" {
			t.Errorf("unexpected recent feed: %+v", resp.Recent)
		}
	})
}

func Test_evaluationApi_myRosters(t *testing.T) {
	resetDB()
	seedRoster(t)
	testutil.CreateRoster(t, studentRepo, "r2", "방과후", "t1")
	testutil.CreateRoster(t, studentRepo, "r9", "남의반", "t9")

	multi := testutil.CreateStudent(t, studentRepo, "multi", "한지우", "20240306", "t1", "r1", "r2", "r9")

	req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/rosters", getToken(t, testutil.Session(multi)))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d; body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool             `json:"success"`
		Rosters []student.Roster `json:"rosters"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// r9 belongs to another teacher and is filtered out
	if len(resp.Rosters) != 2 || resp.Rosters[0].ID != "r1" || resp.Rosters[1].ID != "r2" {
		t.Errorf("unexpected rosters: %+v", resp.Rosters)
	}
}
