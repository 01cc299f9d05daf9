package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examhall/internal/exam"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
	"github.com/pavelanni/examhall/internal/metrics"
	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	store  *store.Store
	router http.Handler
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	svc := exam.New(st, exam.WithClock(func() time.Time { return now }), exam.WithRecorder(m))
	ts := &testServer{t: t, store: st, router: New(st, svc, m, cfg).Router()}
	for _, u := range []struct {
		name string
		role model.UserRole
	}{
		{"admin", model.UserRoleAdmin},
		{"teacher", model.UserRoleTeacher},
		{"ann", model.UserRoleStudent},
		{"ben", model.UserRoleStudent},
	} {
		ts.addUser(u.name, u.role)
	}
	return ts
}

func (ts *testServer) addUser(username string, role model.UserRole) {
	ts.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(username+"-pw"), bcrypt.MinCost)
	if err != nil {
		ts.t.Fatalf("hash: %v", err)
	}
	_, err = ts.store.CreateUser(context.Background(), model.User{
		Username:     username,
		DisplayName:  strings.ToUpper(username[:1]) + username[1:],
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		ts.t.Fatalf("CreateUser: %v", err)
	}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(username string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/login", "", loginRequest{Username: username, Password: username + "-pw"})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("login %s: status %d: %s", username, rec.Code, rec.Body)
	}
	var resp loginResponse
	decode(ts.t, rec, &resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	return body.Error.Code
}

func examDraft() model.ExamDraft {
	return model.ExamDraft{
		Title:           "Go quiz",
		Subject:         "programming",
		DurationMinutes: 20,
		TotalPoints:     20,
		PassingPoints:   10,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		Questions: []model.QuestionDraft{
			{Text: "Is Go compiled?", Kind: model.KindTrueFalse, CorrectAnswer: "True", Points: 10},
			{Text: "What does defer do?", Kind: model.KindShortAnswer, CorrectAnswer: "delays call until function returns", Points: 10},
		},
	}
}

func (ts *testServer) createExam(token string) examResponse {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/exams", token, examDraft())
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("create exam: status %d: %s", rec.Code, rec.Body)
	}
	var resp examResponse
	decode(ts.t, rec, &resp)
	return resp
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, Config{})

	rec := ts.do(http.MethodPost, "/api/login", "", loginRequest{Username: "ann", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "invalid_credentials" {
		t.Errorf("expected invalid_credentials, got %d %s", rec.Code, rec.Body)
	}

	token := ts.login("ann")
	rec = ts.do(http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/me: %d", rec.Code)
	}
	var me model.User
	decode(t, rec, &me)
	if me.Username != "ann" || me.Role != model.UserRoleStudent {
		t.Errorf("unexpected user: %+v", me)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password hash leaked into response")
	}

	rec = ts.do(http.MethodPost, "/api/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("logout: %d", rec.Code)
	}
	rec = ts.do(http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestRoleChecks(t *testing.T) {
	ts := newTestServer(t, Config{})
	student := ts.login("ann")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"anonymous", http.MethodGet, "/api/me/results", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/me/results", "nope", http.StatusUnauthorized},
		{"student creates exam", http.MethodPost, "/api/exams", student, http.StatusForbidden},
		{"student reads events", http.MethodGet, "/api/events", student, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.token, examDraft())
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestExamFlow(t *testing.T) {
	ts := newTestServer(t, Config{})
	teacher := ts.login("teacher")
	ann := ts.login("ann")
	ben := ts.login("ben")

	created := ts.createExam(teacher)
	examPath := fmt.Sprintf("/api/exams/%d", created.Exam.ID)

	// Students never see correct answers.
	rec := ts.do(http.MethodGet, examPath, ann, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET exam as student: %d %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "correct_answer") {
		t.Error("student view leaked correct answers")
	}

	rec = ts.do(http.MethodGet, examPath+"/admission", ann, nil)
	var adm admissionResponse
	decode(t, rec, &adm)
	if adm.Admission != model.Admitted {
		t.Errorf("expected admitted, got %+v", adm)
	}

	sub := submitRequest{
		Answers: []model.AnswerInput{
			{QuestionID: created.Questions[0].ID, Answer: "True"},
			{QuestionID: created.Questions[1].ID, Answer: "It delays the call until the function returns"},
			{QuestionID: 9999, Answer: "stale"},
		},
		ElapsedMinutes: 12,
	}
	rec = ts.do(http.MethodPost, examPath+"/submit", ann, sub)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body)
	}
	var resp submitResponse
	decode(t, rec, &resp)
	if resp.Result.Status != model.ResultPassed || resp.Result.Percentage != 100 || resp.Certificate == nil {
		t.Errorf("unexpected receipt: %+v", resp.Receipt)
	}
	if len(resp.Notices) != 2 {
		t.Errorf("expected skipped and certificate notices, got %v", resp.Notices)
	}

	rec = ts.do(http.MethodPost, examPath+"/submit", ann, sub)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != string(exam.ReasonAlreadyTaken) {
		t.Errorf("expected 409 already_taken, got %d %s", rec.Code, rec.Body)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Error.Message != "You have already submitted this exam." {
		t.Errorf("unexpected message %q", body.Error.Message)
	}

	rec = ts.do(http.MethodPost, examPath+"/submit", ben, submitRequest{
		Answers: []model.AnswerInput{{QuestionID: created.Questions[0].ID, Answer: "False"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit as ben: %d %s", rec.Code, rec.Body)
	}

	rec = ts.do(http.MethodGet, examPath+"/ranking", teacher, nil)
	var ranks []model.RankEntry
	decode(t, rec, &ranks)
	if len(ranks) != 2 || ranks[0].StudentName != "Ann" || ranks[0].Rank != 1 || ranks[1].Rank != 2 {
		t.Errorf("unexpected ranking: %+v", ranks)
	}

	rec = ts.do(http.MethodGet, examPath+"/results", teacher, nil)
	var list exam.ResultList
	decode(t, rec, &list)
	if list.Stats.Total != 2 || list.Stats.Passed != 1 {
		t.Errorf("unexpected stats: %+v", list.Stats)
	}

	title := "Renamed"
	rec = ts.do(http.MethodPatch, examPath, teacher, model.ExamPatch{Title: &title})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != string(exam.ReasonExamLocked) {
		t.Errorf("expected exam_locked, got %d %s", rec.Code, rec.Body)
	}

	rec = ts.do(http.MethodGet, "/api/certificates/"+resp.Certificate.Number, ben, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected another student to be forbidden, got %d", rec.Code)
	}
	rec = ts.do(http.MethodPost, "/api/certificates/"+resp.Certificate.Number+"/revoke", teacher, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("revoke: %d %s", rec.Code, rec.Body)
	}

	rec = ts.do(http.MethodGet, "/api/me/ranking", ann, nil)
	var cr exam.CrossRanking
	decode(t, rec, &cr)
	if cr.Self == nil || cr.Self.Rank != 1 {
		t.Errorf("unexpected cross ranking: %+v", cr)
	}

	rec = ts.do(http.MethodGet, "/api/events", ts.login("admin"), nil)
	var events []model.Event
	decode(t, rec, &events)
	if len(events) != 4 {
		t.Errorf("expected exam.created, two result.graded and certificate.issued, got %d events", len(events))
	}
}

func TestSubmitOutsideWindow(t *testing.T) {
	ts := newTestServer(t, Config{})
	teacher := ts.login("teacher")
	ann := ts.login("ann")

	draft := examDraft()
	draft.StartTime, draft.EndTime = now.Add(time.Hour), now.Add(2*time.Hour)
	rec := ts.do(http.MethodPost, "/api/exams", teacher, draft)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exam: %d %s", rec.Code, rec.Body)
	}
	var created examResponse
	decode(t, rec, &created)

	rec = ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%d/submit", created.Exam.ID), ann, submitRequest{})
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != string(exam.ReasonNotYetOpen) {
		t.Errorf("expected not_yet_open, got %d %s", rec.Code, rec.Body)
	}
}

func TestInvalidExamIsUnprocessable(t *testing.T) {
	ts := newTestServer(t, Config{})
	draft := examDraft()
	draft.PassingPoints = 50
	rec := ts.do(http.MethodPost, "/api/exams", ts.login("teacher"), draft)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != string(exam.ReasonInvalidExam) {
		t.Errorf("expected 422 invalid_exam, got %d %s", rec.Code, rec.Body)
	}
}

func TestAdminCreatesUser(t *testing.T) {
	ts := newTestServer(t, Config{})
	admin := ts.login("admin")

	req := createUserRequest{Username: "cat", Password: "secret", Role: model.UserRoleStudent}
	rec := ts.do(http.MethodPost, "/api/admin/users", admin, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodPost, "/api/admin/users", admin, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", rec.Code)
	}
	rec = ts.do(http.MethodPost, "/api/admin/users", admin, createUserRequest{Username: "dan", Password: "x", Role: "pilot"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: 0.001, RateBurst: 2})
	codes := []int{}
	for range 3 {
		codes = append(codes, ts.do(http.MethodGet, "/healthz", "", nil).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, Config{})
	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"schema_version":"1"`) {
		t.Errorf("healthz: %d %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "examhall_http_requests_total") {
		t.Errorf("metrics: %d", rec.Code)
	}
}
