package exam

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type countingRecorder struct {
	mu           sync.Mutex
	outcomes     map[string]int
	certificates int
}

func (r *countingRecorder) Submission(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func (r *countingRecorder) CertificateIssued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.certificates++
}

type fixture struct {
	store    *store.Store
	svc      *Service
	clock    *fakeClock
	recorder *countingRecorder
	teacher  *model.User
	students []*model.User
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return setupFixture(t, st, opts...)
}

// newFileFixture uses a database file so concurrent transactions get
// separate connections.
func newFileFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "examhall.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return setupFixture(t, st, opts...)
}

func setupFixture(t *testing.T, st *store.Store, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{store: st, clock: &fakeClock{t: t0}, recorder: &countingRecorder{}}
	opts = append([]Option{WithClock(f.clock.now), WithRecorder(f.recorder)}, opts...)
	f.svc = New(st, opts...)
	f.teacher = f.addUser(t, "teacher", model.UserRoleTeacher)
	for _, name := range []string{"ann", "ben", "cat"} {
		f.students = append(f.students, f.addUser(t, name, model.UserRoleStudent))
	}
	return f
}

func (f *fixture) addUser(t *testing.T, username string, role model.UserRole) *model.User {
	t.Helper()
	ctx := context.Background()
	id, err := f.store.CreateUser(ctx, model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	u, err := f.store.GetUserByID(ctx, id)
	if err != nil || u == nil {
		t.Fatalf("GetUserByID(%d): %v", id, err)
	}
	return u
}

// twoChoiceDraft is a 20-point exam with two 10-point single-choice
// questions and a passing mark of 10, open for an hour around t0.
func twoChoiceDraft() model.ExamDraft {
	return model.ExamDraft{
		Title:           "Arithmetic",
		Subject:         "math",
		DurationMinutes: 30,
		TotalPoints:     20,
		PassingPoints:   10,
		StartTime:       t0.Add(-time.Hour),
		EndTime:         t0.Add(time.Hour),
		Questions: []model.QuestionDraft{
			{Text: "2+2?", Kind: model.KindSingleChoice, Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 10},
			{Text: "3+3?", Kind: model.KindSingleChoice, Options: []string{"6", "7"}, CorrectAnswer: "6", Points: 10},
		},
	}
}

func (f *fixture) createExam(t *testing.T, draft model.ExamDraft) (model.Exam, []model.Question) {
	t.Helper()
	e, qs, err := f.svc.Definitions.Create(context.Background(), f.teacher, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e, qs
}

func answersFor(qs []model.Question, given ...string) []model.AnswerInput {
	var out []model.AnswerInput
	for i, a := range given {
		out = append(out, model.AnswerInput{QuestionID: qs[i].ID, Answer: a})
	}
	return out
}

func (f *fixture) submit(t *testing.T, examID int64, student *model.User, answers []model.AnswerInput) Receipt {
	t.Helper()
	rc, err := f.svc.Ledger.Submit(context.Background(), model.Submission{
		ExamID:         examID,
		StudentID:      student.ID,
		Answers:        answers,
		ElapsedMinutes: 15,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return rc
}
