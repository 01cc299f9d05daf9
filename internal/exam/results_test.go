package exam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/examhall/internal/model"
)

func TestStatistics(t *testing.T) {
	rows := []model.ResultRow{
		{Result: model.ExamResult{Status: model.ResultPassed, Percentage: 100}},
		{Result: model.ExamResult{Status: model.ResultFailed, Percentage: 20}},
		{Result: model.ExamResult{Status: model.ResultPassed, Percentage: 70}},
		{Result: model.ExamResult{Status: model.ResultPending}},
	}
	st := Statistics(rows)
	want := model.Statistics{Total: 3, Passed: 2, Failed: 1, PassRate: 66.67, AveragePercent: 63.33}
	if st != want {
		t.Errorf("Statistics = %+v, want %+v", st, want)
	}
	if empty := Statistics(nil); empty != (model.Statistics{}) {
		t.Errorf("expected zero statistics, got %+v", empty)
	}
}

func TestResultDetailAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, qs := f.createExam(t, twoChoiceDraft())
	f.submit(t, e.ID, f.students[0], answersFor(qs, "4", "6"))
	other := f.addUser(t, "other", model.UserRoleTeacher)

	detail, err := f.svc.Results.Detail(ctx, f.students[0], e.ID, f.students[0].ID)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if len(detail.Answers) != 2 || detail.Certificate == nil || detail.StudentName != "ann" {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if _, err := f.svc.Results.Detail(ctx, f.teacher, e.ID, f.students[0].ID); err != nil {
		t.Errorf("owner teacher should see the result: %v", err)
	}
	if _, err := f.svc.Results.Detail(ctx, f.students[1], e.ID, f.students[0].ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for another student, got %v", err)
	}
	if _, err := f.svc.Results.Detail(ctx, other, e.ID, f.students[0].ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for another teacher, got %v", err)
	}
	if _, err := f.svc.Results.Detail(ctx, f.students[1], e.ID, f.students[1].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound without a result, got %v", err)
	}
}

func TestResultListsAndAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e1, q1 := f.createExam(t, twoChoiceDraft())
	d2 := model.ExamDraft{
		Title:           "Prose",
		Subject:         "writing",
		DurationMinutes: 15,
		TotalPoints:     10,
		PassingPoints:   7,
		StartTime:       t0.Add(-time.Hour),
		EndTime:         t0.Add(time.Hour),
		Questions: []model.QuestionDraft{
			{Text: "Define a sonnet", Kind: model.KindShortAnswer, CorrectAnswer: "fourteen lines iambic pentameter", Points: 10},
		},
	}
	e2, q2 := f.createExam(t, d2)

	f.submit(t, e1.ID, f.students[0], answersFor(q1, "4", "7"))
	f.clock.set(t0.Add(time.Minute))
	f.submit(t, e2.ID, f.students[0], answersFor(q2, "it has fourteen lines"))

	list, err := f.svc.Results.ForStudent(ctx, f.students[0].ID)
	if err != nil {
		t.Fatalf("ForStudent: %v", err)
	}
	if len(list.Results) != 2 || list.Results[0].ExamTitle != "Prose" {
		t.Errorf("expected newest first, got %+v", list.Results)
	}
	if list.Stats.Total != 2 || list.Stats.Passed != 1 {
		t.Errorf("unexpected stats: %+v", list.Stats)
	}

	exam1, err := f.svc.Results.ForExam(ctx, f.teacher, e1.ID)
	if err != nil {
		t.Fatalf("ForExam: %v", err)
	}
	if len(exam1.Results) != 1 || exam1.Results[0].StudentName != "ann" {
		t.Errorf("unexpected exam results: %+v", exam1.Results)
	}
	if _, err := f.svc.Results.ForExam(ctx, f.students[0], e1.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for a student, got %v", err)
	}

	a, err := f.svc.Results.Analytics(ctx, f.students[0].ID)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if len(a.BySubject) != 2 || a.BySubject[0].Key != "math" || a.BySubject[0].AveragePercentage != 50 {
		t.Errorf("unexpected subject breakdown: %+v", a.BySubject)
	}
	kinds := map[string]model.PerformanceRow{}
	for _, k := range a.ByQuestionKind {
		kinds[k.Key] = k
	}
	if sc := kinds[string(model.KindSingleChoice)]; sc.Count != 2 || sc.Correct != 1 || sc.AveragePercentage != 50 {
		t.Errorf("unexpected single choice row: %+v", sc)
	}
	if sa := kinds[string(model.KindShortAnswer)]; sa.Count != 1 || sa.AveragePercentage != 50 {
		t.Errorf("unexpected short answer row: %+v", sa)
	}
	if len(a.Recent) != 2 {
		t.Errorf("expected 2 recent results, got %d", len(a.Recent))
	}
}
