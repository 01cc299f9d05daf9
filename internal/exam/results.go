package exam

import (
	"context"
	"errors"
	"slices"

	"github.com/samber/lo"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// recentResults is how many results the analytics view lists.
const recentResults = 5

// Results answers read queries over the ledger.
type Results struct {
	store *store.Store
}

// ResultList is a set of results with their statistics.
type ResultList struct {
	Results []model.ResultRow `json:"results"`
	Stats   model.Statistics  `json:"stats"`
}

// ForStudent lists a student's results, newest first.
func (rs *Results) ForStudent(ctx context.Context, studentID int64) (ResultList, error) {
	rows, err := rs.store.ListStudentResults(ctx, studentID)
	if err != nil {
		return ResultList{}, transient("list results", err)
	}
	return ResultList{Results: nonNil(rows), Stats: Statistics(rows)}, nil
}

// ForExam lists all results of an exam owned by teacher.
func (rs *Results) ForExam(ctx context.Context, teacher *model.User, examID int64) (ResultList, error) {
	if _, err := owned(ctx, rs.store.Queries, teacher, examID); err != nil {
		return ResultList{}, transient("list results", err)
	}
	rows, err := rs.store.ListExamResults(ctx, examID)
	if err != nil {
		return ResultList{}, transient("list results", err)
	}
	return ResultList{Results: nonNil(rows), Stats: Statistics(rows)}, nil
}

// Detail returns a graded attempt with its answers and certificate.
// Students see their own results; teachers see results of their exams.
func (rs *Results) Detail(ctx context.Context, viewer *model.User, examID, studentID int64) (model.ResultDetail, error) {
	e, err := rs.store.GetExam(ctx, examID)
	if errors.Is(err, store.ErrNotFound) {
		return model.ResultDetail{}, reject(ReasonExamNotFound, "exam %d", examID)
	}
	if err != nil {
		return model.ResultDetail{}, transient("get result", err)
	}
	if !canSeeResult(viewer, studentID, e.TeacherID) {
		return model.ResultDetail{}, reject(ReasonForbidden, "result of student %d", studentID)
	}

	r, err := rs.store.GetResultFor(ctx, examID, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.ResultDetail{}, reject(ReasonNotFound, "no result for exam %d", examID)
	}
	if err != nil {
		return model.ResultDetail{}, transient("get result", err)
	}
	answers, err := rs.store.ListAnswers(ctx, r.ID)
	if err != nil {
		return model.ResultDetail{}, transient("get result", err)
	}
	detail := model.ResultDetail{Result: r, Exam: e, Answers: nonNil(answers)}
	if u, err := rs.store.GetUserByID(ctx, studentID); err == nil && u != nil {
		detail.StudentName = u.DisplayName
	}
	cert, err := rs.store.GetCertificateByResult(ctx, r.ID)
	switch {
	case err == nil:
		detail.Certificate = &cert
	case !errors.Is(err, store.ErrNotFound):
		return model.ResultDetail{}, transient("get result", err)
	}
	return detail, nil
}

// Analytics breaks a student's performance down by subject and question kind.
func (rs *Results) Analytics(ctx context.Context, studentID int64) (model.Analytics, error) {
	rows, err := rs.store.ListStudentResults(ctx, studentID)
	if err != nil {
		return model.Analytics{}, transient("analytics", err)
	}
	kinds, err := rs.store.ListKindPerformance(ctx, studentID)
	if err != nil {
		return model.Analytics{}, transient("analytics", err)
	}

	var a model.Analytics
	bySubject := lo.GroupBy(rows, func(r model.ResultRow) string { return r.Subject })
	subjects := lo.Keys(bySubject)
	slices.Sort(subjects)
	for _, subject := range subjects {
		group := bySubject[subject]
		a.BySubject = append(a.BySubject, model.PerformanceRow{
			Key:   subject,
			Count: len(group),
			Correct: lo.CountBy(group, func(r model.ResultRow) bool {
				return r.Result.Status == model.ResultPassed
			}),
			AveragePercentage: round2(lo.MeanBy(group, func(r model.ResultRow) float64 {
				return r.Result.Percentage
			})),
		})
	}
	for _, k := range kinds {
		a.ByQuestionKind = append(a.ByQuestionKind, model.PerformanceRow{
			Key:               string(k.Kind),
			Count:             k.Count,
			Correct:           k.Correct,
			AveragePercentage: Percentage(k.Points, k.MaxPoints),
		})
	}
	a.Recent = nonNil(rows[:min(len(rows), recentResults)])
	a.BySubject = nonNil(a.BySubject)
	a.ByQuestionKind = nonNil(a.ByQuestionKind)
	return a, nil
}

// Statistics summarizes graded rows. Pending rows are ignored.
func Statistics(rows []model.ResultRow) model.Statistics {
	graded := lo.Filter(rows, func(r model.ResultRow, _ int) bool {
		return r.Result.Status != model.ResultPending
	})
	st := model.Statistics{Total: len(graded)}
	if st.Total == 0 {
		return st
	}
	st.Passed = lo.CountBy(graded, func(r model.ResultRow) bool {
		return r.Result.Status == model.ResultPassed
	})
	st.Failed = st.Total - st.Passed
	st.PassRate = round2(float64(st.Passed) / float64(st.Total) * 100)
	st.AveragePercent = round2(lo.MeanBy(graded, func(r model.ResultRow) float64 {
		return r.Result.Percentage
	}))
	return st
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
