package exam

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// Ranking computes rankings on demand from graded results.
type Ranking struct {
	store *store.Store
}

// WithinExam ranks the graded results of one exam by percentage, then by
// elapsed time. The exam's teacher, admins and students who took the exam
// may see it.
func (rk *Ranking) WithinExam(ctx context.Context, viewer *model.User, examID int64) ([]model.RankEntry, error) {
	e, err := rk.store.GetExam(ctx, examID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, reject(ReasonExamNotFound, "exam %d", examID)
	}
	if err != nil {
		return nil, transient("rank exam", err)
	}
	if err := rk.canSeeRanking(ctx, viewer, e); err != nil {
		return nil, err
	}
	rows, err := rk.store.ListGradedForExam(ctx, examID)
	if err != nil {
		return nil, transient("rank exam", err)
	}
	return RankResults(rows), nil
}

func (rk *Ranking) canSeeRanking(ctx context.Context, viewer *model.User, e model.Exam) error {
	if viewer == nil {
		return reject(ReasonForbidden, "login required")
	}
	switch viewer.Role {
	case model.UserRoleAdmin:
		return nil
	case model.UserRoleTeacher:
		if viewer.ID == e.TeacherID {
			return nil
		}
	case model.UserRoleStudent:
		took, err := rk.store.ResultExists(ctx, e.ID, viewer.ID)
		if err != nil {
			return transient("rank exam", err)
		}
		if took {
			return nil
		}
	}
	return reject(ReasonForbidden, "ranking of exam %d", e.ID)
}

// RankResults orders rows by percentage descending and elapsed minutes
// ascending and assigns competition ranks: equal rows share a rank and the
// next distinct row is ranked one past the number of rows ahead of it.
func RankResults(rows []store.RankingRow) []model.RankEntry {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b store.RankingRow) int {
		return cmp.Or(
			cmp.Compare(b.Percentage, a.Percentage),
			cmp.Compare(a.ElapsedMinutes, b.ElapsedMinutes),
			cmp.Compare(a.StudentID, b.StudentID),
		)
	})
	out := make([]model.RankEntry, len(sorted))
	for i, row := range sorted {
		rank := i + 1
		if i > 0 {
			prev := sorted[i-1]
			if prev.Percentage == row.Percentage && prev.ElapsedMinutes == row.ElapsedMinutes {
				rank = out[i-1].Rank
			}
		}
		out[i] = model.RankEntry{
			StudentID:      row.StudentID,
			StudentName:    row.StudentName,
			Percentage:     row.Percentage,
			ElapsedMinutes: row.ElapsedMinutes,
			Rank:           rank,
		}
	}
	return out
}

// CrossRanking is the cross-exam ranking with the caller's own row.
type CrossRanking struct {
	Ranks []model.StudentRank `json:"ranks"`
	// Self is nil when the student has no graded results.
	Self *model.StudentRank `json:"self"`
}

// AcrossExams ranks every student with at least one graded result by
// average percentage and picks out studentID's row.
func (rk *Ranking) AcrossExams(ctx context.Context, studentID int64) (CrossRanking, error) {
	avgs, err := rk.store.ListStudentAverages(ctx)
	if err != nil {
		return CrossRanking{}, transient("rank students", err)
	}
	cr := CrossRanking{Ranks: RankAverages(avgs)}
	for i := range cr.Ranks {
		if cr.Ranks[i].StudentID == studentID {
			self := cr.Ranks[i]
			cr.Self = &self
			break
		}
	}
	return cr, nil
}

// RankAverages assigns competition ranks by average percentage, rounded to
// two decimals. Students with no results never appear in avgs.
func RankAverages(avgs []store.StudentAverage) []model.StudentRank {
	out := make([]model.StudentRank, 0, len(avgs))
	for _, a := range avgs {
		if a.ExamCount == 0 {
			continue
		}
		out = append(out, model.StudentRank{
			StudentID:         a.StudentID,
			StudentName:       a.StudentName,
			ExamCount:         a.ExamCount,
			PassedCount:       a.PassedCount,
			AveragePercentage: round2(a.Average),
		})
	}
	slices.SortStableFunc(out, func(a, b model.StudentRank) int {
		return cmp.Or(
			cmp.Compare(b.AveragePercentage, a.AveragePercentage),
			cmp.Compare(a.StudentID, b.StudentID),
		)
	})
	for i := range out {
		out[i].Rank = i + 1
		if i > 0 && out[i].AveragePercentage == out[i-1].AveragePercentage {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out
}
