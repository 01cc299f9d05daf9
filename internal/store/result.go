package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/examhall/internal/model"
)

const resultColumns = `r.id, r.exam_id, r.student_id, r.score, r.total_points, r.percentage,
	r.elapsed_minutes, r.submitted_at, r.status`

func scanResult(row interface{ Scan(...any) error }, extra ...any) (model.ExamResult, error) {
	var r model.ExamResult
	dest := []any{&r.ID, &r.ExamID, &r.StudentID, &r.Score, &r.TotalPoints, &r.Percentage,
		&r.ElapsedMinutes, &r.SubmittedAt, &r.Status}
	err := row.Scan(append(dest, extra...)...)
	return r, err
}

// ResultExists reports whether the student already has a result for the exam.
func (q *Queries) ResultExists(ctx context.Context, examID, studentID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_results WHERE exam_id = ? AND student_id = ?)`,
		examID, studentID,
	).Scan(&exists)
	return exists, err
}

// InsertPendingResult creates the result row in pending state with a zero score.
// It returns ErrDuplicate if the (exam, student) pair already has a result.
func (q *Queries) InsertPendingResult(ctx context.Context, r model.ExamResult) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO exam_results (exam_id, student_id, score, total_points, percentage, elapsed_minutes, submitted_at, status)
		 VALUES (?, ?, 0, ?, 0, ?, ?, ?)`,
		r.ExamID, r.StudentID, r.TotalPoints, r.ElapsedMinutes, r.SubmittedAt.UTC(), model.ResultPending,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("result for exam %d student %d: %w", r.ExamID, r.StudentID, ErrDuplicate)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// InsertAnswer stores one graded answer.
func (q *Queries) InsertAnswer(ctx context.Context, a model.StudentAnswer) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO student_answers (result_id, question_id, answer, correct, points) VALUES (?, ?, ?, ?, ?)`,
		a.ResultID, a.QuestionID, a.Answer, a.Correct, a.Points,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("answer for question %d: %w", a.QuestionID, ErrDuplicate)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// FinalizeResult writes the final score and moves a pending result to its graded status.
func (q *Queries) FinalizeResult(ctx context.Context, id int64, score, percentage float64, status model.ResultStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE exam_results SET score = ?, percentage = ?, status = ? WHERE id = ? AND status = 'pending'`,
		score, percentage, status, id,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// GetResult returns a result by ID.
func (q *Queries) GetResult(ctx context.Context, id int64) (model.ExamResult, error) {
	r, err := scanResult(q.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM exam_results r WHERE r.id = ?`, id))
	return r, notFound(err)
}

// GetResultFor returns the result of a student at an exam.
func (q *Queries) GetResultFor(ctx context.Context, examID, studentID int64) (model.ExamResult, error) {
	r, err := scanResult(q.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM exam_results r WHERE r.exam_id = ? AND r.student_id = ?`,
		examID, studentID))
	return r, notFound(err)
}

// ListAnswers returns the graded answers of a result with their questions, in question order.
func (q *Queries) ListAnswers(ctx context.Context, resultID int64) ([]model.AnswerDetail, error) {
	questions := map[int64]model.Question{}
	var examID int64
	if err := q.db.QueryRowContext(ctx, `SELECT exam_id FROM exam_results WHERE id = ?`, resultID).Scan(&examID); err != nil {
		return nil, notFound(err)
	}
	qs, err := q.ListQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	for _, qu := range qs {
		questions[qu.ID] = qu
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT a.id, a.result_id, a.question_id, a.answer, a.correct, a.points
		 FROM student_answers a
		 JOIN questions qu ON qu.id = a.question_id
		 WHERE a.result_id = ?
		 ORDER BY qu.position, a.id`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AnswerDetail
	for rows.Next() {
		var a model.StudentAnswer
		if err := rows.Scan(&a.ID, &a.ResultID, &a.QuestionID, &a.Answer, &a.Correct, &a.Points); err != nil {
			return nil, err
		}
		out = append(out, model.AnswerDetail{Answer: a, Question: questions[a.QuestionID]})
	}
	return out, rows.Err()
}

// RankingRow is a graded result with the student's display name.
type RankingRow struct {
	StudentID      int64
	StudentName    string
	Percentage     float64
	ElapsedMinutes int
}

// ListGradedForExam returns all graded results of an exam.
func (q *Queries) ListGradedForExam(ctx context.Context, examID int64) ([]RankingRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT r.student_id, u.display_name, r.percentage, r.elapsed_minutes
		 FROM exam_results r
		 JOIN users u ON u.id = r.student_id
		 WHERE r.exam_id = ? AND r.status != 'pending'
		 ORDER BY r.id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RankingRow
	for rows.Next() {
		var row RankingRow
		if err := rows.Scan(&row.StudentID, &row.StudentName, &row.Percentage, &row.ElapsedMinutes); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StudentAverage is one student's aggregate over all graded results.
type StudentAverage struct {
	StudentID   int64
	StudentName string
	ExamCount   int
	PassedCount int
	Average     float64
}

// ListStudentAverages returns the average percentage of every student with at least one graded result.
func (q *Queries) ListStudentAverages(ctx context.Context) ([]StudentAverage, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT r.student_id, u.display_name, COUNT(r.id),
			COUNT(CASE WHEN r.status = 'passed' THEN 1 END), AVG(r.percentage)
		 FROM exam_results r
		 JOIN users u ON u.id = r.student_id
		 WHERE r.status != 'pending'
		 GROUP BY r.student_id, u.display_name
		 ORDER BY r.student_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StudentAverage
	for rows.Next() {
		var a StudentAverage
		if err := rows.Scan(&a.StudentID, &a.StudentName, &a.ExamCount, &a.PassedCount, &a.Average); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const resultRowQuery = `SELECT ` + resultColumns + `, e.title, e.subject, u.display_name, COALESCE(c.number, '')
	FROM exam_results r
	JOIN exams e ON e.id = r.exam_id
	JOIN users u ON u.id = r.student_id
	LEFT JOIN certificates c ON c.result_id = r.id`

func (q *Queries) listResultRows(ctx context.Context, where string, args ...any) ([]model.ResultRow, error) {
	rows, err := q.db.QueryContext(ctx, resultRowQuery+` WHERE `+where+` ORDER BY r.submitted_at DESC, r.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ResultRow
	for rows.Next() {
		var row model.ResultRow
		res, err := scanResult(rows, &row.ExamTitle, &row.Subject, &row.StudentName, &row.CertificateNumber)
		if err != nil {
			return nil, err
		}
		row.Result = res
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListStudentResults returns a student's results, newest first.
func (q *Queries) ListStudentResults(ctx context.Context, studentID int64) ([]model.ResultRow, error) {
	return q.listResultRows(ctx, `r.student_id = ?`, studentID)
}

// ListExamResults returns all results of an exam, newest first.
func (q *Queries) ListExamResults(ctx context.Context, examID int64) ([]model.ResultRow, error) {
	return q.listResultRows(ctx, `r.exam_id = ?`, examID)
}

// KindPerformance is a student's per-question-kind tally.
type KindPerformance struct {
	Kind      model.QuestionKind
	Count     int
	Correct   int
	Points    float64
	MaxPoints int
}

// ListKindPerformance aggregates a student's answers by question kind.
func (q *Queries) ListKindPerformance(ctx context.Context, studentID int64) ([]KindPerformance, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT qu.kind, COUNT(a.id), COUNT(CASE WHEN a.correct THEN 1 END), COALESCE(SUM(a.points), 0), COALESCE(SUM(qu.points), 0)
		 FROM student_answers a
		 JOIN questions qu ON qu.id = a.question_id
		 JOIN exam_results r ON r.id = a.result_id
		 WHERE r.student_id = ?
		 GROUP BY qu.kind
		 ORDER BY qu.kind`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []KindPerformance
	for rows.Next() {
		var k KindPerformance
		if err := rows.Scan(&k.Kind, &k.Count, &k.Correct, &k.Points, &k.MaxPoints); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
