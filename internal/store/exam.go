package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/examhall/internal/model"
)

const examColumns = `e.id, e.title, e.description, e.subject, e.duration_minutes, e.total_points,
	e.passing_points, e.start_time, e.end_time, e.teacher_id, e.active, e.created_at, e.updated_at`

func scanExam(row interface{ Scan(...any) error }, extra ...any) (model.Exam, error) {
	var e model.Exam
	dest := []any{&e.ID, &e.Title, &e.Description, &e.Subject, &e.DurationMinutes, &e.TotalPoints,
		&e.PassingPoints, &e.StartTime, &e.EndTime, &e.TeacherID, &e.Active, &e.CreatedAt, &e.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return e, err
}

// InsertExam stores an exam and its questions. Call it inside WithTx so the
// questions are written atomically with the exam.
func (q *Queries) InsertExam(ctx context.Context, e model.Exam, questions []model.Question) (int64, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO exams (title, description, subject, duration_minutes, total_points, passing_points,
			start_time, end_time, teacher_id, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Subject, e.DurationMinutes, e.TotalPoints, e.PassingPoints,
		e.StartTime.UTC(), e.EndTime.UTC(), e.TeacherID, e.Active, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert exam: %w", err)
	}
	examID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, qu := range questions {
		opts, err := json.Marshal(qu.Options)
		if err != nil {
			return 0, fmt.Errorf("encode options: %w", err)
		}
		if qu.Options == nil {
			opts = []byte("[]")
		}
		_, err = q.db.ExecContext(ctx,
			`INSERT INTO questions (exam_id, position, text, kind, options, correct_answer, points)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			examID, qu.Position, qu.Text, qu.Kind, string(opts), qu.CorrectAnswer, qu.Points,
		)
		if err != nil {
			return 0, fmt.Errorf("insert question %d: %w", qu.Position, err)
		}
	}
	return examID, nil
}

// GetExam returns an exam by ID.
func (q *Queries) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	e, err := scanExam(q.db.QueryRowContext(ctx,
		`SELECT `+examColumns+` FROM exams e WHERE e.id = ?`, id))
	return e, notFound(err)
}

// ListQuestions returns the questions of an exam in order, correct answers included.
func (q *Queries) ListQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, exam_id, position, text, kind, options, correct_answer, points
		 FROM questions WHERE exam_id = ? ORDER BY position, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var qu model.Question
		var opts string
		if err := rows.Scan(&qu.ID, &qu.ExamID, &qu.Position, &qu.Text, &qu.Kind, &opts, &qu.CorrectAnswer, &qu.Points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(opts), &qu.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %d: %w", qu.ID, err)
		}
		questions = append(questions, qu)
	}
	return questions, rows.Err()
}

// UpdateExam applies a patch to an exam.
func (q *Queries) UpdateExam(ctx context.Context, id int64, p model.ExamPatch) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE exams SET
			title = COALESCE(?, title),
			description = COALESCE(?, description),
			active = COALESCE(?, active),
			updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Description, p.Active, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteExam removes an exam and its questions.
func (q *Queries) DeleteExam(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = ?`, id); err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ListTeacherExams returns a teacher's exams with result statistics, newest first.
func (q *Queries) ListTeacherExams(ctx context.Context, teacherID int64) ([]model.TeacherExam, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+examColumns+`,
			COUNT(r.id),
			COUNT(CASE WHEN r.status = 'passed' THEN 1 END),
			COALESCE(AVG(r.percentage), 0)
		 FROM exams e
		 LEFT JOIN exam_results r ON r.exam_id = e.id
		 WHERE e.teacher_id = ?
		 GROUP BY e.id
		 ORDER BY e.created_at DESC, e.id DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TeacherExam
	for rows.Next() {
		var st model.Statistics
		e, err := scanExam(rows, &st.Total, &st.Passed, &st.AveragePercent)
		if err != nil {
			return nil, err
		}
		st.Failed = st.Total - st.Passed
		out = append(out, model.TeacherExam{Exam: e, Stats: st})
	}
	return out, rows.Err()
}

// StudentExamRow is an active exam joined with one student's result, if any.
type StudentExamRow struct {
	Exam        model.Exam
	TeacherName string
	Score       *float64
	Percentage  *float64
}

// ListActiveExamsForStudent returns all active exams ordered by start time,
// with the student's score where a result exists.
func (q *Queries) ListActiveExamsForStudent(ctx context.Context, studentID int64) ([]StudentExamRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+examColumns+`, u.display_name, r.score, r.percentage
		 FROM exams e
		 JOIN users u ON u.id = e.teacher_id
		 LEFT JOIN exam_results r ON r.exam_id = e.id AND r.student_id = ?
		 WHERE e.active = 1
		 ORDER BY e.start_time, e.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StudentExamRow
	for rows.Next() {
		var row StudentExamRow
		e, err := scanExam(rows, &row.TeacherName, &row.Score, &row.Percentage)
		if err != nil {
			return nil, err
		}
		row.Exam = e
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountResultsForExam returns how many results exist for an exam.
func (q *Queries) CountResultsForExam(ctx context.Context, examID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exam_results WHERE exam_id = ?`, examID).Scan(&n)
	return n, err
}
