package exam

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// Definitions manages exams and their question banks.
type Definitions struct {
	store *store.Store
	guard *Guard
	now   func() time.Time
}

// Create validates a draft and stores the exam with its questions.
func (d *Definitions) Create(ctx context.Context, teacher *model.User, draft model.ExamDraft) (model.Exam, []model.Question, error) {
	if !isTeacher(teacher) {
		return model.Exam{}, nil, reject(ReasonForbidden, "only teachers create exams")
	}
	e, questions, err := model.NewExam(teacher.ID, draft)
	if err != nil {
		var fe *model.FieldError
		if errors.As(err, &fe) {
			return model.Exam{}, nil, reject(ReasonInvalidExam, "%s", fe.Error())
		}
		return model.Exam{}, nil, err
	}

	var id int64
	err = d.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if id, err = tx.InsertExam(ctx, e, questions); err != nil {
			return err
		}
		_, err = tx.InsertEvent(ctx, model.Event{
			Kind:   model.EventExamCreated,
			ExamID: id,
			UserID: teacher.ID,
			RefID:  id,
		}, map[string]any{"title": e.Title, "start_time": e.StartTime, "end_time": e.EndTime})
		return err
	})
	if err != nil {
		return model.Exam{}, nil, transient("create exam", err)
	}
	slog.Info("created exam", "exam_id", id, "teacher_id", teacher.ID, "questions", len(questions))
	return d.ForTeacher(ctx, teacher, id)
}

// Update applies a patch. Once any result exists the exam is frozen except
// for deactivation.
func (d *Definitions) Update(ctx context.Context, teacher *model.User, examID int64, patch model.ExamPatch) (model.Exam, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Exam{}, reject(ReasonInvalidExam, "title: required")
	}
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := owned(ctx, tx.Queries, teacher, examID); err != nil {
			return err
		}
		n, err := tx.CountResultsForExam(ctx, examID)
		if err != nil {
			return err
		}
		if n > 0 && !patch.OnlyDeactivates() {
			return reject(ReasonExamLocked, "exam %d has %d results", examID, n)
		}
		return tx.UpdateExam(ctx, examID, patch)
	})
	if err != nil {
		return model.Exam{}, transient("update exam", err)
	}
	slog.Info("updated exam", "exam_id", examID, "teacher_id", teacher.ID)
	e, err := d.store.GetExam(ctx, examID)
	if err != nil {
		return model.Exam{}, transient("update exam", err)
	}
	return e, nil
}

// Delete removes an exam that nobody has taken yet.
func (d *Definitions) Delete(ctx context.Context, teacher *model.User, examID int64) error {
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := owned(ctx, tx.Queries, teacher, examID); err != nil {
			return err
		}
		n, err := tx.CountResultsForExam(ctx, examID)
		if err != nil {
			return err
		}
		if n > 0 {
			return reject(ReasonExamLocked, "exam %d has %d results", examID, n)
		}
		return tx.DeleteExam(ctx, examID)
	})
	if err != nil {
		return transient("delete exam", err)
	}
	slog.Info("deleted exam", "exam_id", examID, "teacher_id", teacher.ID)
	return nil
}

// ForStudent returns an exam for taking, with correct answers removed.
// The student must currently be admitted.
func (d *Definitions) ForStudent(ctx context.Context, student *model.User, examID int64) (model.ExamView, error) {
	if student == nil || student.Role != model.UserRoleStudent {
		return model.ExamView{}, reject(ReasonForbidden, "only students take exams")
	}
	adm, err := d.guard.Check(ctx, examID, student.ID, d.now().UTC())
	if err != nil {
		return model.ExamView{}, err
	}
	if err := admissionError(adm, examID); err != nil {
		return model.ExamView{}, err
	}

	e, err := d.store.GetExam(ctx, examID)
	if err != nil {
		return model.ExamView{}, transient("get exam", err)
	}
	questions, err := d.store.ListQuestions(ctx, examID)
	if err != nil {
		return model.ExamView{}, transient("get exam", err)
	}
	view := model.ExamView{Exam: e, Questions: make([]model.PublicQuestion, 0, len(questions))}
	for _, q := range questions {
		view.Questions = append(view.Questions, q.Public())
	}
	if t, err := d.store.GetUserByID(ctx, e.TeacherID); err == nil && t != nil {
		view.TeacherName = t.DisplayName
	}
	return view, nil
}

// ForTeacher returns an owned exam with its full question bank.
func (d *Definitions) ForTeacher(ctx context.Context, teacher *model.User, examID int64) (model.Exam, []model.Question, error) {
	e, err := owned(ctx, d.store.Queries, teacher, examID)
	if err != nil {
		return model.Exam{}, nil, transient("get exam", err)
	}
	questions, err := d.store.ListQuestions(ctx, examID)
	if err != nil {
		return model.Exam{}, nil, transient("get exam", err)
	}
	return e, questions, nil
}

// Available lists all active exams with their state for one student.
func (d *Definitions) Available(ctx context.Context, student *model.User) ([]model.AvailableExam, error) {
	if student == nil {
		return nil, reject(ReasonForbidden, "login required")
	}
	rows, err := d.store.ListActiveExamsForStudent(ctx, student.ID)
	if err != nil {
		return nil, transient("list exams", err)
	}
	now := d.now().UTC()
	out := make([]model.AvailableExam, 0, len(rows))
	for _, row := range rows {
		ae := model.AvailableExam{
			Exam:              row.Exam,
			TeacherName:       row.TeacherName,
			StudentScore:      row.Score,
			StudentPercentage: row.Percentage,
		}
		switch {
		case row.Score != nil:
			ae.Availability = model.AvailabilityCompleted
		case now.Before(row.Exam.StartTime):
			ae.Availability = model.AvailabilityUpcoming
		case now.After(row.Exam.EndTime):
			ae.Availability = model.AvailabilityExpired
		default:
			ae.Availability = model.AvailabilityAvailable
		}
		out = append(out, ae)
	}
	return out, nil
}

// Teaching lists a teacher's exams with result statistics.
func (d *Definitions) Teaching(ctx context.Context, teacher *model.User) ([]model.TeacherExam, error) {
	if !isTeacher(teacher) {
		return nil, reject(ReasonForbidden, "teachers only")
	}
	exams, err := d.store.ListTeacherExams(ctx, teacher.ID)
	if err != nil {
		return nil, transient("list exams", err)
	}
	for i := range exams {
		st := &exams[i].Stats
		st.AveragePercent = round2(st.AveragePercent)
		if st.Total > 0 {
			st.PassRate = round2(float64(st.Passed) / float64(st.Total) * 100)
		}
	}
	return exams, nil
}

// owned loads an exam and checks that teacher owns it.
func owned(ctx context.Context, q *store.Queries, teacher *model.User, examID int64) (model.Exam, error) {
	if !isTeacher(teacher) {
		return model.Exam{}, reject(ReasonForbidden, "teachers only")
	}
	e, err := q.GetExam(ctx, examID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Exam{}, reject(ReasonExamNotFound, "exam %d", examID)
	}
	if err != nil {
		return model.Exam{}, err
	}
	if e.TeacherID != teacher.ID {
		return model.Exam{}, reject(ReasonForbidden, "exam %d belongs to another teacher", examID)
	}
	return e, nil
}

func isTeacher(u *model.User) bool {
	return u != nil && u.Role == model.UserRoleTeacher
}
