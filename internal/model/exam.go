package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// QuestionKind is the grading family of a question.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single_choice"
	KindTrueFalse    QuestionKind = "true_false"
	KindShortAnswer  QuestionKind = "short_answer"
	KindEssay        QuestionKind = "essay"
)

// Valid reports whether k is a known question kind.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindSingleChoice, KindTrueFalse, KindShortAnswer, KindEssay:
		return true
	}
	return false
}

// IsChoice reports whether k is graded by exact match against an option.
func (k QuestionKind) IsChoice() bool {
	return k == KindSingleChoice || k == KindTrueFalse
}

// DefaultTrueFalseOptions is used when a true/false question carries no options.
var DefaultTrueFalseOptions = []string{"True", "False"}

// Exam is a timed examination owned by a teacher.
type Exam struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Subject         string    `json:"subject"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalPoints     int       `json:"total_points"`
	PassingPoints   int       `json:"passing_points"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	TeacherID       int64     `json:"teacher_id"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PassingPercentage is the passing threshold expressed as a percentage of total points.
func (e Exam) PassingPercentage() float64 {
	if e.TotalPoints == 0 {
		return 0
	}
	return float64(e.PassingPoints) / float64(e.TotalPoints) * 100
}

// Question belongs to exactly one exam.
type Question struct {
	ID            int64        `json:"id"`
	ExamID        int64        `json:"exam_id"`
	Position      int          `json:"position"`
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"kind"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
}

// PublicQuestion is a question as shown to students, without its answer.
type PublicQuestion struct {
	ID       int64        `json:"id"`
	Position int          `json:"position"`
	Text     string       `json:"text"`
	Kind     QuestionKind `json:"kind"`
	Options  []string     `json:"options"`
	Points   int          `json:"points"`
}

// Public strips the correct answer.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:       q.ID,
		Position: q.Position,
		Text:     q.Text,
		Kind:     q.Kind,
		Options:  q.Options,
		Points:   q.Points,
	}
}

// ExamDraft is the teacher-supplied definition of a new exam.
type ExamDraft struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Subject         string          `json:"subject"`
	DurationMinutes int             `json:"duration_minutes"`
	TotalPoints     int             `json:"total_points"`
	PassingPoints   int             `json:"passing_points"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Questions       []QuestionDraft `json:"questions"`
}

// QuestionDraft is one question of an ExamDraft.
type QuestionDraft struct {
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"kind"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
}

// FieldError describes why an exam definition is invalid.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

func fieldErr(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NewExam validates a draft and builds the exam and its ordered questions.
// Times are normalized to UTC. The returned exam is active.
func NewExam(teacherID int64, d ExamDraft) (Exam, []Question, error) {
	title := strings.TrimSpace(d.Title)
	subject := strings.TrimSpace(d.Subject)
	switch {
	case title == "":
		return Exam{}, nil, fieldErr("title", "required")
	case subject == "":
		return Exam{}, nil, fieldErr("subject", "required")
	case d.DurationMinutes <= 0:
		return Exam{}, nil, fieldErr("duration_minutes", "must be positive")
	case d.TotalPoints <= 0:
		return Exam{}, nil, fieldErr("total_points", "must be positive")
	case d.PassingPoints <= 0:
		return Exam{}, nil, fieldErr("passing_points", "must be positive")
	case d.PassingPoints > d.TotalPoints:
		return Exam{}, nil, fieldErr("passing_points", "cannot exceed total points (%d)", d.TotalPoints)
	case d.StartTime.IsZero() || d.EndTime.IsZero():
		return Exam{}, nil, fieldErr("start_time", "start and end times are required")
	case !d.StartTime.Before(d.EndTime):
		return Exam{}, nil, fieldErr("end_time", "must be after start time")
	case len(d.Questions) == 0:
		return Exam{}, nil, fieldErr("questions", "at least one question is required")
	}

	questions := make([]Question, 0, len(d.Questions))
	sum := 0
	for i, qd := range d.Questions {
		q, err := newQuestion(i, qd)
		if err != nil {
			return Exam{}, nil, err
		}
		sum += q.Points
		questions = append(questions, q)
	}
	if sum != d.TotalPoints {
		return Exam{}, nil, fieldErr("questions", "points add up to %d, exam total is %d", sum, d.TotalPoints)
	}

	e := Exam{
		Title:           title,
		Description:     strings.TrimSpace(d.Description),
		Subject:         subject,
		DurationMinutes: d.DurationMinutes,
		TotalPoints:     d.TotalPoints,
		PassingPoints:   d.PassingPoints,
		StartTime:       d.StartTime.UTC(),
		EndTime:         d.EndTime.UTC(),
		TeacherID:       teacherID,
		Active:          true,
	}
	return e, questions, nil
}

func newQuestion(i int, qd QuestionDraft) (Question, error) {
	field := fmt.Sprintf("questions[%d]", i)
	if strings.TrimSpace(qd.Text) == "" {
		return Question{}, fieldErr(field+".text", "required")
	}
	if !qd.Kind.Valid() {
		return Question{}, fieldErr(field+".kind", "unknown kind %q", qd.Kind)
	}
	if strings.TrimSpace(qd.CorrectAnswer) == "" {
		return Question{}, fieldErr(field+".correct_answer", "required")
	}
	if qd.Points <= 0 {
		return Question{}, fieldErr(field+".points", "must be positive")
	}

	options := qd.Options
	switch qd.Kind {
	case KindTrueFalse:
		if len(options) == 0 {
			options = slices.Clone(DefaultTrueFalseOptions)
		}
	case KindSingleChoice:
		if len(options) < 2 {
			return Question{}, fieldErr(field+".options", "single choice needs at least two options")
		}
	default:
		options = nil
	}
	if qd.Kind.IsChoice() && !slices.Contains(options, qd.CorrectAnswer) {
		return Question{}, fieldErr(field+".correct_answer", "must be one of the options")
	}

	return Question{
		Position:      i + 1,
		Text:          strings.TrimSpace(qd.Text),
		Kind:          qd.Kind,
		Options:       options,
		CorrectAnswer: qd.CorrectAnswer,
		Points:        qd.Points,
	}, nil
}

// ExamPatch holds the fields a teacher may change after creation.
type ExamPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// OnlyDeactivates reports whether the patch does nothing but clear the active flag.
func (p ExamPatch) OnlyDeactivates() bool {
	return p.Title == nil && p.Description == nil && p.Active != nil && !*p.Active
}

// Availability is an exam's state from one student's point of view.
type Availability string

const (
	AvailabilityUpcoming  Availability = "upcoming"
	AvailabilityAvailable Availability = "available"
	AvailabilityExpired   Availability = "expired"
	AvailabilityCompleted Availability = "completed"
)

// AvailableExam is a row of a student's exam listing.
type AvailableExam struct {
	Exam              Exam         `json:"exam"`
	TeacherName       string       `json:"teacher_name"`
	Availability      Availability `json:"availability"`
	StudentScore      *float64     `json:"student_score,omitempty"`
	StudentPercentage *float64     `json:"student_percentage,omitempty"`
}

// TeacherExam is an exam with aggregate result statistics.
type TeacherExam struct {
	Exam  Exam       `json:"exam"`
	Stats Statistics `json:"stats"`
}

// ExamView is an exam as shown to a student taking it.
type ExamView struct {
	Exam        Exam             `json:"exam"`
	TeacherName string           `json:"teacher_name"`
	Questions   []PublicQuestion `json:"questions"`
}
