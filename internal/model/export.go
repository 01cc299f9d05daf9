package model

import "time"

// ExamExport is the top-level JSON structure for exam result export.
type ExamExport struct {
	ExamID        int64           `json:"exam_id"`
	Title         string          `json:"title"`
	Subject       string          `json:"subject"`
	TotalPoints   int             `json:"total_points"`
	PassingPoints int             `json:"passing_points"`
	NumQuestions  int             `json:"num_questions"`
	ExportedAt    time.Time       `json:"exported_at"`
	Results       []StudentResult `json:"results"`
}

// StudentResult holds one student's graded attempt for export.
type StudentResult struct {
	Username          string           `json:"username"`
	DisplayName       string           `json:"display_name"`
	Status            ResultStatus     `json:"status"`
	Score             float64          `json:"score"`
	Percentage        float64          `json:"percentage"`
	ElapsedMinutes    int              `json:"elapsed_minutes"`
	SubmittedAt       time.Time        `json:"submitted_at"`
	CertificateNumber string           `json:"certificate_number,omitempty"`
	Questions         []QuestionResult `json:"questions"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"kind"`
	Points        int          `json:"points"`
	CorrectAnswer string       `json:"correct_answer"`
	Answer        string       `json:"answer"`
	Correct       bool         `json:"correct"`
	Awarded       float64      `json:"awarded"`
}
