package model

import "time"

// ResultStatus is the grading state of an exam result.
type ResultStatus string

const (
	ResultPending ResultStatus = "pending"
	ResultPassed  ResultStatus = "passed"
	ResultFailed  ResultStatus = "failed"
)

// AnswerInput is one (question, given answer) pair of a submission.
type AnswerInput struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// Submission is a student's answer set for one exam.
type Submission struct {
	ExamID         int64         `json:"exam_id"`
	StudentID      int64         `json:"student_id"`
	Answers        []AnswerInput `json:"answers"`
	ElapsedMinutes int           `json:"elapsed_minutes"`
}

// ExamResult is the single graded attempt of a student at an exam.
type ExamResult struct {
	ID             int64        `json:"id"`
	ExamID         int64        `json:"exam_id"`
	StudentID      int64        `json:"student_id"`
	Score          float64      `json:"score"`
	TotalPoints    int          `json:"total_points"`
	Percentage     float64      `json:"percentage"`
	ElapsedMinutes int          `json:"elapsed_minutes"`
	SubmittedAt    time.Time    `json:"submitted_at"`
	Status         ResultStatus `json:"status"`
}

// StudentAnswer is a graded answer to one question.
type StudentAnswer struct {
	ID         int64   `json:"id"`
	ResultID   int64   `json:"result_id"`
	QuestionID int64   `json:"question_id"`
	Answer     string  `json:"answer"`
	Correct    bool    `json:"correct"`
	Points     float64 `json:"points"`
}

// CertificateStatus tracks revocation.
type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "active"
	CertificateRevoked CertificateStatus = "revoked"
)

// Certificate is issued once for a passed result.
type Certificate struct {
	ID       int64             `json:"id"`
	ResultID int64             `json:"result_id"`
	Number   string            `json:"number"`
	IssuedAt time.Time         `json:"issued_at"`
	Status   CertificateStatus `json:"status"`
}

// Admission is the outcome of an attempt check.
type Admission string

const (
	Admitted          Admission = "admitted"
	AdmissionTaken    Admission = "already_taken"
	AdmissionNotOpen  Admission = "not_yet_open"
	AdmissionExpired  Admission = "expired"
	AdmissionInactive Admission = "exam_inactive"
	AdmissionNotFound Admission = "exam_not_found"
)

// Statistics summarises a set of results.
type Statistics struct {
	Total          int     `json:"total"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	PassRate       float64 `json:"pass_rate"`
	AveragePercent float64 `json:"average_percentage"`
}

// ResultRow is a result joined with exam, student and certificate data.
type ResultRow struct {
	Result            ExamResult `json:"result"`
	ExamTitle         string     `json:"exam_title"`
	Subject           string     `json:"subject"`
	StudentName       string     `json:"student_name"`
	CertificateNumber string     `json:"certificate_number,omitempty"`
}

// AnswerDetail is a graded answer together with its question.
type AnswerDetail struct {
	Answer   StudentAnswer `json:"answer"`
	Question Question      `json:"question"`
}

// ResultDetail is a full view of one graded attempt.
type ResultDetail struct {
	Result      ExamResult     `json:"result"`
	Exam        Exam           `json:"exam"`
	StudentName string         `json:"student_name"`
	Answers     []AnswerDetail `json:"answers"`
	Certificate *Certificate   `json:"certificate,omitempty"`
}

// RankEntry is one row of a per-exam ranking.
type RankEntry struct {
	StudentID      int64   `json:"student_id"`
	StudentName    string  `json:"student_name"`
	Percentage     float64 `json:"percentage"`
	ElapsedMinutes int     `json:"elapsed_minutes"`
	Rank           int     `json:"rank"`
}

// StudentRank is one row of the cross-exam ranking.
type StudentRank struct {
	StudentID         int64   `json:"student_id"`
	StudentName       string  `json:"student_name"`
	ExamCount         int     `json:"exam_count"`
	PassedCount       int     `json:"passed_count"`
	AveragePercentage float64 `json:"average_percentage"`
	Rank              int     `json:"rank"`
}

// PerformanceRow aggregates a student's results under one key (subject or question kind).
type PerformanceRow struct {
	Key               string  `json:"key"`
	Count             int     `json:"count"`
	Correct           int     `json:"correct"`
	AveragePercentage float64 `json:"average_percentage"`
}

// Analytics is a student's performance breakdown.
type Analytics struct {
	BySubject      []PerformanceRow `json:"by_subject"`
	ByQuestionKind []PerformanceRow `json:"by_question_kind"`
	Recent         []ResultRow      `json:"recent"`
}
