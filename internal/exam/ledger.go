package exam

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// Submission outcomes reported to the Recorder.
const (
	OutcomePassed    = "passed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeTransient = "error"
)

// Ledger records graded results. It is the only writer of results and answers.
type Ledger struct {
	store    *store.Store
	issuer   *Issuer
	now      func() time.Time
	recorder Recorder
}

// Receipt is what a successful submission produced.
type Receipt struct {
	Result      model.ExamResult      `json:"result"`
	Answers     []model.StudentAnswer `json:"answers"`
	Certificate *model.Certificate    `json:"certificate,omitempty"`
	// Skipped lists answered question IDs that are not part of the exam.
	Skipped []int64 `json:"skipped,omitempty"`
}

// Submit grades and records a student's single attempt at an exam.
//
// Admission is re-checked inside the write transaction and the
// (exam, student) uniqueness constraint settles concurrent attempts, so
// exactly one submission per pair can commit. Grading, answers, the final
// status and a certificate for a passing result commit together or not at all.
func (l *Ledger) Submit(ctx context.Context, sub model.Submission) (Receipt, error) {
	if err := validateSubmission(sub); err != nil {
		l.recorder.Submission(OutcomeRejected)
		return Receipt{}, err
	}
	now := l.now().UTC()

	var (
		rc      Receipt
		grading Grading
		issued  bool
	)
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		e, adm, err := admit(ctx, tx.Queries, sub.ExamID, sub.StudentID, now)
		if err != nil {
			return err
		}
		if err := admissionError(adm, sub.ExamID); err != nil {
			return err
		}

		questions, err := tx.ListQuestions(ctx, e.ID)
		if err != nil {
			return err
		}

		result := model.ExamResult{
			ExamID:         e.ID,
			StudentID:      sub.StudentID,
			ElapsedMinutes: sub.ElapsedMinutes,
			SubmittedAt:    now,
			Status:         model.ResultPending,
		}
		grading = Grade(questions, sub.Answers)
		result.TotalPoints = grading.TotalPoints

		result.ID, err = tx.InsertPendingResult(ctx, result)
		if errors.Is(err, store.ErrDuplicate) {
			return reject(ReasonAlreadyTaken, "exam %d already submitted", e.ID)
		}
		if err != nil {
			return err
		}

		for _, ga := range grading.Answers {
			a := model.StudentAnswer{
				ResultID:   result.ID,
				QuestionID: ga.QuestionID,
				Answer:     ga.Answer,
				Correct:    ga.Correct,
				Points:     ga.Points,
			}
			if a.ID, err = tx.InsertAnswer(ctx, a); err != nil {
				return err
			}
			rc.Answers = append(rc.Answers, a)
		}

		result.Score = grading.RawScore
		result.Percentage = grading.Percentage
		result.Status = Status(e, grading.Percentage)
		if err := tx.FinalizeResult(ctx, result.ID, result.Score, result.Percentage, result.Status); err != nil {
			return err
		}
		_, err = tx.InsertEvent(ctx, model.Event{
			Kind:   model.EventResultGraded,
			ExamID: e.ID,
			UserID: sub.StudentID,
			RefID:  result.ID,
		}, map[string]any{"status": result.Status, "percentage": result.Percentage})
		if err != nil {
			return err
		}

		if result.Status == model.ResultPassed {
			cert, created, err := l.issuer.issueTx(ctx, tx.Queries, result)
			if err != nil {
				return err
			}
			rc.Certificate = &cert
			issued = created
		}
		rc.Result = result
		return nil
	})
	if err != nil {
		if _, ok := AsRejection(err); ok {
			slog.Debug("submission rejected", "exam_id", sub.ExamID, "student_id", sub.StudentID, "reason", err)
			l.recorder.Submission(OutcomeRejected)
			return Receipt{}, err
		}
		slog.Error("submission failed", "exam_id", sub.ExamID, "student_id", sub.StudentID, "error", err)
		l.recorder.Submission(OutcomeTransient)
		return Receipt{}, transient("submit", err)
	}

	rc.Skipped = grading.Unknown
	if len(grading.Unknown) > 0 {
		slog.Warn("skipped answers to unknown questions", "exam_id", sub.ExamID, "student_id", sub.StudentID, "question_ids", grading.Unknown)
	}
	if issued {
		l.recorder.CertificateIssued()
	}
	if rc.Result.Status == model.ResultPassed {
		l.recorder.Submission(OutcomePassed)
	} else {
		l.recorder.Submission(OutcomeFailed)
	}
	slog.Info("graded submission",
		"exam_id", sub.ExamID,
		"student_id", sub.StudentID,
		"score", rc.Result.Score,
		"percentage", rc.Result.Percentage,
		"status", rc.Result.Status,
	)
	return rc, nil
}

func validateSubmission(sub model.Submission) error {
	if sub.ExamID <= 0 || sub.StudentID <= 0 {
		return reject(ReasonMalformed, "exam and student are required")
	}
	if sub.ElapsedMinutes < 0 {
		return reject(ReasonMalformed, "elapsed time cannot be negative")
	}
	seen := make(map[int64]bool, len(sub.Answers))
	for _, a := range sub.Answers {
		if seen[a.QuestionID] {
			return reject(ReasonMalformed, "question %d answered twice", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	return nil
}
