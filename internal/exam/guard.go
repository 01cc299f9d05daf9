package exam

import (
	"context"
	"errors"
	"time"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// Guard enforces the exam window and the one-attempt rule.
type Guard struct {
	store *store.Store
}

// Check reports whether the student may attempt the exam at now.
// The check is advisory; Ledger.Submit repeats it inside its transaction.
func (g *Guard) Check(ctx context.Context, examID, studentID int64, now time.Time) (model.Admission, error) {
	_, adm, err := admit(ctx, g.store.Queries, examID, studentID, now)
	if err != nil {
		return "", transient("check admission", err)
	}
	return adm, nil
}

// admit evaluates admission against q, which may be a transaction.
func admit(ctx context.Context, q *store.Queries, examID, studentID int64, now time.Time) (model.Exam, model.Admission, error) {
	e, err := q.GetExam(ctx, examID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Exam{}, model.AdmissionNotFound, nil
	}
	if err != nil {
		return model.Exam{}, "", err
	}
	if !e.Active {
		return e, model.AdmissionInactive, nil
	}
	taken, err := q.ResultExists(ctx, examID, studentID)
	if err != nil {
		return e, "", err
	}
	if taken {
		return e, model.AdmissionTaken, nil
	}
	return e, window(e, now), nil
}

// window checks now against [start, end], inclusive on both ends.
func window(e model.Exam, now time.Time) model.Admission {
	switch {
	case now.Before(e.StartTime):
		return model.AdmissionNotOpen
	case now.After(e.EndTime):
		return model.AdmissionExpired
	}
	return model.Admitted
}

// admissionError turns a negative admission into its rejection.
func admissionError(adm model.Admission, examID int64) error {
	switch adm {
	case model.Admitted:
		return nil
	case model.AdmissionTaken:
		return reject(ReasonAlreadyTaken, "exam %d already submitted", examID)
	case model.AdmissionNotOpen:
		return reject(ReasonNotYetOpen, "exam %d has not started", examID)
	case model.AdmissionExpired:
		return reject(ReasonExpired, "exam %d has ended", examID)
	case model.AdmissionInactive:
		return reject(ReasonExamInactive, "exam %d is not active", examID)
	default:
		return reject(ReasonExamNotFound, "exam %d", examID)
	}
}
