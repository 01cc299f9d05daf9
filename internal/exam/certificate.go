package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// NumberFunc generates a certificate number for an (exam, student) pair.
type NumberFunc func(examID, studentID int64) (string, error)

// CertificateNumber returns CERT-<exam>-<student>-<12 random hex digits>.
// The prefix traces the certificate to its result; the suffix keeps
// numbers from being guessed.
func CertificateNumber(examID, studentID int64) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("certificate entropy: %w", err)
	}
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:12]
	return fmt.Sprintf("CERT-%d-%d-%s", examID, studentID, suffix), nil
}

// maxNumberAttempts bounds retries after a certificate number collision.
const maxNumberAttempts = 3

// Issuer creates certificates for passed results.
type Issuer struct {
	store    *store.Store
	numbers  NumberFunc
	now      func() time.Time
	recorder Recorder
}

// Issue returns the certificate of a passed result, creating it on the
// first call. Repeated or concurrent calls return the same certificate.
func (is *Issuer) Issue(ctx context.Context, resultID int64) (model.Certificate, error) {
	var (
		cert    model.Certificate
		created bool
	)
	err := is.store.WithTx(ctx, func(tx *store.Tx) error {
		r, err := tx.GetResult(ctx, resultID)
		if errors.Is(err, store.ErrNotFound) {
			return reject(ReasonNotFound, "result %d", resultID)
		}
		if err != nil {
			return err
		}
		cert, created, err = is.issueTx(ctx, tx.Queries, r)
		return err
	})
	if err != nil {
		return model.Certificate{}, transient("issue certificate", err)
	}
	if created {
		is.recorder.CertificateIssued()
	}
	return cert, nil
}

// issueTx runs inside the caller's transaction. It reports whether a new
// certificate was written.
func (is *Issuer) issueTx(ctx context.Context, q *store.Queries, r model.ExamResult) (model.Certificate, bool, error) {
	if r.Status != model.ResultPassed {
		return model.Certificate{}, false, reject(ReasonNotPassed, "result %d is %s", r.ID, r.Status)
	}
	existing, err := q.GetCertificateByResult(ctx, r.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Certificate{}, false, err
	}

	for attempt := 1; ; attempt++ {
		number, err := is.numbers(r.ExamID, r.StudentID)
		if err != nil {
			return model.Certificate{}, false, err
		}
		cert, err := q.InsertCertificate(ctx, r.ID, number, is.now())
		if err == nil {
			_, err = q.InsertEvent(ctx, model.Event{
				Kind:   model.EventCertificateIssued,
				ExamID: r.ExamID,
				UserID: r.StudentID,
				RefID:  cert.ID,
			}, map[string]string{"number": cert.Number})
			if err != nil {
				return model.Certificate{}, false, err
			}
			slog.Info("issued certificate", "result_id", r.ID, "number", cert.Number)
			return cert, true, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return model.Certificate{}, false, err
		}
		// Either another writer issued for this result or the number collided.
		if existing, gerr := q.GetCertificateByResult(ctx, r.ID); gerr == nil {
			return existing, false, nil
		}
		if attempt == maxNumberAttempts {
			return model.Certificate{}, false, fmt.Errorf("certificate number collision after %d attempts: %w", attempt, err)
		}
		slog.Warn("certificate number collision", "result_id", r.ID, "number", number)
	}
}

// CertificateView is a certificate with the result it attests.
type CertificateView struct {
	Certificate model.Certificate `json:"certificate"`
	ExamID      int64             `json:"exam_id"`
	ExamTitle   string            `json:"exam_title"`
	Subject     string            `json:"subject"`
	StudentID   int64             `json:"student_id"`
	StudentName string            `json:"student_name"`
	Percentage  float64           `json:"percentage"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// Lookup finds a certificate by number. Only the certified student, the
// exam's teacher and admins may see it.
func (is *Issuer) Lookup(ctx context.Context, viewer *model.User, number string) (CertificateView, error) {
	view, teacherID, err := is.view(ctx, number)
	if err != nil {
		return CertificateView{}, err
	}
	if !canSeeResult(viewer, view.StudentID, teacherID) {
		return CertificateView{}, reject(ReasonForbidden, "certificate %s", number)
	}
	return view, nil
}

// Revoke marks a certificate revoked. Only the exam's teacher may revoke;
// revoking twice is not an error.
func (is *Issuer) Revoke(ctx context.Context, teacher *model.User, number string) (CertificateView, error) {
	view, teacherID, err := is.view(ctx, number)
	if err != nil {
		return CertificateView{}, err
	}
	if teacher == nil || teacher.ID != teacherID {
		return CertificateView{}, reject(ReasonForbidden, "certificate %s", number)
	}
	if view.Certificate.Status == model.CertificateRevoked {
		return view, nil
	}
	if err := is.store.SetCertificateStatus(ctx, view.Certificate.ID, model.CertificateRevoked); err != nil {
		return CertificateView{}, transient("revoke certificate", err)
	}
	view.Certificate.Status = model.CertificateRevoked
	slog.Info("revoked certificate", "number", number, "teacher_id", teacher.ID)
	return view, nil
}

func (is *Issuer) view(ctx context.Context, number string) (CertificateView, int64, error) {
	cert, err := is.store.GetCertificateByNumber(ctx, number)
	if errors.Is(err, store.ErrNotFound) {
		return CertificateView{}, 0, reject(ReasonNotFound, "certificate %s", number)
	}
	if err != nil {
		return CertificateView{}, 0, transient("lookup certificate", err)
	}
	r, err := is.store.GetResult(ctx, cert.ResultID)
	if err != nil {
		return CertificateView{}, 0, transient("lookup certificate", err)
	}
	e, err := is.store.GetExam(ctx, r.ExamID)
	if err != nil {
		return CertificateView{}, 0, transient("lookup certificate", err)
	}
	view := CertificateView{
		Certificate: cert,
		ExamID:      e.ID,
		ExamTitle:   e.Title,
		Subject:     e.Subject,
		StudentID:   r.StudentID,
		Percentage:  r.Percentage,
		SubmittedAt: r.SubmittedAt,
	}
	if u, err := is.store.GetUserByID(ctx, r.StudentID); err == nil && u != nil {
		view.StudentName = u.DisplayName
	}
	return view, e.TeacherID, nil
}

// canSeeResult allows the student who owns a result, the teacher who owns
// its exam, and admins.
func canSeeResult(viewer *model.User, studentID, teacherID int64) bool {
	if viewer == nil {
		return false
	}
	switch viewer.Role {
	case model.UserRoleAdmin:
		return true
	case model.UserRoleTeacher:
		return viewer.ID == teacherID
	case model.UserRoleStudent:
		return viewer.ID == studentID
	}
	return false
}
