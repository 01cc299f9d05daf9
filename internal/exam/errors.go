package exam

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable code of a rejection.
type Reason string

const (
	ReasonAlreadyTaken Reason = "already_taken"
	ReasonNotYetOpen   Reason = "not_yet_open"
	ReasonExpired      Reason = "expired"
	ReasonExamInactive Reason = "exam_inactive"
	ReasonExamNotFound Reason = "exam_not_found"
	ReasonMalformed    Reason = "malformed_submission"
	ReasonForbidden    Reason = "forbidden"
	ReasonExamLocked   Reason = "exam_locked"
	ReasonInvalidExam  Reason = "invalid_exam"
	ReasonNotPassed    Reason = "not_passed"
	ReasonNotFound     Reason = "not_found"
)

// Rejection is an expected, user-facing refusal of an operation.
// Two rejections compare equal under errors.Is when their reasons match.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}

// Is reports whether target is a rejection with the same reason.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

var (
	ErrAlreadyTaken        = &Rejection{Reason: ReasonAlreadyTaken}
	ErrNotYetOpen          = &Rejection{Reason: ReasonNotYetOpen}
	ErrExpired             = &Rejection{Reason: ReasonExpired}
	ErrExamInactive        = &Rejection{Reason: ReasonExamInactive}
	ErrExamNotFound        = &Rejection{Reason: ReasonExamNotFound}
	ErrMalformedSubmission = &Rejection{Reason: ReasonMalformed}
	ErrForbidden           = &Rejection{Reason: ReasonForbidden}
	ErrExamLocked          = &Rejection{Reason: ReasonExamLocked}
	ErrInvalidExam         = &Rejection{Reason: ReasonInvalidExam}
	ErrNotPassed           = &Rejection{Reason: ReasonNotPassed}
	ErrNotFound            = &Rejection{Reason: ReasonNotFound}
)

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// TransientError wraps a storage failure. Nothing was committed, so the
// caller may retry the operation.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable storage failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// AsRejection extracts the rejection from err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// transient passes rejections through untouched and wraps everything else.
func transient(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsRejection(err); ok {
		return err
	}
	return &TransientError{Op: op, Err: err}
}
