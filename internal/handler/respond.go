package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pavelanni/examhall/internal/exam"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

var reasonStatus = map[exam.Reason]int{
	exam.ReasonAlreadyTaken: http.StatusConflict,
	exam.ReasonNotYetOpen:   http.StatusForbidden,
	exam.ReasonExpired:      http.StatusForbidden,
	exam.ReasonExamInactive: http.StatusForbidden,
	exam.ReasonExamNotFound: http.StatusNotFound,
	exam.ReasonMalformed:    http.StatusBadRequest,
	exam.ReasonForbidden:    http.StatusForbidden,
	exam.ReasonExamLocked:   http.StatusConflict,
	exam.ReasonInvalidExam:  http.StatusUnprocessableEntity,
	exam.ReasonNotPassed:    http.StatusConflict,
	exam.ReasonNotFound:     http.StatusNotFound,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps rejections to 4xx, transient failures to 503 and
// anything else to 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if rej, ok := exam.AsRejection(err); ok {
		status, ok := reasonStatus[rej.Reason]
		if !ok {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{Error: errorDetail{
			Code:    string(rej.Reason),
			Message: appI18n.Reason(ctx, string(rej.Reason)),
			Detail:  rej.Detail,
		}})
		return
	}
	if exam.IsTransient(err) {
		slog.Warn("transient failure", "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		writeMessage(w, r, http.StatusServiceUnavailable, "unavailable")
		return
	}
	slog.Error("request failed", "path", r.URL.Path, "error", err)
	writeMessage(w, r, http.StatusInternalServerError, "internal")
}

// writeMessage writes an error that has no rejection reason.
func writeMessage(w http.ResponseWriter, r *http.Request, status int, code string) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    code,
		Message: appI18n.T(r.Context(), "Error."+code),
	}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeMessage(w, r, http.StatusRequestEntityTooLarge, "bad_request")
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "bad_request",
			Message: appI18n.T(r.Context(), "Error.bad_request"),
			Detail:  err.Error(),
		}})
		return false
	}
	return true
}
