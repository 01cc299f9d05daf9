package handler

import (
	"net/http"

	"github.com/pavelanni/examhall/internal/exam"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
	"github.com/pavelanni/examhall/internal/model"
)

type examResponse struct {
	Exam      model.Exam       `json:"exam"`
	Questions []model.Question `json:"questions"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var draft model.ExamDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	e, qs, err := h.exams.Definitions.Create(r.Context(), model.UserFromContext(r.Context()), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, examResponse{Exam: e, Questions: qs})
}

func (h *Handler) handleTeacherExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.exams.Definitions.Teaching(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if exams == nil {
		exams = []model.TeacherExam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	var patch model.ExamPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	e, err := h.exams.Definitions.Update(r.Context(), model.UserFromContext(r.Context()), examID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	if err := h.exams.Definitions.Delete(r.Context(), model.UserFromContext(r.Context()), examID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetExam serves the answer-free view to students and the full
// definition to the owning teacher.
func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	user := model.UserFromContext(r.Context())
	switch user.Role {
	case model.UserRoleStudent:
		view, err := h.exams.Definitions.ForStudent(r.Context(), user, examID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case model.UserRoleTeacher:
		e, qs, err := h.exams.Definitions.ForTeacher(r.Context(), user, examID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, examResponse{Exam: e, Questions: qs})
	default:
		writeError(w, r, exam.ErrForbidden)
	}
}

type availableResponse struct {
	Summary string                `json:"summary"`
	Exams   []model.AvailableExam `json:"exams"`
}

func (h *Handler) handleAvailableExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.exams.Definitions.Available(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	open := 0
	for _, e := range exams {
		if e.Availability == model.AvailabilityAvailable {
			open++
		}
	}
	writeJSON(w, http.StatusOK, availableResponse{
		Summary: appI18n.Tp(r.Context(), "ExamsAvailable", open),
		Exams:   exams,
	})
}

type admissionResponse struct {
	Admission model.Admission `json:"admission"`
	Message   string          `json:"message,omitempty"`
}

func (h *Handler) handleAdmission(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	user := model.UserFromContext(r.Context())
	adm, err := h.exams.Guard.Check(r.Context(), examID, user.ID, h.exams.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := admissionResponse{Admission: adm}
	if adm != model.Admitted {
		resp.Message = appI18n.Reason(r.Context(), string(adm))
	}
	writeJSON(w, http.StatusOK, resp)
}

type submitRequest struct {
	Answers        []model.AnswerInput `json:"answers"`
	ElapsedMinutes int                 `json:"elapsed_minutes"`
}

type submitResponse struct {
	exam.Receipt
	Notices []string `json:"notices,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := model.UserFromContext(r.Context())
	rc, err := h.exams.Ledger.Submit(r.Context(), model.Submission{
		ExamID:         examID,
		StudentID:      user.ID,
		Answers:        req.Answers,
		ElapsedMinutes: req.ElapsedMinutes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := submitResponse{Receipt: rc}
	if len(rc.Skipped) > 0 {
		resp.Notices = append(resp.Notices, appI18n.Tp(r.Context(), "SkippedAnswers", len(rc.Skipped)))
	}
	if rc.Certificate != nil {
		resp.Notices = append(resp.Notices, appI18n.Td(r.Context(), "CertificateIssued", map[string]any{
			"Number": rc.Certificate.Number,
		}))
	}
	writeJSON(w, http.StatusCreated, resp)
}
