package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examhall/internal/exam"
	"github.com/pavelanni/examhall/internal/model"
)

func (h *Handler) handleExamResults(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	list, err := h.exams.Results.ForExam(r.Context(), model.UserFromContext(r.Context()), examID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleExamRanking(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	ranks, err := h.exams.Ranking.WithinExam(r.Context(), model.UserFromContext(r.Context()), examID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ranks == nil {
		ranks = []model.RankEntry{}
	}
	writeJSON(w, http.StatusOK, ranks)
}

func (h *Handler) handleResultDetail(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, r, exam.ErrExamNotFound)
		return
	}
	studentID, ok := pathID(r, "studentID")
	if !ok {
		writeError(w, r, exam.ErrNotFound)
		return
	}
	detail, err := h.exams.Results.Detail(r.Context(), model.UserFromContext(r.Context()), examID, studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleMyResults(w http.ResponseWriter, r *http.Request) {
	list, err := h.exams.Results.ForStudent(r.Context(), model.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleMyRanking(w http.ResponseWriter, r *http.Request) {
	cr, err := h.exams.Ranking.AcrossExams(r.Context(), model.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

func (h *Handler) handleMyAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.exams.Results.Analytics(r.Context(), model.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleLookupCertificate(w http.ResponseWriter, r *http.Request) {
	view, err := h.exams.Issuer.Lookup(r.Context(), model.UserFromContext(r.Context()), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleRevokeCertificate(w http.ResponseWriter, r *http.Request) {
	view, err := h.exams.Issuer.Revoke(r.Context(), model.UserFromContext(r.Context()), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
