// Package handler exposes the exam core as a JSON API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/examhall/internal/exam"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
	"github.com/pavelanni/examhall/internal/metrics"
	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// Config holds HTTP-level settings.
type Config struct {
	SecureCookies bool
	// RateLimit is the sustained requests per second allowed per client.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	exams   *exam.Service
	metrics *metrics.Metrics
	config  Config
}

// New creates a new Handler. m may be nil to disable metrics.
func New(s *store.Store, svc *exam.Service, m *metrics.Metrics, cfg Config) *Handler {
	return &Handler{store: s, exams: svc, metrics: m, config: cfg}
}

// Router builds the full middleware chain and routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(appI18n.Middleware)
	if h.config.RateLimit > 0 {
		r.Use(newRateLimiter(h.config.RateLimit, h.config.RateBurst).middleware)
	}

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", h.Routes)
	return r
}

// Routes registers the API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/me", h.handleMe)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.Get("/exams/{examID}/ranking", h.handleExamRanking)
		r.Get("/results/{examID}/{studentID}", h.handleResultDetail)
		r.Get("/certificates/{number}", h.handleLookupCertificate)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/admin/users", h.handleListUsers)
			r.Post("/admin/users", h.handleCreateUser)
			r.Post("/admin/users/{userID}/active", h.handleSetUserActive)
			r.Get("/events", h.handleEvents)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher))
			r.Post("/exams", h.handleCreateExam)
			r.Get("/teacher/exams", h.handleTeacherExams)
			r.Patch("/exams/{examID}", h.handleUpdateExam)
			r.Delete("/exams/{examID}", h.handleDeleteExam)
			r.Get("/exams/{examID}/results", h.handleExamResults)
			r.Post("/certificates/{number}/revoke", h.handleRevokeCertificate)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Get("/exams/available", h.handleAvailableExams)
			r.Get("/exams/{examID}/admission", h.handleAdmission)
			r.Post("/exams/{examID}/submit", h.handleSubmit)
			r.Get("/me/results", h.handleMyResults)
			r.Get("/me/ranking", h.handleMyRanking)
			r.Get("/me/analytics", h.handleMyAnalytics)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.ListMetadata(r.Context())
	if err != nil {
		writeError(w, r, &exam.TransientError{Op: "health", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "database": meta})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
